package services

import (
	"crypto/sha256"
	"encoding/hex"
)

// RootNode is the zero node every user binding hangs under.
const RootNode = "0000000000000000000000000000000000000000000000000000000000000000"

// CalculateNode derives a child node from its parent and label:
// node = H(parentNode, H(label)). The chain is pure, so any caller can
// precompute a node address before the binding exists. An unparseable
// parent is treated as raw bytes so the function stays total.
func CalculateNode(parentNode string, label string) string {
	parent, err := hex.DecodeString(parentNode)
	if err != nil {
		parent = []byte(parentNode)
	}
	labelHash := sha256.Sum256([]byte(label))
	h := sha256.New()
	h.Write(parent)
	h.Write(labelHash[:])
	return hex.EncodeToString(h.Sum(nil))
}

// ValidUserLabel accepts lowercase alphanumeric labels.
func ValidUserLabel(label string) bool {
	if label == "" {
		return false
	}
	for _, r := range label {
		if !isLowerAlnum(r) {
			return false
		}
	}
	return true
}

// ValidPolicyLabel additionally allows interior hyphens for sub-policy
// labels.
func ValidPolicyLabel(label string) bool {
	if label == "" || label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, r := range label {
		if !isLowerAlnum(r) && r != '-' {
			return false
		}
	}
	return true
}

func isLowerAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
