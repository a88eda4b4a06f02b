package entities

import "time"

// PolicyType names the templates the factory can instantiate.
type PolicyType string

const (
	PolicyTypeSplit       PolicyType = "split"
	PolicyTypeSimpleSplit PolicyType = "simple-split"
	PolicyTypeSavings     PolicyType = "savings"
	PolicyTypeFees        PolicyType = "fees"
)

// ValidPolicyType reports whether raw names a known template.
func ValidPolicyType(raw string) bool {
	switch PolicyType(raw) {
	case PolicyTypeSplit, PolicyTypeSimpleSplit, PolicyTypeSavings, PolicyTypeFees:
		return true
	default:
		return false
	}
}

// Record is one successful factory creation: the registry node the
// instance was registered under and the instance it points at.
type Record struct {
	Node       string
	Label      string
	Type       PolicyType
	Owner      string
	InstanceID string
	FeePaid    int64
	CreatedAt  time.Time
}
