package services

import "testing"

func TestCalculateNodeIsDeterministic(t *testing.T) {
	a := CalculateNode(RootNode, "alice")
	b := CalculateNode(RootNode, "alice")
	if a != b {
		t.Fatalf("expected deterministic node, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 32-byte hex node, got %q", a)
	}
	if a == RootNode {
		t.Fatalf("derived node must differ from the root")
	}
	if CalculateNode(RootNode, "bob") == a {
		t.Fatalf("different labels must derive different nodes")
	}
}

func TestCalculateNodeChains(t *testing.T) {
	userNode := CalculateNode(RootNode, "alice")
	policyNode := CalculateNode(userNode, "rent-split")
	if policyNode == userNode || policyNode == RootNode {
		t.Fatalf("chained node must be distinct, got %s", policyNode)
	}
	// The same label under a different parent derives a different node.
	if CalculateNode(CalculateNode(RootNode, "bob"), "rent-split") == policyNode {
		t.Fatalf("parent must shape the derived node")
	}
}

func TestValidUserLabel(t *testing.T) {
	valid := []string{"alice", "bob42", "0x1"}
	for _, label := range valid {
		if !ValidUserLabel(label) {
			t.Fatalf("expected %q to be a valid user label", label)
		}
	}
	invalid := []string{"", "Alice", "al ice", "al-ice", "al.ice", "ALICE"}
	for _, label := range invalid {
		if ValidUserLabel(label) {
			t.Fatalf("expected %q to be rejected", label)
		}
	}
}

func TestValidPolicyLabel(t *testing.T) {
	valid := []string{"savings", "rent-split", "a-b-c", "tier2"}
	for _, label := range valid {
		if !ValidPolicyLabel(label) {
			t.Fatalf("expected %q to be a valid policy label", label)
		}
	}
	invalid := []string{"", "-rent", "rent-", "Rent", "re nt", "re_nt"}
	for _, label := range invalid {
		if ValidPolicyLabel(label) {
			t.Fatalf("expected %q to be rejected", label)
		}
	}
}
