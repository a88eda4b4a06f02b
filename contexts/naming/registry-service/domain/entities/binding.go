package entities

import "time"

// Binding maps a derived node to its owner and, for policy sub-bindings,
// the policy instance registered under the label.
type Binding struct {
	Node       string
	ParentNode string
	Label      string
	Owner      string
	Target     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsUserBinding reports whether the binding sits directly under the root
// namespace.
func (b Binding) IsUserBinding(rootNode string) bool {
	return b.ParentNode == rootNode
}
