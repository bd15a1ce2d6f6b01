package domain

// ReconcileKind classifies how an observed order differed from the tree.
type ReconcileKind string

const (
	ReconcileNone    ReconcileKind = "none"
	ReconcileMove    ReconcileKind = "move"
	ReconcileReorder ReconcileKind = "reorder"
)

// ReconcileReport describes the outcome of folding an observed child order back into the tree.
type ReconcileReport struct {
	ParentID string        `json:"parent_id"`
	Kind     ReconcileKind `json:"kind"`
	Move     *Move         `json:"move,omitempty"`
	// Appended lists children missing from the observation that were kept at the end.
	Appended []string `json:"appended,omitempty"`
	Order    []string `json:"order"`
	Repairs  int      `json:"repairs,omitempty"`
}

// Changed reports whether reconciliation mutated the tree.
func (r ReconcileReport) Changed() bool {
	return r.Kind != ReconcileNone
}
