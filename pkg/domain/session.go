package domain

import "time"

// DragState is the phase of the drag state machine.
type DragState string

const (
	DragIdle      DragState = "idle"
	DragPreparing DragState = "preparing" // pointer is down, threshold not crossed yet
	DragDragging  DragState = "dragging"
)

// DragOutcome is how a gesture ended.
type DragOutcome string

const (
	OutcomeNone      DragOutcome = ""
	OutcomeClicked   DragOutcome = "clicked" // threshold never crossed
	OutcomeCommitted DragOutcome = "committed"
	OutcomeRejected  DragOutcome = "rejected"
	OutcomeCancelled DragOutcome = "cancelled"
)

// Target is a resolved drop slot.
// ContainerID is RootID for the root list. InsertBeforeID is empty when inserting at the end.
type Target struct {
	ContainerID    string `json:"container_id"`
	InsertIndex    int    `json:"insert_index"`
	InsertBeforeID string `json:"insert_before_id,omitempty"`
}

// RootTarget is the fallback slot used when no container resolves: end of the root list.
func RootTarget(rootLen int) Target {
	return Target{ContainerID: RootID, InsertIndex: rootLen}
}

// DragSession is the ephemeral state of one pointer gesture.
type DragSession struct {
	ID        string    `json:"id"`
	State     DragState `json:"state"`
	SubjectID string    `json:"subject_id"`
	Origin    Point     `json:"origin"`
	Current   Point     `json:"current"`
	// Offset is the pointer position relative to the subject's bounds origin.
	Offset           Point     `json:"offset"`
	OriginalParentID string    `json:"original_parent_id"`
	OriginalIndex    int       `json:"original_index"`
	ResolvedTarget   *Target   `json:"resolved_target,omitempty"`
	HoverID          string    `json:"hover_id,omitempty"`
	StartedAt        time.Time `json:"started_at"`
}

// Snapshot returns a copy safe to hand to callers.
func (s DragSession) Snapshot() DragSession {
	out := s
	if s.ResolvedTarget != nil {
		t := *s.ResolvedTarget
		out.ResolvedTarget = &t
	}
	return out
}

// Move describes a successful commit.
type Move struct {
	SubjectID   string `json:"subject_id"`
	OldParentID string `json:"old_parent_id"`
	NewParentID string `json:"new_parent_id"`
	OldIndex    int    `json:"old_index"`
	NewIndex    int    `json:"new_index"`
}

// IsNoop reports whether the move left the subject where it was.
func (m Move) IsNoop() bool {
	return m.OldParentID == m.NewParentID && m.OldIndex == m.NewIndex
}

// InteractionMode is the editor tool currently active. Only ModeDefault starts drags.
type InteractionMode string

const (
	ModeDefault InteractionMode = "default"
	ModeHandPan InteractionMode = "hand_pan"
	ModeDraw    InteractionMode = "draw"
	ModeComment InteractionMode = "comment"
)

// Valid reports whether m is one of the known modes.
func (m InteractionMode) Valid() bool {
	switch m {
	case ModeDefault, ModeHandPan, ModeDraw, ModeComment:
		return true
	}
	return false
}

// AllowsDrag reports whether element drags may begin in this mode.
func (m InteractionMode) AllowsDrag() bool {
	return m == ModeDefault
}

// Document is a persisted snapshot of a tree.
type Document struct {
	ID        string    `json:"id"`
	Elements  []Element `json:"elements"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DragResult is what ending a gesture produced.
// Move is set only for OutcomeCommitted; Reason only for OutcomeRejected.
type DragResult struct {
	Outcome DragOutcome     `json:"outcome"`
	Session DragSession     `json:"session"`
	Target  *Target         `json:"target,omitempty"`
	Move    *Move           `json:"move,omitempty"`
	Reason  RejectionReason `json:"reason,omitempty"`
}
