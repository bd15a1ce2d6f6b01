package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidSubject is returned when a drag is attempted on a virtual, slot or missing element.
var ErrInvalidSubject = errors.New("invalid drag subject")

// ErrSubjectNotFound is returned when the element to move does not exist in the tree.
var ErrSubjectNotFound = errors.New("subject not found")

// ErrCycleRejected groups rejections that would make an element its own ancestor.
var ErrCycleRejected = errors.New("move would create a cycle")

// ErrTargetIsSubject is returned when an element is dropped into itself.
var ErrTargetIsSubject = fmt.Errorf("target is the subject itself: %w", ErrCycleRejected)

// ErrTargetIsDescendant is returned when an element is dropped into one of its descendants.
var ErrTargetIsDescendant = fmt.Errorf("target is a descendant of the subject: %w", ErrCycleRejected)

// ErrTargetNotContainer is returned when the destination cannot accept drops.
var ErrTargetNotContainer = errors.New("target does not accept drops")

// ErrSessionActive is returned by Begin when a drag session already exists.
var ErrSessionActive = errors.New("drag session already active")

// ErrNoSession is returned when a lifecycle call arrives while no session is active.
var ErrNoSession = errors.New("no active drag session")

// ErrSessionMismatch is returned when a delayed or duplicate event targets a stale session.
var ErrSessionMismatch = errors.New("session id does not match the active session")

// ErrStaleTarget is returned when a cached drop target refers to an element removed mid-drag.
var ErrStaleTarget = errors.New("resolved target is stale")

// ErrReconciliationMismatch is returned when an observed order references an unknown id.
var ErrReconciliationMismatch = errors.New("observed order references unknown element")

// ErrInvariantViolation is returned when the tree fails structural validation.
var ErrInvariantViolation = errors.New("tree invariant violated")

// ErrDocumentNotFound is returned when a document ID cannot be found in the store.
var ErrDocumentNotFound = errors.New("document not found")

// RejectionReason is the machine-readable reason a commit was refused.
type RejectionReason string

const (
	ReasonSubjectNotFound       RejectionReason = "subjectNotFound"
	ReasonTargetIsSubject       RejectionReason = "targetIsSubjectItself"
	ReasonTargetIsDescendant    RejectionReason = "targetIsDescendantOfSubject"
	ReasonTargetNotContainer    RejectionReason = "targetNotContainer"
	ReasonReconciliationUnknown RejectionReason = "reconciliationMismatch"
)

// RejectionError describes a refused commit. It unwraps to the matching sentinel error.
type RejectionError struct {
	Reason    RejectionReason
	SubjectID string
	TargetID  string
}

func (e *RejectionError) Error() string {
	if e.TargetID == "" {
		return fmt.Sprintf("commit rejected (%s): subject=%q", e.Reason, e.SubjectID)
	}
	return fmt.Sprintf("commit rejected (%s): subject=%q target=%q", e.Reason, e.SubjectID, e.TargetID)
}

// Unwrap maps the reason to its sentinel so callers can use errors.Is.
func (e *RejectionError) Unwrap() error {
	switch e.Reason {
	case ReasonSubjectNotFound:
		return ErrSubjectNotFound
	case ReasonTargetIsSubject:
		return ErrTargetIsSubject
	case ReasonTargetIsDescendant:
		return ErrTargetIsDescendant
	case ReasonTargetNotContainer:
		return ErrTargetNotContainer
	case ReasonReconciliationUnknown:
		return ErrReconciliationMismatch
	}
	return nil
}

// Reject builds a RejectionError.
func Reject(reason RejectionReason, subjectID, targetID string) error {
	return &RejectionError{Reason: reason, SubjectID: subjectID, TargetID: targetID}
}

// ReasonOf extracts the rejection reason from err, or "" if err is not a rejection.
func ReasonOf(err error) RejectionReason {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}
