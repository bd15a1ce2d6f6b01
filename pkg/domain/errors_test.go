package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRejectionError_Unwrap(t *testing.T) {
	tests := []struct {
		reason RejectionReason
		want   error
	}{
		{ReasonSubjectNotFound, ErrSubjectNotFound},
		{ReasonTargetIsSubject, ErrTargetIsSubject},
		{ReasonTargetIsDescendant, ErrTargetIsDescendant},
		{ReasonTargetNotContainer, ErrTargetNotContainer},
		{ReasonReconciliationUnknown, ErrReconciliationMismatch},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", Reject(tt.reason, "a", "b"))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.reason, ReasonOf(err))
		})
	}
}

func TestCycleRejections(t *testing.T) {
	assert.ErrorIs(t, Reject(ReasonTargetIsSubject, "a", "a"), ErrCycleRejected)
	assert.ErrorIs(t, Reject(ReasonTargetIsDescendant, "a", "b"), ErrCycleRejected)
	assert.False(t, errors.Is(Reject(ReasonSubjectNotFound, "a", ""), ErrCycleRejected))
	assert.Equal(t, RejectionReason(""), ReasonOf(errors.New("plain")))
}
