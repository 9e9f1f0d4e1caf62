package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	// Pending moves to either terminal state.
	assert.True(t, CanTransition(StatusPending, StatusApproved))
	assert.True(t, CanTransition(StatusPending, StatusRejected))

	// Terminal states may only be re-applied (retry support).
	assert.True(t, CanTransition(StatusApproved, StatusApproved))
	assert.True(t, CanTransition(StatusRejected, StatusRejected))

	// Crossing terminal states is never allowed.
	assert.False(t, CanTransition(StatusApproved, StatusRejected))
	assert.False(t, CanTransition(StatusRejected, StatusApproved))
	assert.False(t, CanTransition(StatusApproved, StatusPending))
	assert.False(t, CanTransition(StatusRejected, StatusPending))
	assert.False(t, CanTransition(StatusPending, StatusPending))

	// Unknown statuses never transition.
	assert.False(t, CanTransition(CandidateStatus("BOGUS"), StatusApproved))
	assert.False(t, CanTransition(CandidateStatus("BOGUS"), CandidateStatus("BOGUS")))
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusApproved.Valid())
	assert.True(t, StatusRejected.Valid())
	assert.False(t, CandidateStatus("approved").Valid())
	assert.False(t, CandidateStatus("").Valid())
}
