package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusPaid))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))

	// paid and cancelled are terminal
	assert.False(t, CanTransition(StatusPaid, StatusCancelled))
	assert.False(t, CanTransition(StatusPaid, StatusPending))
	assert.False(t, CanTransition(StatusCancelled, StatusPaid))
	assert.False(t, CanTransition(StatusCancelled, StatusPending))

	// unknown states permit nothing
	assert.False(t, CanTransition(Status("shipped"), StatusPaid))
	assert.False(t, CanTransition(StatusPending, Status("shipped")))
}
