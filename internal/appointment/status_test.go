package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	legal := map[Status][]Status{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCompleted, StatusCancelled},
	}

	all := []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, next := range legal[from] {
				if next == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransitionRejectsSameState(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled} {
		assert.False(t, CanTransition(s, s))
	}
}

func TestRoleMayTransition(t *testing.T) {
	assert.True(t, roleMayTransition(RoleAdmin, StatusConfirmed))
	assert.True(t, roleMayTransition(RoleSecretaire, StatusCompleted))
	assert.True(t, roleMayTransition(RoleSecretaire, StatusCancelled))
	assert.True(t, roleMayTransition(RolePatient, StatusCancelled))

	assert.False(t, roleMayTransition(RolePatient, StatusConfirmed))
	assert.False(t, roleMayTransition(RolePatient, StatusCompleted))
	assert.False(t, roleMayTransition(RoleMedecin, StatusConfirmed))
	assert.False(t, roleMayTransition(RoleMedecin, StatusCancelled))
	assert.False(t, roleMayTransition(RoleAdmin, StatusPending))
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled} {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("archived").Valid())
	assert.False(t, Status("").Valid())
}
