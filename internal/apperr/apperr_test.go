package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{Validation("name is mandatory"), ErrValidation},
		{NotFound("no bank account with id %s", "x"), ErrNotFound},
		{Forbidden(), ErrForbidden},
		{Invariant("Value to subtract cannot be greater than balance"), ErrInvariant},
		{Conflict("email %s already taken", "a@b.c"), ErrConflict},
		{Unauthenticated("invalid token"), ErrUnauthenticated},
		{Persistence(errors.New("connection reset")), ErrPersistence},
	}
	for _, tc := range cases {
		require.ErrorIs(t, tc.err, tc.kind)
		require.ErrorIs(t, fmt.Errorf("wrapped: %w", tc.err), tc.kind)
	}
	require.NotErrorIs(t, Forbidden(), ErrNotFound)
}

func TestPersistenceKeepsCauseAndExistingKinds(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence(cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "persistence failure", Message(err))
	require.Contains(t, err.Error(), "connection reset")

	conflict := Conflict("taken")
	require.Same(t, conflict, Persistence(conflict))
	require.NoError(t, Persistence(nil))
}

func TestMessageFallsBackToErrorText(t *testing.T) {
	require.Equal(t, "boom", Message(errors.New("boom")))
	require.Equal(t, "Forbidden", Message(Forbidden()))
}
