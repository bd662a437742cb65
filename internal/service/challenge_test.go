package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/storeit/internal/domain"
)

func TestChallengeSigner_RoundTrip(t *testing.T) {
	s := NewChallengeSigner("secret", 15*time.Minute)

	token, err := s.Sign(Challenge{AccountID: "acc1", Email: "a@x.com"})
	require.NoError(t, err)

	ch, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "acc1", ch.AccountID)
	assert.Equal(t, "a@x.com", ch.Email)
	assert.Equal(t, 15*time.Minute, s.TTL())
	assert.NotEmpty(t, ch.ID)

	again, err := s.Sign(Challenge{AccountID: "acc1", Email: "a@x.com"})
	require.NoError(t, err)
	next, err := s.Parse(again)
	require.NoError(t, err)
	assert.NotEqual(t, ch.ID, next.ID)
}

func TestChallengeSigner_Rejects(t *testing.T) {
	s := NewChallengeSigner("secret", 15*time.Minute)
	token, err := s.Sign(Challenge{AccountID: "acc1", Email: "a@x.com"})
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := s.Parse("")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("other secret", func(t *testing.T) {
		_, err := NewChallengeSigner("other", time.Minute).Parse(token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := s.Parse(token + "x")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewChallengeSigner("secret", 15*time.Minute)
		late.now = func() time.Time { return time.Now().Add(time.Hour) }
		_, err := late.Parse(token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("incomplete", func(t *testing.T) {
		partial, err := s.Sign(Challenge{AccountID: "acc1"})
		require.NoError(t, err)
		_, err = s.Parse(partial)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}
