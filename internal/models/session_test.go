package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{ExpiresAt: now}

	require.True(t, s.Expired(now))
	require.True(t, s.Expired(now.Add(time.Second)))
	require.False(t, s.Expired(now.Add(-time.Second)))
}

func TestSession_Refresh(t *testing.T) {
	ttl := 7 * 24 * time.Hour
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		at        time.Time
		updateAge time.Duration
		refreshed bool
	}{
		{name: "fresh session", at: created.Add(time.Hour), updateAge: 24 * time.Hour},
		{name: "update age reached", at: created.Add(24 * time.Hour), updateAge: 24 * time.Hour, refreshed: true},
		{name: "old session", at: created.Add(5 * 24 * time.Hour), updateAge: 24 * time.Hour, refreshed: true},
		{name: "sliding disabled", at: created.Add(5 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{CreatedAt: created, ExpiresAt: created.Add(ttl)}

			require.Equal(t, tt.refreshed, s.Refresh(tt.at, ttl, tt.updateAge))
			if tt.refreshed {
				require.Equal(t, tt.at.Add(ttl), s.ExpiresAt)
			} else {
				require.Equal(t, created.Add(ttl), s.ExpiresAt)
			}
		})
	}
}
