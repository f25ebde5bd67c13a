package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembershipState_CanTransition(t *testing.T) {
	cases := []struct {
		from    MembershipState
		to      MembershipState
		allowed bool
	}{
		{MembershipNone, MembershipActive, true},
		{MembershipActive, MembershipExpired, true},
		{MembershipActive, MembershipActive, true},
		{MembershipExpired, MembershipKicked, true},
		{MembershipExpired, MembershipActive, true}, // продлили до кика
		{MembershipKicked, MembershipReinstated, true},
		{MembershipReinstated, MembershipActive, true},

		{MembershipNone, MembershipKicked, false},
		{MembershipActive, MembershipKicked, false}, // кик только через expired
		{MembershipKicked, MembershipActive, false},
		{MembershipKicked, MembershipExpired, false},
		{MembershipExpired, MembershipReinstated, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestSubscription_ExtendFrom(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("active subscription extends from expires_at", func(t *testing.T) {
		sub := &Subscription{ExpiresAt: now.Add(10 * 24 * time.Hour)}
		assert.Equal(t, sub.ExpiresAt, sub.ExtendFrom(now))
	})

	t.Run("expired subscription extends from now", func(t *testing.T) {
		sub := &Subscription{ExpiresAt: now.Add(-5 * 24 * time.Hour)}
		assert.Equal(t, now, sub.ExtendFrom(now))
	})
}

func TestSubscription_IsExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, (&Subscription{ExpiresAt: now.Add(-time.Hour)}).IsExpired(now))
	assert.False(t, (&Subscription{ExpiresAt: now.Add(time.Hour)}).IsExpired(now))
}

func TestTags_ScanValue(t *testing.T) {
	t.Run("scan nil", func(t *testing.T) {
		var tags Tags
		require.NoError(t, tags.Scan(nil))
		assert.Empty(t, tags)
	})

	t.Run("scan bytes", func(t *testing.T) {
		var tags Tags
		require.NoError(t, tags.Scan([]byte(`["reinstate","vip"]`)))
		assert.True(t, tags.Has(TagReinstate))
		assert.True(t, tags.Has("vip"))
		assert.False(t, tags.Has("missing"))
	})

	t.Run("scan string", func(t *testing.T) {
		var tags Tags
		require.NoError(t, tags.Scan(`["reinstate"]`))
		assert.True(t, tags.Has(TagReinstate))
	})

	t.Run("scan unsupported type", func(t *testing.T) {
		var tags Tags
		assert.Error(t, tags.Scan(42))
	})

	t.Run("empty tags serialize as empty array", func(t *testing.T) {
		value, err := Tags{}.Value()
		require.NoError(t, err)
		assert.Equal(t, "[]", value)
	})

	t.Run("round trip", func(t *testing.T) {
		value, err := Tags{"reinstate"}.Value()
		require.NoError(t, err)

		var scanned Tags
		require.NoError(t, scanned.Scan(value))
		assert.Equal(t, Tags{"reinstate"}, scanned)
	})
}

func TestCustomerIdentity_IsResolved(t *testing.T) {
	id := int64(123)
	username := "alice"

	assert.True(t, CustomerIdentity{TelegramID: &id}.IsResolved())
	assert.False(t, CustomerIdentity{Username: &username}.IsResolved())
	assert.False(t, CustomerIdentity{}.IsResolved())
}
