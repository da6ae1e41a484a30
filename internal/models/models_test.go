package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralStatusTransitionsOnlyMoveForward(t *testing.T) {
	statuses := []ReferralStatus{ReferralStatusPending, ReferralStatusCompleted, ReferralStatusPaid}

	allowed := map[[2]ReferralStatus]bool{
		{ReferralStatusPending, ReferralStatusCompleted}: true,
		{ReferralStatusCompleted, ReferralStatusPaid}:    true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, allowed[[2]ReferralStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, ReferralStatus("expired").IsValid())
}

func TestReferralStatusIsSuccessful(t *testing.T) {
	assert.False(t, ReferralStatusPending.IsSuccessful())
	assert.True(t, ReferralStatusCompleted.IsSuccessful())
	assert.True(t, ReferralStatusPaid.IsSuccessful())
}

func TestCapturedCodeExpiry(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	ttl := 30 * 24 * time.Hour

	fresh := CapturedCode{Code: "SUMMER", CapturedAt: now.Add(-29 * 24 * time.Hour)}
	stale := CapturedCode{Code: "SUMMER", CapturedAt: now.Add(-31 * 24 * time.Hour)}
	boundary := CapturedCode{Code: "SUMMER", CapturedAt: now.Add(-ttl)}

	assert.False(t, fresh.ExpiredAt(now, ttl))
	assert.True(t, stale.ExpiredAt(now, ttl))
	assert.True(t, boundary.ExpiredAt(now, ttl))
}

func TestCommissionTierJSONWritesNullForOpenBound(t *testing.T) {
	top := CommissionTier{Tier: 8, MinReferrals: 100, MaxReferrals: UnboundedReferrals, Rate: 25}
	raw, err := json.Marshal(top)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":8,"min_referrals":100,"max_referrals":null,"rate":25}`, string(raw))

	bounded := CommissionTier{Tier: 1, MinReferrals: 0, MaxReferrals: 4, Rate: 5}
	raw, err = json.Marshal(bounded)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":1,"min_referrals":0,"max_referrals":4,"rate":5}`, string(raw))
}

func TestLedgerTotals(t *testing.T) {
	totals := LedgerTotals{PendingCount: 3, CompletedCount: 2, PaidCount: 1}
	assert.Equal(t, int64(6), totals.Total())
	assert.Equal(t, int64(3), totals.Successful())
}
