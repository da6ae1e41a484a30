package services

import (
	"encoding/json"
	"strings"

	"storefront/internal/models"
	"storefront/internal/utils"
)

// TierTable is a validated, immutable commission tier list.
type TierTable struct {
	tiers []models.CommissionTier
}

var defaultTiers = []models.CommissionTier{
	{Tier: 1, MinReferrals: 0, MaxReferrals: 4, Rate: 5},
	{Tier: 2, MinReferrals: 5, MaxReferrals: 9, Rate: 7},
	{Tier: 3, MinReferrals: 10, MaxReferrals: 19, Rate: 10},
	{Tier: 4, MinReferrals: 20, MaxReferrals: 34, Rate: 12},
	{Tier: 5, MinReferrals: 35, MaxReferrals: 49, Rate: 15},
	{Tier: 6, MinReferrals: 50, MaxReferrals: 74, Rate: 17},
	{Tier: 7, MinReferrals: 75, MaxReferrals: 99, Rate: 20},
	{Tier: 8, MinReferrals: 100, MaxReferrals: models.UnboundedReferrals, Rate: 25},
}

func DefaultTierTable() *TierTable {
	table, err := NewTierTable(defaultTiers)
	if err != nil {
		panic(err)
	}
	return table
}

// LoadTierTable parses a JSON tier list such as
// [{"tier":1,"min_referrals":0,"max_referrals":4,"rate":5}, ...].
// A null or negative max_referrals on the last tier means unbounded, so
// the admin tier listing can be pasted back in as is. Blank input
// yields the default table.
func LoadTierTable(raw string) (*TierTable, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultTierTable(), nil
	}
	var entries []struct {
		Tier         int  `json:"tier"`
		MinReferrals int  `json:"min_referrals"`
		MaxReferrals *int `json:"max_referrals"`
		Rate         int  `json:"rate"`
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, utils.InvalidInput("tier table is not valid JSON: %v", err)
	}

	tiers := make([]models.CommissionTier, len(entries))
	for i, e := range entries {
		tiers[i] = models.CommissionTier{Tier: e.Tier, MinReferrals: e.MinReferrals, Rate: e.Rate}
		switch {
		case e.MaxReferrals == nil:
			// Only the last tier may be open; NewTierTable rejects the rest.
			tiers[i].MaxReferrals = models.UnboundedReferrals
		case *e.MaxReferrals < 0 && i == len(entries)-1:
			tiers[i].MaxReferrals = models.UnboundedReferrals
		default:
			tiers[i].MaxReferrals = *e.MaxReferrals
		}
	}
	return NewTierTable(tiers)
}

// NewTierTable checks that tiers are numbered 1..n, start at zero, are
// contiguous and non-overlapping, and pay strictly increasing rates. Only
// the last tier may be unbounded.
func NewTierTable(tiers []models.CommissionTier) (*TierTable, error) {
	if len(tiers) == 0 {
		return nil, utils.InvalidInput("tier table is empty")
	}

	for i, t := range tiers {
		if t.Tier != i+1 {
			return nil, utils.InvalidInput("tier at position %d is numbered %d", i, t.Tier)
		}
		if t.MinReferrals > t.MaxReferrals {
			return nil, utils.InvalidInput("tier %d has min %d above max %d", t.Tier, t.MinReferrals, t.MaxReferrals)
		}
		if t.Rate < 0 || t.Rate > 100 {
			return nil, utils.InvalidInput("tier %d rate %d is outside 0-100", t.Tier, t.Rate)
		}
		if t.IsUnbounded() && i != len(tiers)-1 {
			return nil, utils.InvalidInput("only the last tier may be unbounded, tier %d is", t.Tier)
		}

		if i == 0 {
			if t.MinReferrals != 0 {
				return nil, utils.InvalidInput("first tier must start at 0, starts at %d", t.MinReferrals)
			}
			continue
		}

		prev := tiers[i-1]
		if t.MinReferrals != prev.MaxReferrals+1 {
			return nil, utils.InvalidInput("tier %d starts at %d, expected %d", t.Tier, t.MinReferrals, prev.MaxReferrals+1)
		}
		if t.Rate <= prev.Rate {
			return nil, utils.InvalidInput("tier %d rate %d does not exceed tier %d rate %d", t.Tier, t.Rate, prev.Tier, prev.Rate)
		}
	}

	copied := make([]models.CommissionTier, len(tiers))
	copy(copied, tiers)
	return &TierTable{tiers: copied}, nil
}

func (t *TierTable) Tiers() []models.CommissionTier {
	out := make([]models.CommissionTier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// Resolve maps a successful referral count to its tier and the progress
// toward the next one. Counts past a bounded last tier fall back to tier 1.
func (t *TierTable) Resolve(successfulReferrals int) (*models.TierProgress, error) {
	if successfulReferrals < 0 {
		return nil, utils.InvalidInput("referral count must be non-negative, got %d", successfulReferrals)
	}

	idx := 0
	for i, tier := range t.tiers {
		if tier.Contains(successfulReferrals) {
			idx = i
			break
		}
	}

	current := t.tiers[idx]
	progress := &models.TierProgress{
		Tier:            current.Tier,
		Rate:            current.Rate,
		Current:         current,
		ProgressPercent: 100,
	}

	if idx+1 < len(t.tiers) {
		next := t.tiers[idx+1]
		remaining := next.MinReferrals - successfulReferrals
		if remaining < 0 {
			remaining = 0
		}
		progress.NextTier = &next
		progress.ReferralsToNextTier = &remaining
		progress.ProgressPercent = progressPercent(successfulReferrals, current.MinReferrals, next.MinReferrals)
	}

	return progress, nil
}

func progressPercent(count, from, to int) float64 {
	pct := utils.Ratio(int64(count-from), int64(to-from))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// Derive turns ledger totals into the stats fields owned by recomputation.
// total_referrals is reset to the ledger row count.
func (t *TierTable) Derive(totals models.LedgerTotals) (models.DerivedStats, error) {
	successful := totals.Successful()
	progress, err := t.Resolve(int(successful))
	if err != nil {
		return models.DerivedStats{}, err
	}

	pending := utils.RoundMoney(totals.CompletedEarnings)
	paid := utils.RoundMoney(totals.PaidEarnings)

	return models.DerivedStats{
		TotalReferrals:        totals.Total(),
		SuccessfulReferrals:   successful,
		CurrentTier:           progress.Tier,
		CurrentCommissionRate: progress.Rate,
		TotalEarnings:         utils.SumMoney(pending, paid),
		PendingEarnings:       pending,
		PaidEarnings:          paid,
	}, nil
}
