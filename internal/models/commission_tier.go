package models

import (
	"encoding/json"
	"math"
)

// UnboundedReferrals marks the open upper bound of the top tier.
const UnboundedReferrals = math.MaxInt

type CommissionTier struct {
	Tier         int `json:"tier"`
	MinReferrals int `json:"min_referrals"`
	MaxReferrals int `json:"max_referrals"`
	Rate         int `json:"rate"`
}

func (t CommissionTier) IsUnbounded() bool {
	return t.MaxReferrals == UnboundedReferrals
}

func (t CommissionTier) Contains(n int) bool {
	return n >= t.MinReferrals && n <= t.MaxReferrals
}

// MarshalJSON writes an unbounded max as null.
func (t CommissionTier) MarshalJSON() ([]byte, error) {
	var max *int
	if !t.IsUnbounded() {
		m := t.MaxReferrals
		max = &m
	}
	return json.Marshal(struct {
		Tier         int  `json:"tier"`
		MinReferrals int  `json:"min_referrals"`
		MaxReferrals *int `json:"max_referrals"`
		Rate         int  `json:"rate"`
	}{t.Tier, t.MinReferrals, max, t.Rate})
}

type TierProgress struct {
	Tier                int             `json:"tier"`
	Rate                int             `json:"rate"`
	Current             CommissionTier  `json:"current"`
	NextTier            *CommissionTier `json:"next_tier,omitempty"`
	ReferralsToNextTier *int            `json:"referrals_to_next_tier,omitempty"`
	ProgressPercent     float64         `json:"progress_percent"`
}

// NextTierReached reports whether the count already meets the next tier's
// minimum. Stats lag the ledger until the next recompute.
func (p *TierProgress) NextTierReached() bool {
	return p.ReferralsToNextTier != nil && *p.ReferralsToNextTier <= 0
}
