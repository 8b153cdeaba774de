package loyalty

// Tier is a loyalty level derived from lifetime spend.
type Tier string

const (
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
	TierDiamond  Tier = "Diamond"
)

var tierThresholds = []struct {
	below float64
	tier  Tier
}{
	{1000, TierBronze},
	{2000, TierSilver},
	{3000, TierGold},
	{5000, TierPlatinum},
}

// TierFor returns the tier for a lifetime spend in euros. Boundaries belong
// to the higher tier: exactly 1000 is Silver.
func TierFor(totalSpent float64) Tier {
	for _, t := range tierThresholds {
		if totalSpent < t.below {
			return t.tier
		}
	}
	return TierDiamond
}

// Rank orders tiers from Bronze (0) to Diamond (4). Unknown tiers rank -1.
func (t Tier) Rank() int {
	switch t {
	case TierBronze:
		return 0
	case TierSilver:
		return 1
	case TierGold:
		return 2
	case TierPlatinum:
		return 3
	case TierDiamond:
		return 4
	}
	return -1
}
