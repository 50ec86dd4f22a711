package perdiem

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/perdin/internal/domain/entity"
)

// Rule names recorded on each trip request
const (
	RuleForeign      = "foreign"
	RuleDayTrip      = "day_trip"
	RuleSameProvince = "same_province"
	RuleSameIsland   = "same_island"
	RuleInterIsland  = "inter_island"
)

// Leg is the journey a rule is evaluated against
type Leg struct {
	Origin      *entity.City
	Destination *entity.City
	DistanceKm  float64
}

// Rule is one allowance tier. Rules are evaluated in order and the first
// match sets the per-day amount.
type Rule struct {
	Name   string
	PerDay decimal.Decimal
	Match  func(Leg) bool
}

// Rules builds the ordered tier table for cfg. The last rule always matches.
func Rules(cfg Config) []Rule {
	return []Rule{
		{
			Name:   RuleForeign,
			PerDay: cfg.ForeignUSDPerDay.Mul(cfg.USDToLocalRate),
			Match:  func(l Leg) bool { return l.Destination.Foreign },
		},
		{
			Name:   RuleDayTrip,
			PerDay: decimal.Zero,
			Match:  func(l Leg) bool { return !(l.DistanceKm > cfg.DayTripMaxKm) },
		},
		{
			Name:   RuleSameProvince,
			PerDay: cfg.SameProvincePerDay,
			Match:  func(l Leg) bool { return sameRegion(l.Origin.Province, l.Destination.Province) },
		},
		{
			Name:   RuleSameIsland,
			PerDay: cfg.SameIslandPerDay,
			Match:  func(l Leg) bool { return sameRegion(l.Origin.Island, l.Destination.Island) },
		},
		{
			Name:   RuleInterIsland,
			PerDay: cfg.InterIslandPerDay,
			Match:  func(Leg) bool { return true },
		},
	}
}

func sameRegion(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
