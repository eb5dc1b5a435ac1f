package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-ledger-api/internal/models"
)

// FallbackPolicy supplies the bill for a student whose grade level has no schedule.
type FallbackPolicy struct {
	Primary decimal.Decimal
	Default decimal.Decimal
}

// DefaultFallbackPolicy returns the stock amounts: 1500 for primary, 2000 otherwise.
func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		Primary: decimal.NewFromInt(1500),
		Default: decimal.NewFromInt(2000),
	}
}

// AmountFor returns the fallback bill for the given school level.
func (p FallbackPolicy) AmountFor(level models.SchoolLevel) decimal.Decimal {
	if level == models.SchoolLevelPrimary {
		return p.Primary
	}
	return p.Default
}
