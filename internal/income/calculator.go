// Package income is the pure rate/award computation layer. It holds no
// state and performs no storage access, which keeps every function
// directly testable.
package income

import "github.com/shopspring/decimal"

// ComputeAward returns round(base * forumRate * groupRate, precision).
//
// A rate of 0 on either dimension should short-circuit the caller into
// skipping the ledger write entirely rather than buffering a zero award;
// ShouldSkip expresses that contract.
func ComputeAward(base, forumRate, groupRate decimal.Decimal, precision int32) decimal.Decimal {
	return base.Mul(forumRate).Mul(groupRate).Round(precision)
}

// ShouldSkip reports whether an award computation can be skipped outright:
// a zero base or a zero rate on either dimension always produces a zero
// award, and skipping avoids an unnecessary buffer entry.
func ShouldSkip(base, forumRate, groupRate decimal.Decimal) bool {
	return base.IsZero() || forumRate.IsZero() || groupRate.IsZero()
}

// CharacterBonus returns the per-character bonus for a new text: zero when
// the visible character count (markup and quotes stripped) is below
// minChars, otherwise count * perChar. The result is not rounded here;
// the ledger applies the configured precision when the award lands.
func CharacterBonus(text string, minChars int, perChar decimal.Decimal) decimal.Decimal {
	if perChar.IsZero() {
		return decimal.Zero
	}
	count := VisibleLength(text)
	if count < minChars {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(count)).Mul(perChar)
}

// EditCharacterBonus returns the bonus for an edit: the signed difference
// between new and old visible character counts times perChar, so an edit
// only pays (or charges) for the marginal change. Counts below minChars
// contribute zero on their side of the difference.
func EditCharacterBonus(oldText, newText string, minChars int, perChar decimal.Decimal) decimal.Decimal {
	if perChar.IsZero() {
		return decimal.Zero
	}

	oldCount := VisibleLength(oldText)
	if oldCount < minChars {
		oldCount = 0
	}
	newCount := VisibleLength(newText)
	if newCount < minChars {
		newCount = 0
	}

	return decimal.NewFromInt(int64(newCount - oldCount)).Mul(perChar)
}
