package budget

// Budget is a bounded token allowance for retrieved context.
// Used + Remaining == Max holds at every observable point.
type Budget struct {
	MaxTokens       int
	UsedTokens      int
	RemainingTokens int
}

// EstimateTokens approximates the token count of text. Four characters per
// token is close enough for pruning decisions; exact counts are not a goal.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// CanAdd reports whether text fits in the remaining budget.
func (b *Budget) CanAdd(text string) bool {
	return EstimateTokens(text) <= b.RemainingTokens
}

// Add charges text against the budget. The caller must have checked CanAdd;
// Add does not truncate.
func (b *Budget) Add(text string) {
	n := EstimateTokens(text)
	b.UsedTokens += n
	b.RemainingTokens = b.MaxTokens - b.UsedTokens
}

// AddClamped charges text against the budget, clamped to what remains. Used
// for content that ships even when it overshoots, such as the single most
// relevant item kept past the limit; Used + Remaining == Max still holds.
func (b *Budget) AddClamped(text string) {
	n := EstimateTokens(text)
	if n > b.RemainingTokens {
		n = b.RemainingTokens
	}
	b.UsedTokens += n
	b.RemainingTokens = b.MaxTokens - b.UsedTokens
}

// NearLimit reports whether 90% or more of the budget is used.
func (b *Budget) NearLimit() bool {
	return b.MaxTokens > 0 && b.UsedTokens*10 >= b.MaxTokens*9
}

// OverLimit reports whether the budget is exhausted.
func (b *Budget) OverLimit() bool {
	return b.UsedTokens >= b.MaxTokens
}
