package reasoning

// Pricing holds per-MTok USD rates for one model.
type Pricing struct {
	InputPerMTok      float64
	OutputPerMTok     float64
	CacheReadPerMTok  float64
	CacheWritePerMTok float64
}

// pricingTable maps model identifiers to their published rates. Unknown
// models fall back to the capable-tier rates so costs are never undercounted.
var pricingTable = map[string]Pricing{
	"claude-sonnet-4-5-20250929": {
		InputPerMTok:      3.0,
		OutputPerMTok:     15.0,
		CacheReadPerMTok:  0.30,
		CacheWritePerMTok: 3.75,
	},
	"claude-haiku-4-5-20251001": {
		InputPerMTok:      1.0,
		OutputPerMTok:     5.0,
		CacheReadPerMTok:  0.10,
		CacheWritePerMTok: 1.25,
	},
}

var fallbackPricing = pricingTable["claude-sonnet-4-5-20250929"]

// Cost computes the USD cost of one call from its token usage.
func Cost(model string, usage TokenUsage) float64 {
	p, ok := pricingTable[model]
	if !ok {
		p = fallbackPricing
	}

	const mtok = 1_000_000
	return float64(usage.InputTokens)/mtok*p.InputPerMTok +
		float64(usage.OutputTokens)/mtok*p.OutputPerMTok +
		float64(usage.CacheReadTokens)/mtok*p.CacheReadPerMTok +
		float64(usage.CacheWriteTokens)/mtok*p.CacheWritePerMTok
}
