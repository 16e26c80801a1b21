package adapter

// ModelPricing holds per-1k-token prices in USD.
type ModelPricing struct {
	InputPer1K  float64 `yaml:"input_per_1k" json:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k" json:"output_per_1k"`
}

// PricingTable maps provider -> model -> pricing. A "default" model entry
// applies to any model of that provider without its own entry.
type PricingTable map[string]map[string]ModelPricing

// EstimateCost prices usage for provider/model. The second return value is
// false when no pricing entry applies.
func EstimateCost(pricing PricingTable, provider, model string, usage Usage) (Cost, bool) {
	entry, ok := pricingFor(pricing, provider, model)
	if !ok {
		return Cost{Currency: "USD"}, false
	}

	inputCost := (float64(usage.InputTokens) / 1000.0) * entry.InputPer1K
	outputCost := (float64(usage.OutputTokens) / 1000.0) * entry.OutputPer1K
	return Cost{
		Currency:     "USD",
		Amount:       inputCost + outputCost,
		IsEstimate:   true,
		PricingModel: "per_1k_tokens",
	}, true
}

func pricingFor(pricing PricingTable, provider, model string) (ModelPricing, bool) {
	if pricing == nil {
		return ModelPricing{}, false
	}
	if providerPricing, ok := pricing[provider]; ok {
		if entry, ok := providerPricing[model]; ok {
			return entry, true
		}
		if entry, ok := providerPricing["default"]; ok {
			return entry, true
		}
	}
	return ModelPricing{}, false
}
