package adapter

import "math"

// Usage captures normalized token usage.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add returns the field-wise sum of u and other, saturating at math.MaxInt.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  addCounts(u.InputTokens, other.InputTokens),
		OutputTokens: addCounts(u.OutputTokens, other.OutputTokens),
		TotalTokens:  addCounts(u.TotalTokens, other.TotalTokens),
	}
}

// Sum returns InputTokens+OutputTokens, saturating at math.MaxInt.
func (u Usage) Sum() int {
	return addCounts(u.InputTokens, u.OutputTokens)
}

// addCounts sums two non-negative counts without wrapping.
func addCounts(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// Cost captures normalized cost estimates.
type Cost struct {
	Currency     string  `json:"currency"`
	Amount       float64 `json:"amount"`
	IsEstimate   bool    `json:"is_estimate"`
	PricingModel string  `json:"pricing_model,omitempty"`
}

// Response is the provider-independent result of one generation call.
type Response struct {
	Text       string `json:"text"`
	Usage      Usage  `json:"usage"`
	StopReason string `json:"stop_reason,omitempty"`
	Model      string `json:"model,omitempty"`
}
