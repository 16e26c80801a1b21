package adapter

import (
	"encoding/json"
	"math"
	"strings"
)

// NormalizeUsage maps a provider's raw usage record onto Usage.
//
// Provider tags are matched case-insensitively:
//   - "bedrock" reads inputTokens/outputTokens and always sums the total.
//   - "openai" and "ollama" read prompt_tokens/completion_tokens (falling
//     back to inputTokens/outputTokens) and take total_tokens as reported.
//   - anything else probes input_tokens, inputTokens, prompt_tokens (and the
//     matching output keys) in that order, trusting total_tokens when present
//     and summing otherwise.
//
// Missing, negative, or non-numeric values count as 0. It never fails.
func NormalizeUsage(raw map[string]any, provider string) Usage {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "bedrock":
		in := readCount(raw, "inputTokens")
		out := readCount(raw, "outputTokens")
		return Usage{InputTokens: in, OutputTokens: out, TotalTokens: addCounts(in, out)}
	case "openai", "ollama":
		return Usage{
			InputTokens:  readFirst(raw, "prompt_tokens", "inputTokens"),
			OutputTokens: readFirst(raw, "completion_tokens", "outputTokens"),
			TotalTokens:  readCount(raw, "total_tokens"),
		}
	default:
		in := readFirst(raw, "input_tokens", "inputTokens", "prompt_tokens")
		out := readFirst(raw, "output_tokens", "outputTokens", "completion_tokens")
		total, ok := lookupCount(raw, "total_tokens")
		if !ok {
			total = addCounts(in, out)
		}
		return Usage{InputTokens: in, OutputTokens: out, TotalTokens: total}
	}
}

func readCount(raw map[string]any, key string) int {
	n, _ := lookupCount(raw, key)
	return n
}

func readFirst(raw map[string]any, keys ...string) int {
	for _, key := range keys {
		if n, ok := lookupCount(raw, key); ok {
			return n
		}
	}
	return 0
}

// lookupCount reports the value under key and whether it was a usable count.
func lookupCount(raw map[string]any, key string) (int, bool) {
	if raw == nil {
		return 0, false
	}
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, false
	}
	n, ok := toCount(v)
	if !ok || n < 0 {
		return 0, false
	}
	return n, true
}

func toCount(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		if uint64(n) > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float32:
		return floatCount(float64(n))
	case float64:
		return floatCount(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return toCount(i)
		}
		if f, err := n.Float64(); err == nil {
			return floatCount(f)
		}
		return 0, false
	default:
		return 0, false
	}
}

func floatCount(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt {
		return 0, false
	}
	return int(f), true
}
