package llm

import "strings"

// costPerToken stores per-1K-token pricing for known models.
// Prices in USD per 1K tokens: [input, output].
var costPerToken = map[string][2]float64{
	"gpt-4":         {0.03, 0.06},
	"gpt-4-32k":     {0.06, 0.12},
	"gpt-4-turbo":   {0.01, 0.03},
	"gpt-4o":        {0.005, 0.015},
	"gpt-4o-mini":   {0.00015, 0.0006},
	"gpt-35-turbo":  {0.0005, 0.0015},
	"gpt-3.5-turbo": {0.0005, 0.0015},
}

// CalculateCost estimates the USD cost of a call. Dated model names such as
// "gpt-4o-2024-05-13" are priced as their longest known prefix.
func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	prices, ok := costPerToken[model]
	if !ok {
		best := ""
		for name := range costPerToken {
			if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
				best = name
			}
		}
		if best == "" {
			return 0
		}
		prices = costPerToken[best]
	}
	inputCost := float64(inputTokens) / 1000.0 * prices[0]
	outputCost := float64(outputTokens) / 1000.0 * prices[1]
	return inputCost + outputCost
}
