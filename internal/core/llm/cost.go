package llm

import "strings"

// Cost per 1M tokens (in USD). Approximate list prices; update as pricing changes.
const (
	// OpenAI
	costGPT5PromptPer1M       = 1.25
	costGPT5CompletionPer1M   = 10.00
	costGPT5NanoPromptPer1M   = 0.05
	costGPT5NanoCompletePer1M = 0.40
	costGPT4OPromptPer1M      = 2.50
	costGPT4OCompletionPer1M  = 10.00
	costGPT4OMiniPrompt       = 0.15
	costGPT4OMiniComplete     = 0.60

	// xAI Grok
	costGrok4Prompt   = 3.00
	costGrok4Complete = 15.00

	// Anthropic Claude
	costClaudeHaikuPrompt    = 1.00
	costClaudeHaikuComplete  = 5.00
	costClaudeSonnetPrompt   = 3.00
	costClaudeSonnetComplete = 15.00

	// Google Gemini
	costGeminiFlashPrompt   = 0.10
	costGeminiFlashComplete = 0.40
	costGeminiProPrompt     = 1.25
	costGeminiProComplete   = 10.00

	// Cohere
	costCohereCommandRPrompt   = 0.15
	costCohereCommandRComplete = 0.60

	// OpenRouter varies by upstream model
	costOpenRouterDefaultPrompt   = 0.20
	costOpenRouterDefaultComplete = 0.60

	tokensPerMillion = 1000000.0
)

// EstimateCost returns the approximate USD cost of a request.
func EstimateCost(provider ProviderName, model string, promptTokens, completionTokens int) float64 {
	promptCost, completionCost := getCostRates(provider, model)

	promptUSD := float64(promptTokens) * promptCost / tokensPerMillion
	completionUSD := float64(completionTokens) * completionCost / tokensPerMillion

	return promptUSD + completionUSD
}

func getCostRates(provider ProviderName, model string) (promptRate, completionRate float64) {
	modelLower := strings.ToLower(model)

	switch provider {
	case ProviderOpenAI:
		return getOpenAICostRates(modelLower)
	case ProviderXAI:
		return costGrok4Prompt, costGrok4Complete
	case ProviderAnthropic:
		return getAnthropicCostRates(modelLower)
	case ProviderGoogle:
		return getGoogleCostRates(modelLower)
	case ProviderCohere:
		return costCohereCommandRPrompt, costCohereCommandRComplete
	case ProviderOpenRouter:
		return costOpenRouterDefaultPrompt, costOpenRouterDefaultComplete
	case ProviderMock:
		return 0, 0
	default:
		return costGPT4OMiniPrompt, costGPT4OMiniComplete
	}
}

func getOpenAICostRates(model string) (float64, float64) {
	switch {
	case strings.Contains(model, modelPrefixGPT5) && strings.Contains(model, modelPrefixNano):
		return costGPT5NanoPromptPer1M, costGPT5NanoCompletePer1M
	case strings.Contains(model, modelPrefixGPT5):
		return costGPT5PromptPer1M, costGPT5CompletionPer1M
	case strings.Contains(model, modelPrefixGPT4) && strings.Contains(model, modelPrefixMini):
		return costGPT4OMiniPrompt, costGPT4OMiniComplete
	case strings.Contains(model, modelPrefixGPT4):
		return costGPT4OPromptPer1M, costGPT4OCompletionPer1M
	case strings.Contains(model, modelPrefixGrok):
		return costGrok4Prompt, costGrok4Complete
	default:
		return costGPT4OMiniPrompt, costGPT4OMiniComplete
	}
}

func getAnthropicCostRates(model string) (float64, float64) {
	switch {
	case strings.Contains(model, "haiku"):
		return costClaudeHaikuPrompt, costClaudeHaikuComplete
	case strings.Contains(model, "sonnet"), strings.Contains(model, "opus"):
		return costClaudeSonnetPrompt, costClaudeSonnetComplete
	default:
		return costClaudeHaikuPrompt, costClaudeHaikuComplete
	}
}

func getGoogleCostRates(model string) (float64, float64) {
	switch {
	case strings.Contains(model, "pro"):
		return costGeminiProPrompt, costGeminiProComplete
	case strings.Contains(model, "flash"):
		return costGeminiFlashPrompt, costGeminiFlashComplete
	default:
		return costGeminiFlashPrompt, costGeminiFlashComplete
	}
}
