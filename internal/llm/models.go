package llm

import "strings"

// Known OpenAI chat models.
const (
	ModelGPT41Mini = "gpt-4.1-mini"
	ModelGPT4oMini = "gpt-4o-mini"
	ModelGPT41Nano = "gpt-4.1-nano"
	ModelGPT5Mini  = "gpt-5-mini"
)

// noTemperaturePrefixes lists reasoning model families that reject a
// temperature parameter.
var noTemperaturePrefixes = []string{"gpt-5", "o1", "o3", "o4"}

// SupportsTemperature reports whether model accepts a temperature.
func SupportsTemperature(model string) bool {
	m := strings.ToLower(model)
	for _, p := range noTemperaturePrefixes {
		if strings.HasPrefix(m, p) {
			return false
		}
	}
	return true
}

// ApplyCapabilities drops request fields the target model does not accept.
func ApplyCapabilities(req CompletionRequest) CompletionRequest {
	if !SupportsTemperature(req.Model) {
		req.Temperature = nil
	}
	return req
}

// ProviderFor returns the provider that serves model.
func ProviderFor(model string) string {
	if strings.HasPrefix(strings.ToLower(model), "gemini") {
		return "gemini"
	}
	return "openai"
}
