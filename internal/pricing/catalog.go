package pricing

// defaultCatalog is the built-in rate table, USD per million tokens.
// Rates track published list prices; NewCalculator overrides let
// deployments correct for negotiated or updated pricing. Within a model
// family the more specific names come first because substring lookup
// takes the first match.
var defaultCatalog = []ModelPricing{
	{Model: "gpt-4o-mini", Provider: "openai", InputPerM: 0.15, OutputPerM: 0.60},
	{Model: "gpt-4o", Provider: "openai", InputPerM: 2.50, OutputPerM: 10.00},
	{Model: "gpt-4-turbo", Provider: "openai", InputPerM: 10.00, OutputPerM: 30.00},
	{Model: "gpt-4.1-mini", Provider: "openai", InputPerM: 0.40, OutputPerM: 1.60},
	{Model: "gpt-4.1-nano", Provider: "openai", InputPerM: 0.10, OutputPerM: 0.40},
	{Model: "gpt-4.1", Provider: "openai", InputPerM: 2.00, OutputPerM: 8.00},
	{Model: "gpt-4-32k", Provider: "openai", InputPerM: 60.00, OutputPerM: 120.00},
	{Model: "gpt-4", Provider: "openai", InputPerM: 30.00, OutputPerM: 60.00},
	{Model: "gpt-3.5-turbo", Provider: "openai", InputPerM: 0.50, OutputPerM: 1.50},
	{Model: "o1-mini", Provider: "openai", InputPerM: 1.10, OutputPerM: 4.40},
	{Model: "o1", Provider: "openai", InputPerM: 15.00, OutputPerM: 60.00},
	{Model: "o3-mini", Provider: "openai", InputPerM: 1.10, OutputPerM: 4.40},

	{Model: "claude-3-5-haiku", Provider: "anthropic", InputPerM: 0.80, OutputPerM: 4.00},
	{Model: "claude-3-5-sonnet", Provider: "anthropic", InputPerM: 3.00, OutputPerM: 15.00},
	{Model: "claude-3-7-sonnet", Provider: "anthropic", InputPerM: 3.00, OutputPerM: 15.00},
	{Model: "claude-3-opus", Provider: "anthropic", InputPerM: 15.00, OutputPerM: 75.00},
	{Model: "claude-3-haiku", Provider: "anthropic", InputPerM: 0.25, OutputPerM: 1.25},
	{Model: "claude-3-sonnet", Provider: "anthropic", InputPerM: 3.00, OutputPerM: 15.00},

	{Model: "gemini-1.5-flash", Provider: "google", InputPerM: 0.075, OutputPerM: 0.30},
	{Model: "gemini-1.5-pro", Provider: "google", InputPerM: 1.25, OutputPerM: 5.00},
	{Model: "gemini-2.0-flash", Provider: "google", InputPerM: 0.10, OutputPerM: 0.40},

	{Model: "mistral-large", Provider: "mistral", InputPerM: 2.00, OutputPerM: 6.00},
	{Model: "mistral-small", Provider: "mistral", InputPerM: 0.20, OutputPerM: 0.60},

	{Model: "llama-3.1-405b", Provider: "meta", InputPerM: 3.50, OutputPerM: 3.50},
	{Model: "llama-3.1-70b", Provider: "meta", InputPerM: 0.90, OutputPerM: 0.90},
	{Model: "llama-3.1-8b", Provider: "meta", InputPerM: 0.20, OutputPerM: 0.20},

	{Model: "command-r-plus", Provider: "cohere", InputPerM: 2.50, OutputPerM: 10.00},
	{Model: "command-r", Provider: "cohere", InputPerM: 0.15, OutputPerM: 0.60},
}
