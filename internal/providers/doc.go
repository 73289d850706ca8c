// Package providers implements the Classifier capability on top of each
// supported LLM provider.
//
// Supported providers: OpenAI (openai-go, native JSON-schema output),
// Anthropic (anthropic-sdk-go), Google Gemini, and Ollama / LM Studio through
// their OpenAI-compatible endpoint.
//
// A Request optionally carries a Schema. Providers with native structured
// output send it as a response format; the others append the schema to the
// system prompt and ask for bare JSON. Callers must still tolerate markdown
// fences around the payload.
//
// The hand-rolled HTTP providers share a retry helper with exponential
// back-off for rate limits and server errors. Cached wraps any Classifier
// with the on-disk response cache.
//
// Use [New] to obtain a Classifier by provider name and model string.
package providers
