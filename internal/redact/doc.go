// Package redact scrubs secrets out of submitted source before it reaches a
// classifier, and out of log records before they are written.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private key headers, AWS credentials, bearer tokens, and
// provider-specific tokens (Anthropic, OpenAI, Google, GitHub, Slack).
// Matches never span a newline, so redacted source keeps its line numbering.
package redact
