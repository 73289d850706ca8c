// Codecoach is a coaching code reviewer backed by LLM providers.
//
// Four coaches (performance, readability, advanced techniques, bugs) review
// a source file in parallel. Overlapping feedback is merged and the result
// is ranked by severity, with deterministic exit codes for CI gating.
//
// Usage:
//
//	codecoach review main.go             # review a file
//	cat main.go | codecoach review       # review stdin
//	codecoach review --rev HEAD~1 a.go   # review a file as of a revision
//	codecoach chat --file main.go --item 2 "why is this slow?"
//	codecoach serve                      # HTTP API for the coaching UI
package main
