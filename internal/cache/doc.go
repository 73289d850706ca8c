// Package cache provides a file-based cache for classifier responses.
//
// Entries are keyed by a SHA-256 hash of the provider, model, system prompt,
// and the user content of a request. Each entry file holds the raw model
// reply with its creation time; entries older than the TTL are treated as
// misses and removed lazily. Writes go through renameio so a crashed run
// never leaves a half-written entry behind.
//
// The default directory is $XDG_CACHE_HOME/codecoach (or the OS-appropriate
// equivalent). Sources are redacted before they reach the classifier, so
// nothing stored here contains raw secrets when redaction is on.
package cache
