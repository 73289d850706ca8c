// Package source loads the text of a submission: a file on disk, a
// stream such as stdin, or a file as it was at a git revision.
//
// Every loader rejects binary content and inputs over [MaxBytes]; the
// classifier sees the whole source in every request, so anything larger
// is refused before a run starts.
package source
