// Package lines decodes the compact line-range expressions attached to
// feedback items ("3,4,10-15") into explicit line numbers.
//
// Decoding is permissive: malformed tokens contribute nothing instead of
// failing, since highlighting is best effort. The same decoder drives merge
// addressing, terminal highlighting, and SARIF region output.
package lines
