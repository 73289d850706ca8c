// Package output formats review reports for display or machine consumption.
//
// Four formats are supported:
//   - text: terminal output, one heading per severity with each item's
//     markdown rendered by glamour (default)
//   - json: the full structured report
//   - markdown: collapsible sections per severity, suitable for a PR comment
//   - sarif: SARIF v2.1.0, one region per contiguous run of lines
//
// Use [GetWriter] to obtain a [Writer] for a format string, or
// [WriteReport] to write straight to a file or stdout.
package output
