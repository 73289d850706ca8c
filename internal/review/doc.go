// Package review turns a source snippet into merged, severity-ranked
// coaching feedback.
//
// A submission runs in four stages. [Analyze] fans out one classification
// request per [Category], each with its coach [Profile], and pools the
// returned items sorted by severity. [FindSimilar] asks the classifier to
// partition the pool into groups of titles describing the same root
// problem. [Merge] collapses each group to its most severe member, and
// [Bucket] orders the result by severity for display.
//
// [Engine] wires the stages together and produces a [Report]; [Session]
// cancels a superseded submission; [Continue] drives follow-up questions
// about one item.
package review
