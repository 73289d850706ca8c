package review

import "sort"

// SeverityBucket holds the items sharing one severity value.
type SeverityBucket struct {
	Severity int    `json:"severity"`
	Label    string `json:"label"`
	Items    []Item `json:"items"`
}

// Bucket partitions items by severity, buckets highest first. Items keep
// their order within a bucket. Out-of-range severities get their own
// bucket.
func Bucket(items []Item) []SeverityBucket {
	pos := make(map[int]int)
	var buckets []SeverityBucket
	for _, it := range items {
		i, ok := pos[it.Severity]
		if !ok {
			i = len(buckets)
			pos[it.Severity] = i
			buckets = append(buckets, SeverityBucket{Severity: it.Severity, Label: SeverityLabel(it.Severity)})
		}
		buckets[i].Items = append(buckets[i].Items, it)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Severity > buckets[j].Severity
	})
	return buckets
}

// Flatten returns the items of buckets in display order.
func Flatten(buckets []SeverityBucket) []Item {
	var out []Item
	for _, b := range buckets {
		out = append(out, b.Items...)
	}
	return out
}
