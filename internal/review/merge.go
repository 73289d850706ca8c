package review

import "fmt"

// Merge collapses each group to its most severe member and appends every
// item no group mentions, in batch order. The first title in a group wins
// severity ties. Titles index items later-wins, so with duplicate titles
// the last such item is the one a group resolves to and the earlier ones
// are consumed with it. A title already claimed by an earlier group is
// skipped, and a group left with no unclaimed titles yields nothing. A
// title missing from items fails the whole merge.
func Merge(items []Item, groups []MergeGroup) ([]Item, error) {
	index := make(map[string]Item, len(items))
	for _, it := range items {
		index[it.Title] = it
	}

	consumed := make(map[string]bool)
	result := make([]Item, 0, len(items))
	for _, g := range groups {
		var (
			best  Item
			found bool
		)
		for _, title := range g {
			it, ok := index[title]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingTitle, title)
			}
			if consumed[title] {
				continue
			}
			if !found || it.Severity > best.Severity {
				best, found = it, true
			}
		}
		for _, title := range g {
			consumed[title] = true
		}
		if found {
			result = append(result, best)
		}
	}

	for _, it := range items {
		if !consumed[it.Title] {
			result = append(result, it)
		}
	}
	return result, nil
}
