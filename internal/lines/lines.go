package lines

import (
	"strconv"
	"strings"
)

// MaxSpan bounds how many lines a single "start-end" token may expand to.
// Wider tokens are treated as malformed.
const MaxSpan = 1 << 16

// Decode expands expr into line numbers in the order written. Ranges expand
// ascending and inclusive; a range whose end is below its start expands to
// nothing. Overlapping parts produce duplicates.
func Decode(expr string) []int {
	var out []int
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if startStr, endStr, ok := strings.Cut(part, "-"); ok {
			// "3-5-7" reads as 3-5, the trailing segment is ignored.
			endStr, _, _ = strings.Cut(endStr, "-")
			start, err1 := strconv.Atoi(strings.TrimSpace(startStr))
			end, err2 := strconv.Atoi(strings.TrimSpace(endStr))
			if err1 != nil || err2 != nil || end-start >= MaxSpan {
				continue
			}
			for i := start; i <= end; i++ {
				out = append(out, i)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// First returns the first decoded line of expr.
func First(expr string) (int, bool) {
	nums := Decode(expr)
	if len(nums) == 0 {
		return 0, false
	}
	return nums[0], true
}

// Label renders expr for display: "Line 4" for a single line, "Lines 3-5"
// when the expression names a range or a list.
func Label(expr string) string {
	if strings.ContainsAny(expr, "-,") {
		return "Lines " + expr
	}
	return "Line " + expr
}

// Run is a contiguous block of lines, inclusive on both ends.
type Run struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Runs collapses nums into contiguous ascending runs. Input order is kept:
// a run breaks whenever the next number is not exactly one more than the
// previous, so duplicates and descending steps start a new run.
func Runs(nums []int) []Run {
	var runs []Run
	for _, n := range nums {
		if len(runs) > 0 && runs[len(runs)-1].End+1 == n {
			runs[len(runs)-1].End = n
			continue
		}
		runs = append(runs, Run{Start: n, End: n})
	}
	return runs
}

// Contains reports whether line is addressed by expr.
func Contains(expr string, line int) bool {
	for _, n := range Decode(expr) {
		if n == line {
			return true
		}
	}
	return false
}
