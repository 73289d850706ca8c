package review

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dshills/codecoach/internal/providers"
)

// reply scripts one classifier answer.
type reply struct {
	content string
	err     error
	wait    <-chan struct{} // block until closed (or ctx done)
}

// fakeClassifier answers feedback requests per category, grouping requests
// and conversation requests from scripts. Unscripted categories fail.
type fakeClassifier struct {
	mu         sync.Mutex
	categories map[Category][]reply // consumed in order; last one repeats
	grouping   reply
	chat       reply
	requests   []providers.Request
	inFlight   int
	maxFlight  int
}

func newFake() *fakeClassifier {
	return &fakeClassifier{
		categories: make(map[Category][]reply),
		grouping:   reply{content: `{"merge_groups":[]}`},
	}
}

func (f *fakeClassifier) Name() string  { return "fake" }
func (f *fakeClassifier) Model() string { return "fake-1" }

func (f *fakeClassifier) on(c Category, replies ...reply) *fakeClassifier {
	f.categories[c] = replies
	return f
}

func (f *fakeClassifier) Complete(ctx context.Context, req providers.Request) (providers.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	r := f.pick(req)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if r.wait != nil {
		select {
		case <-r.wait:
		case <-ctx.Done():
			return providers.Response{}, ctx.Err()
		}
	}
	if r.err != nil {
		return providers.Response{}, r.err
	}
	return providers.Response{Content: r.content, TokensUsed: 1}, nil
}

// pick is called with f.mu held.
func (f *fakeClassifier) pick(req providers.Request) reply {
	switch req.Schema {
	case mergeSchema:
		return f.grouping
	case feedbackSchema:
		c := categoryOf(req.System)
		rs := f.categories[c]
		if len(rs) == 0 {
			return reply{err: errors.New("no script for " + string(c))}
		}
		r := rs[0]
		if len(rs) > 1 {
			f.categories[c] = rs[1:]
		}
		return r
	default:
		return f.chat
	}
}

func (f *fakeClassifier) requestsFor(schema *providers.Schema) []providers.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []providers.Request
	for _, r := range f.requests {
		if r.Schema == schema {
			out = append(out, r)
		}
	}
	return out
}

func categoryOf(system string) Category {
	for c, p := range DefaultProfiles() {
		if strings.Contains(system, `only on "`+p.Area+`"`) {
			return c
		}
	}
	return ""
}

func feedbackJSON(t *testing.T, language string, items ...Item) string {
	t.Helper()
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(feedbackList{Language: language, FeedbackPoints: items})
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func groupsJSON(t *testing.T, groups ...[]string) string {
	t.Helper()
	if groups == nil {
		groups = [][]string{}
	}
	data, err := json.Marshal(mergeDecisions{MergeGroups: groups})
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func item(title string, cat Category, sev int, lines string) Item {
	return Item{
		Title:       title,
		Description: "about " + title,
		LineNumbers: lines,
		Category:    cat,
		Severity:    sev,
	}
}

func titles(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}
