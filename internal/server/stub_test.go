package server

import (
	"context"
	"strings"
	"sync"

	"github.com/dshills/codecoach/internal/providers"
)

const feedbackReply = `{"language":"go","feedback_points":[{"title":"Loop bound","description":"Off by one.","questions":"What is the last index?","line_numbers":"2-3","code_example":"","summary":"edge","type":"Bug","severity":4}]}`

// stubClassifier answers feedback, grouping and chat requests. Sources
// containing "SLOW" block until the request context ends.
type stubClassifier struct {
	mu       sync.Mutex
	requests []providers.Request
	started  chan struct{}
	err      error
}

func newStub() *stubClassifier {
	return &stubClassifier{started: make(chan struct{}, 16)}
}

func (s *stubClassifier) Name() string  { return "stub" }
func (s *stubClassifier) Model() string { return "stub-1" }

func (s *stubClassifier) Complete(ctx context.Context, req providers.Request) (providers.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return providers.Response{}, err
	}

	switch {
	case req.Schema == nil:
		last := req.Messages[len(req.Messages)-1].Content
		return providers.Response{Content: "coach: " + last}, nil
	case req.Schema.Name == "merge_decisions":
		return providers.Response{Content: `{"merge_groups":[]}`}, nil
	}

	if strings.Contains(req.Messages[0].Content, "SLOW") {
		s.started <- struct{}{}
		<-ctx.Done()
		return providers.Response{}, ctx.Err()
	}
	return providers.Response{Content: feedbackReply}, nil
}

func (s *stubClassifier) chatRequests() []providers.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []providers.Request
	for _, r := range s.requests {
		if r.Schema == nil {
			out = append(out, r)
		}
	}
	return out
}
