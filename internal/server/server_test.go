package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codecoach/internal/logging"
	"github.com/dshills/codecoach/internal/metrics"
	"github.com/dshills/codecoach/internal/review"
	"github.com/dshills/codecoach/internal/thread"
)

func newTestServer(t *testing.T, stub *stubClassifier, opts ...Option) *httptest.Server {
	t.Helper()
	engine := &review.Engine{
		Classifier: stub,
		Categories: []review.Category{review.CategoryBug},
		Logger:     logging.NewNop(),
	}
	opts = append([]Option{WithLogger(logging.NewNop()), WithAllowedOrigins([]string{"http://localhost:3000"})}, opts...)
	srv := httptest.NewServer(New(engine, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, body any, header http.Header) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, newStub())
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "stub", body["provider"])
}

func TestReview(t *testing.T) {
	srv := newTestServer(t, newStub())
	resp := post(t, srv.URL+"/api/v1/reviews", reviewRequest{Source: "for i := 0; i <= n; i++ {\n  xs[i]\n}"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	report := decode[review.Report](t, resp)
	assert.Equal(t, "go", report.Language)
	require.Len(t, report.Items, 1)
	assert.Equal(t, "Loop bound", report.Items[0].Title)
	assert.Equal(t, 1, report.Summary.Counts[4])
	assert.NotEmpty(t, report.RunID)
}

func TestReview_EmptySource(t *testing.T) {
	srv := newTestServer(t, newStub())
	resp := post(t, srv.URL+"/api/v1/reviews", reviewRequest{Source: "   "}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, review.ErrEmptySource.Error(), body["error"])
}

func TestReview_BadBody(t *testing.T) {
	srv := newTestServer(t, newStub())
	resp, err := http.Post(srv.URL+"/api/v1/reviews", "application/json", strings.NewReader(`{"nope":1}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReview_ClassifierFailureStillReports(t *testing.T) {
	stub := newStub()
	stub.err = errors.New("provider down")
	srv := newTestServer(t, stub)

	// A category failure is recovered; grouping is skipped on an empty pool.
	resp := post(t, srv.URL+"/api/v1/reviews", reviewRequest{Source: "x := 1"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[review.Report](t, resp)
	assert.Empty(t, report.Items)
	require.Len(t, report.Outcomes, 1)
	assert.False(t, report.Outcomes[0].OK())
}

func TestReview_SupersededBySameClient(t *testing.T) {
	stub := newStub()
	srv := newTestServer(t, stub)
	header := http.Header{ClientHeader: []string{"tab-1"}}

	first := make(chan *http.Response, 1)
	go func() {
		first <- post(t, srv.URL+"/api/v1/reviews", reviewRequest{Source: "SLOW"}, header)
	}()

	select {
	case <-stub.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first review never reached the classifier")
	}

	second := post(t, srv.URL+"/api/v1/reviews", reviewRequest{Source: "x := 1"}, header)
	assert.Equal(t, http.StatusOK, second.StatusCode)
	second.Body.Close()

	select {
	case resp := <-first:
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		resp.Body.Close()
	case <-time.After(5 * time.Second):
		t.Fatal("first review did not finish")
	}
}

func TestReview_SessionsReleasedWhenIdle(t *testing.T) {
	stub := newStub()
	engine := &review.Engine{
		Classifier: stub,
		Categories: []review.Category{review.CategoryBug},
		Logger:     logging.NewNop(),
	}
	s := New(engine, WithLogger(logging.NewNop()))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	for i := range 5 {
		header := http.Header{ClientHeader: []string{fmt.Sprintf("client-%d", i)}}
		resp := post(t, srv.URL+"/api/v1/reviews", reviewRequest{Source: "x := 1"}, header)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, 0, s.sessionCount())

	header := http.Header{ClientHeader: []string{"tab-1"}}
	first := make(chan *http.Response, 1)
	go func() {
		first <- post(t, srv.URL+"/api/v1/reviews", reviewRequest{Source: "SLOW"}, header)
	}()
	select {
	case <-stub.started:
	case <-time.After(5 * time.Second):
		t.Fatal("review never reached the classifier")
	}
	assert.Equal(t, 1, s.sessionCount())

	second := post(t, srv.URL+"/api/v1/reviews", reviewRequest{Source: "x := 1"}, header)
	second.Body.Close()
	resp := <-first
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 0, s.sessionCount())
}

func TestLines(t *testing.T) {
	srv := newTestServer(t, newStub())
	resp := post(t, srv.URL+"/api/v1/lines", linesRequest{Expr: "3-5,9,x"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[linesResponse](t, resp)
	assert.Equal(t, []int{3, 4, 5, 9}, body.Lines)
	assert.Equal(t, "Lines 3-5,9,x", body.Label)
	require.Len(t, body.Runs, 2)
	assert.Equal(t, 3, body.Runs[0].Start)
	assert.Equal(t, 5, body.Runs[0].End)
}

func TestLines_Empty(t *testing.T) {
	srv := newTestServer(t, newStub())
	resp := post(t, srv.URL+"/api/v1/lines", linesRequest{Expr: ""}, nil)
	body := decode[linesResponse](t, resp)
	assert.NotNil(t, body.Lines)
	assert.Empty(t, body.Lines)
}

func TestThreads_Conversation(t *testing.T) {
	stub := newStub()
	store := thread.NewMemoryStore()
	srv := newTestServer(t, stub, WithThreads(store))

	resp := post(t, srv.URL+"/api/v1/threads", createThreadRequest{
		Source:    "x := 1",
		ItemTitle: "Magic number",
		Item:      "### Magic number",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[thread.Thread](t, resp)
	require.NotEmpty(t, created.ID)

	msgURL := fmt.Sprintf("%s/api/v1/threads/%s/messages", srv.URL, created.ID)
	resp = post(t, msgURL, messageRequest{Message: "why?"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[messageResponse](t, resp)
	assert.Equal(t, "coach: why?", first.Reply)
	assert.Len(t, first.Thread.Turns, 2)

	resp = post(t, msgURL, messageRequest{Message: "how?"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	chats := stub.chatRequests()
	require.Len(t, chats, 2)
	// source, item, prior user turn, new message
	second := chats[1].Messages
	require.Len(t, second, 4)
	assert.Equal(t, "### Magic number", second[1].Content)
	assert.Equal(t, "why?", second[2].Content)
	assert.Equal(t, "how?", second[3].Content)

	getResp, err := http.Get(fmt.Sprintf("%s/api/v1/threads/%s", srv.URL, created.ID))
	require.NoError(t, err)
	got := decode[thread.Thread](t, getResp)
	assert.Len(t, got.Turns, 4)
	assert.Equal(t, []string{"why?", "how?"}, got.UserMessages())
}

func TestThreads_Errors(t *testing.T) {
	srv := newTestServer(t, newStub())

	resp, err := http.Get(srv.URL + "/api/v1/threads/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = post(t, srv.URL+"/api/v1/threads/missing/messages", messageRequest{Message: "hi"}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = post(t, srv.URL+"/api/v1/threads", createThreadRequest{Source: "x", Item: ""}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, srv.URL+"/api/v1/threads", createThreadRequest{Source: "x", Item: "i"}, nil)
	th := decode[thread.Thread](t, resp)
	resp = post(t, srv.URL+"/api/v1/threads/"+th.ID+"/messages", messageRequest{Message: " "}, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, newStub())
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/reviews", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	rec := metrics.New()
	srv := newTestServer(t, newStub(), WithMetrics(rec))

	resp := post(t, srv.URL+"/api/v1/lines", linesRequest{Expr: "1"}, nil)
	resp.Body.Close()

	// request metrics are recorded after the response is flushed
	require.Eventually(t, func() bool {
		mresp, err := http.Get(srv.URL + "/metrics")
		if err != nil {
			return false
		}
		defer mresp.Body.Close()
		body, err := io.ReadAll(mresp.Body)
		return err == nil && strings.Contains(string(body), `route="/api/v1/lines"`)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestMetricsEndpoint_AbsentWithoutRecorder(t *testing.T) {
	srv := newTestServer(t, newStub())
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
