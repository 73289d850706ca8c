package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codecoach/internal/review"
)

func TestRecorder_CategoryDone(t *testing.T) {
	r := New()
	r.CategoryDone(review.CategoryOutcome{Category: review.CategoryBug, Items: 3, DurationMs: 1500})
	r.CategoryDone(review.CategoryOutcome{Category: review.CategoryBug, Err: "boom"})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.categories.WithLabelValues("Bug", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.categories.WithLabelValues("Bug", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.categoryItems.WithLabelValues("Bug")))
}

func TestRecorder_GroupingAndSubmission(t *testing.T) {
	r := New()
	r.GroupingDone(2, time.Second, nil)
	r.GroupingDone(0, time.Second, errors.New("bad json"))
	r.SubmissionDone(&review.Report{}, time.Second, nil)
	r.SubmissionDone(nil, time.Second, fmt.Errorf("wrapped: %w", review.ErrSuperseded))
	r.SubmissionDone(nil, time.Second, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.groupings.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.groupings.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.groupsFound))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.submissions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.submissions.WithLabelValues("superseded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.submissions.WithLabelValues("error")))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.ObserveHTTP(http.MethodPost, "/api/v1/reviews", http.StatusOK, 10*time.Millisecond)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `codecoach_http_requests_total{method="POST",route="/api/v1/reviews",status="200"} 1`), string(body))
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.SubmissionDone(nil, time.Second, nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.submissions.WithLabelValues("ok")))
}
