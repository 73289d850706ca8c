package server

import (
	"net/http"
	"strings"

	"github.com/dshills/codecoach/internal/lines"
	"github.com/dshills/codecoach/internal/review"
)

type reviewRequest struct {
	Source string `json:"source"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		report *review.Report
		err    error
	)
	if key := strings.TrimSpace(r.Header.Get(ClientHeader)); key != "" {
		report, err = s.acquireSession(key).Submit(r.Context(), req.Source)
		s.releaseSession(key)
	} else {
		report, err = s.engine.Run(r.Context(), req.Source)
	}
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

type linesRequest struct {
	Expr string `json:"expr"`
}

type linesResponse struct {
	Lines []int       `json:"lines"`
	Label string      `json:"label"`
	Runs  []lines.Run `json:"runs"`
}

func (s *Server) handleLines(w http.ResponseWriter, r *http.Request) {
	var req linesRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	nums := lines.Decode(req.Expr)
	if nums == nil {
		nums = []int{}
	}
	respondJSON(w, http.StatusOK, linesResponse{
		Lines: nums,
		Label: lines.Label(req.Expr),
		Runs:  lines.Runs(nums),
	})
}
