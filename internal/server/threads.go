package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dshills/codecoach/internal/redact"
	"github.com/dshills/codecoach/internal/review"
	"github.com/dshills/codecoach/internal/thread"
)

type createThreadRequest struct {
	Source    string `json:"source"`
	ItemTitle string `json:"itemTitle"`
	Item      string `json:"item"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Reply  string        `json:"reply"`
	Thread thread.Thread `json:"thread"`
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		s.respondErr(w, r, review.ErrEmptySource)
		return
	}
	if strings.TrimSpace(req.Item) == "" {
		respondError(w, http.StatusBadRequest, "item is required")
		return
	}

	src := req.Source
	if s.engine.Redact {
		src, _ = redact.Source(src)
	}
	t, err := s.threads.Create(r.Context(), thread.Thread{
		Source:    src,
		ItemTitle: req.ItemTitle,
		Item:      req.Item,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	t, err := s.threads.Get(r.Context(), chi.URLParam(r, "threadID"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleThreadMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := chi.URLParam(r, "threadID")
	t, err := s.threads.Get(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	reply, err := review.Continue(r.Context(), s.engine.Classifier, t.Source, t.Item, t.UserMessages(), req.Message, s.conversation)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	turns := []thread.Turn{
		{Role: thread.RoleUser, Content: req.Message},
		{Role: thread.RoleAssistant, Content: reply},
	}
	if err := s.threads.Append(r.Context(), id, turns...); err != nil {
		s.respondErr(w, r, err)
		return
	}
	t, err = s.threads.Get(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Reply: reply, Thread: t})
}
