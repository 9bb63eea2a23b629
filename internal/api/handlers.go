package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/httputil"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/service/ledger"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.Stats(r.Context(), time.Now())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}

type replyRequest struct {
	Address string `json:"address"`
}

// handleReply is the reply webhook: marking a contact replied
// permanently removes it from follow-up eligibility. Idempotent, and
// soft on unknown addresses so upstream webhook providers never retry
// forever over a contact we simply never wrote.
func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if !domain.ValidAddress(req.Address) {
		httputil.BadRequest(w, "invalid address")
		return
	}

	err := s.ledger.MarkReplied(r.Context(), req.Address)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		logger.Info("reply for unknown contact",
			"address", logger.RedactAddress(req.Address))
		httputil.OK(w, map[string]string{"status": "unknown_contact"})
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, map[string]string{"status": "replied"})
	}
}

type contactResponse struct {
	Contact *domain.Contact        `json:"contact"`
	State   domain.ContactState    `json:"state"`
	History []domain.OutreachEvent `json:"history"`
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	contact, err := s.ledger.Get(r.Context(), address)
	if errors.Is(err, ledger.ErrNotFound) {
		httputil.NotFound(w, "contact not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	history, err := s.ledger.History(r.Context(), address)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, contactResponse{
		Contact: contact,
		State:   contact.State(),
		History: history,
	})
}
