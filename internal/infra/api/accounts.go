package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type accountResponse struct {
	ID                string     `json:"id"`
	Identity          string     `json:"identity,omitempty"`
	IsPrimary         bool       `json:"is_primary"`
	ExpireAt          *time.Time `json:"expire_at,omitempty"`
	Groups            []string   `json:"groups,omitempty"`
	TrafficLimitBytes int64      `json:"traffic_limit_bytes"`
	DeviceLimit       int        `json:"device_limit"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Accounts.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, accountResponse{ID: a.ID, Identity: a.Identity, IsPrimary: a.IsPrimary})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	e, err := s.d.Accounts.Snapshot(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "accountID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := accountResponse{
		ID:                e.AccountID,
		Groups:            e.Groups,
		TrafficLimitBytes: e.TrafficLimitBytes,
		DeviceLimit:       e.DeviceLimit,
	}
	if !e.ExpireAt.IsZero() {
		exp := e.ExpireAt
		resp.ExpireAt = &exp
	}
	writeJSON(w, http.StatusOK, resp)
}
