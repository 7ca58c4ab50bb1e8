package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vpn-billing/internal/infra/logging"
	red "vpn-billing/internal/infra/redis"
	"vpn-billing/internal/usecase"
)

type fulfillResponse struct {
	Applied     bool       `json:"applied"`
	Kind        string     `json:"kind"`
	OrderID     string     `json:"order_id"`
	AccountID   string     `json:"account_id,omitempty"`
	Provisioned bool       `json:"provisioned,omitempty"`
	ExpireAt    *time.Time `json:"expire_at,omitempty"`
}

func toFulfillResponse(res *usecase.FulfillResult) fulfillResponse {
	return fulfillResponse{
		Applied:     res.Applied,
		Kind:        string(res.Kind),
		OrderID:     res.OrderID,
		AccountID:   res.AccountID,
		Provisioned: res.Provisioned,
		ExpireAt:    res.ExpireAt,
	}
}

// allowReconcile applies the per-user reconcile limit. Limiter errors fail open.
func (s *Server) allowReconcile(w http.ResponseWriter, r *http.Request, userID string) bool {
	if s.d.Limiter == nil || s.d.ReconcileLimit <= 0 {
		return true
	}
	ok, err := s.d.Limiter.Allow(r.Context(), red.UserActionKey(userID, "reconcile"), s.d.ReconcileLimit, s.d.ReconcileWindow)
	if err != nil {
		l := logging.With(r.Context(), s.log)
		l.Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	if !ok {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many reconcile requests")
		return false
	}
	return true
}

func (s *Server) handleReconcileUser(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	if !s.allowReconcile(w, r, userID) {
		return
	}
	res, err := s.d.Reconcile.ReconcileUser(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReconcilePayment(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	if !s.allowReconcile(w, r, userID) {
		return
	}
	res, err := s.d.Reconcile.ReconcilePayment(r.Context(), userID, chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePayWithBalance(w http.ResponseWriter, r *http.Request) {
	res, err := s.d.Payments.PayWithBalance(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFulfillResponse(res))
}
