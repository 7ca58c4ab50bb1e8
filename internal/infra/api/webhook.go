package api

import (
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"vpn-billing/internal/domain/ports/adapter"
	"vpn-billing/internal/infra/logging"
	"vpn-billing/internal/infra/metrics"
)

const maxWebhookBody = 1 << 20

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "provider")

	req, err := readWebhook(r, s.d.Proxies)
	if err != nil {
		metrics.ObserveWebhook(name, "rejected", "unreadable", time.Since(start).Seconds())
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	out, err := s.d.Payments.HandleWebhook(r.Context(), name, req)
	if err != nil {
		status, reason := classify(err)
		if status < http.StatusInternalServerError {
			status = out.Status
		}
		l := logging.With(r.Context(), s.log)
		l.Warn().Err(err).Str("provider", name).Int("status", status).Msg("webhook not fulfilled")
		metrics.ObserveWebhook(name, "rejected", reason, time.Since(start).Seconds())
		writeText(w, status, http.StatusText(status))
		return
	}

	result := "applied"
	if out.Result != nil && !out.Result.Applied {
		result = "duplicate"
	}
	metrics.ObserveWebhook(name, result, "", time.Since(start).Seconds())
	writeText(w, out.Status, out.Body)
}

// readWebhook captures the raw body and merges query and urlencoded form values.
func readWebhook(r *http.Request, proxies *TrustedProxies) (adapter.WebhookRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return adapter.WebhookRequest{}, err
	}
	form := r.URL.Query()
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/x-www-form-urlencoded" {
		vals, err := url.ParseQuery(string(body))
		if err != nil {
			return adapter.WebhookRequest{}, err
		}
		for k, v := range vals {
			form[k] = append(form[k], v...)
		}
	}
	return adapter.WebhookRequest{
		Body:     body,
		Form:     form,
		Header:   r.Header.Clone(),
		RemoteIP: proxies.ClientIP(r),
	}, nil
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
