// File: internal/infra/adapters/payment/provider.go
package payment

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"net/http"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/ports/adapter"
)

// base carries what every provider family shares: identity, source filter,
// response conventions and optional polling.
type base struct {
	name   string
	allow  *allowList
	ack    func(orderID string) (int, string)
	reject int
	poll   *poller
}

func (b *base) Name() string { return b.name }

func (b *base) Ack(orderID string) (int, string) {
	if b.ack == nil {
		return http.StatusOK, "OK"
	}
	return b.ack(orderID)
}

func (b *base) RejectStatus() int {
	if b.reject == 0 {
		return http.StatusBadRequest
	}
	return b.reject
}

func (b *base) PollStatus(ctx context.Context, paymentSystemID string) (adapter.PollResult, error) {
	if b.poll == nil {
		return adapter.PollResult{}, domain.ErrPollUnsupported
	}
	if paymentSystemID == "" {
		return adapter.PollResult{}, domain.ErrInvalidArgument
	}
	return b.poll.status(ctx, paymentSystemID)
}

func (b *base) checkSource(remoteIP string) error {
	if !b.allow.allows(remoteIP) {
		return fmt.Errorf("%s: %s: %w", b.name, remoteIP, domain.ErrBadSourceIP)
	}
	return nil
}

// fieldMap names where the order reference, provider id, amount and status live.
// For form payloads these are keys; for JSON payloads they are gjson paths.
type fieldMap struct {
	order    string
	id       string
	amount   string
	currency []string // first non-empty wins
	status   string
	paid     []string // empty: a valid signature alone confirms payment
}

func (m fieldMap) confirmed(status string) bool {
	if len(m.paid) == 0 {
		return true
	}
	for _, s := range m.paid {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}

func (m fieldMap) fromValues(name string, get func(key string) string) (adapter.WebhookResult, error) {
	res := adapter.WebhookResult{
		OrderID:         strings.TrimSpace(get(m.order)),
		PaymentSystemID: strings.TrimSpace(get(m.id)),
	}
	if res.OrderID == "" && res.PaymentSystemID == "" {
		return res, fmt.Errorf("%s: no order reference: %w", name, domain.ErrMalformedPayload)
	}
	if m.status != "" {
		res.RawStatus = get(m.status)
	}
	res.Verified = m.confirmed(res.RawStatus)
	for _, key := range m.currency {
		if v := strings.TrimSpace(get(key)); v != "" {
			res.Currency = strings.ToUpper(v)
			break
		}
	}
	if m.amount != "" {
		if raw := strings.TrimSpace(get(m.amount)); raw != "" {
			amt, err := decimal.NewFromString(raw)
			if err != nil {
				return res, fmt.Errorf("%s: amount %q: %w", name, raw, domain.ErrMalformedPayload)
			}
			res.Amount = amt
		}
	}
	return res, nil
}

func (m fieldMap) fromJSON(name string, body []byte) (adapter.WebhookResult, error) {
	if !gjson.ValidBytes(body) {
		return adapter.WebhookResult{}, fmt.Errorf("%s: invalid json: %w", name, domain.ErrMalformedPayload)
	}
	doc := gjson.ParseBytes(body)
	return m.fromValues(name, func(path string) string {
		if path == "" {
			return ""
		}
		return doc.Get(path).String()
	})
}

func (m fieldMap) fromParams(name string, p map[string]string) (adapter.WebhookResult, error) {
	return m.fromValues(name, func(key string) string { return p[key] })
}

// params flattens a notification into key/value pairs: form fields when present,
// otherwise the top level of a JSON object body.
func params(req adapter.WebhookRequest) (map[string]string, error) {
	out := make(map[string]string)
	if len(req.Form) > 0 {
		for k, v := range req.Form {
			if len(v) > 0 {
				out[k] = v[0]
			}
		}
		return out, nil
	}
	if len(req.Body) == 0 || !gjson.ValidBytes(req.Body) {
		return nil, domain.ErrMalformedPayload
	}
	doc := gjson.ParseBytes(req.Body)
	if !doc.IsObject() {
		return nil, domain.ErrMalformedPayload
	}
	doc.ForEach(func(k, v gjson.Result) bool {
		out[k.String()] = v.String()
		return true
	})
	return out, nil
}

func sortedKeys(p map[string]string, keep func(k string) bool) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		if keep(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func hexDigest(h hash.Hash, data string) string {
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// equalHex compares hex digests case-insensitively in constant time.
func equalHex(want, got string) bool {
	w := []byte(strings.ToLower(strings.TrimSpace(want)))
	g := []byte(strings.ToLower(strings.TrimSpace(got)))
	return len(g) > 0 && subtle.ConstantTimeCompare(w, g) == 1
}
