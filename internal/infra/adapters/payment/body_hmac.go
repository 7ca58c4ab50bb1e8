package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/ports/adapter"
)

// bodyScheme is an HMAC over the request body with the digest in a header.
type bodyScheme struct {
	header    string
	hash      func() hash.Hash
	canonical func(body []byte) ([]byte, error) // nil signs the raw body
	fields    fieldMap
}

// BodyHMACProvider verifies JSON notifications signed as a whole.
type BodyHMACProvider struct {
	base
	key    []byte
	scheme bodyScheme
}

var _ adapter.PaymentProvider = (*BodyHMACProvider)(nil)

func (p *BodyHMACProvider) VerifyWebhook(ctx context.Context, req adapter.WebhookRequest) (adapter.WebhookResult, error) {
	if err := p.checkSource(req.RemoteIP); err != nil {
		return adapter.WebhookResult{}, err
	}
	if len(req.Body) == 0 {
		return adapter.WebhookResult{}, fmt.Errorf("%s: empty body: %w", p.name, domain.ErrMalformedPayload)
	}
	got := req.Header.Get(p.scheme.header)
	if got == "" {
		return adapter.WebhookResult{}, fmt.Errorf("%s: missing %s: %w", p.name, p.scheme.header, domain.ErrBadSignature)
	}
	msg := req.Body
	if p.scheme.canonical != nil {
		c, err := p.scheme.canonical(req.Body)
		if err != nil {
			return adapter.WebhookResult{}, fmt.Errorf("%s: %w", p.name, domain.ErrMalformedPayload)
		}
		msg = c
	}
	mac := hmac.New(p.scheme.hash, p.key)
	mac.Write(msg)
	if !equalHex(hex.EncodeToString(mac.Sum(nil)), got) {
		return adapter.WebhookResult{}, fmt.Errorf("%s: %w", p.name, domain.ErrBadSignature)
	}
	return p.scheme.fields.fromJSON(p.name, req.Body)
}

// sortedJSON re-encodes a JSON document with object keys sorted at every level.
func sortedJSON(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
