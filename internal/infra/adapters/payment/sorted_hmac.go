package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"strings"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/ports/adapter"
)

// sortedScheme signs every parameter except the signature as sorted k=v pairs.
type sortedScheme struct {
	signField  string // signature carried in the payload
	signHeader string // or in a header
	sep        string
	fields     fieldMap
}

// SortedHMACProvider verifies HMAC-SHA256 over key-sorted parameters.
type SortedHMACProvider struct {
	base
	secret string
	scheme sortedScheme
}

var _ adapter.PaymentProvider = (*SortedHMACProvider)(nil)

func (p *SortedHMACProvider) sign(f map[string]string) string {
	keys := sortedKeys(f, func(k string) bool { return k != p.scheme.signField })
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+f[k])
	}
	return hexDigest(hmac.New(sha256.New, []byte(p.secret)), strings.Join(pairs, p.scheme.sep))
}

func (p *SortedHMACProvider) VerifyWebhook(ctx context.Context, req adapter.WebhookRequest) (adapter.WebhookResult, error) {
	if err := p.checkSource(req.RemoteIP); err != nil {
		return adapter.WebhookResult{}, err
	}
	f, err := params(req)
	if err != nil {
		return adapter.WebhookResult{}, fmt.Errorf("%s: %w", p.name, err)
	}
	var got string
	if p.scheme.signHeader != "" {
		got = req.Header.Get(p.scheme.signHeader)
	} else {
		got = f[p.scheme.signField]
	}
	if got == "" {
		return adapter.WebhookResult{}, fmt.Errorf("%s: missing signature: %w", p.name, domain.ErrBadSignature)
	}
	if !equalHex(p.sign(f), got) {
		return adapter.WebhookResult{}, fmt.Errorf("%s: %w", p.name, domain.ErrBadSignature)
	}
	return p.scheme.fields.fromParams(p.name, f)
}
