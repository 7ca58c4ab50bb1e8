package payment

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/ports/adapter"
)

// EmbeddedSignProvider verifies bodies carrying their own "sign" field computed as
// md5(base64(body without sign) + apiKey).
type EmbeddedSignProvider struct {
	base
	apiKey string
	fields fieldMap
}

var _ adapter.PaymentProvider = (*EmbeddedSignProvider)(nil)

func (p *EmbeddedSignProvider) sign(body []byte) (string, error) {
	stripped, err := sjson.DeleteBytes(body, "sign")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, stripped); err != nil {
		return "", err
	}
	// slashes are signed in their escaped form
	data := strings.ReplaceAll(strings.ReplaceAll(buf.String(), `\/`, `/`), `/`, `\/`)
	return hexDigest(md5.New(), base64.StdEncoding.EncodeToString([]byte(data))+p.apiKey), nil
}

func (p *EmbeddedSignProvider) VerifyWebhook(ctx context.Context, req adapter.WebhookRequest) (adapter.WebhookResult, error) {
	if err := p.checkSource(req.RemoteIP); err != nil {
		return adapter.WebhookResult{}, err
	}
	if !gjson.ValidBytes(req.Body) {
		return adapter.WebhookResult{}, fmt.Errorf("%s: invalid json: %w", p.name, domain.ErrMalformedPayload)
	}
	got := gjson.GetBytes(req.Body, "sign").String()
	if got == "" {
		return adapter.WebhookResult{}, fmt.Errorf("%s: missing sign: %w", p.name, domain.ErrBadSignature)
	}
	want, err := p.sign(req.Body)
	if err != nil {
		return adapter.WebhookResult{}, fmt.Errorf("%s: %w", p.name, domain.ErrMalformedPayload)
	}
	if !equalHex(want, got) {
		return adapter.WebhookResult{}, fmt.Errorf("%s: %w", p.name, domain.ErrBadSignature)
	}
	return p.fields.fromJSON(p.name, req.Body)
}
