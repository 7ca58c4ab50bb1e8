package payment

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/ports/adapter"
)

// LookupProvider does not trust the notification body: it takes the transaction id
// from it and fetches the authoritative resource from the provider API.
type LookupProvider struct {
	base
	idPath string // where the transaction id sits in the notification
	fields fieldMap
}

var _ adapter.PaymentProvider = (*LookupProvider)(nil)

func (p *LookupProvider) VerifyWebhook(ctx context.Context, req adapter.WebhookRequest) (adapter.WebhookResult, error) {
	if err := p.checkSource(req.RemoteIP); err != nil {
		return adapter.WebhookResult{}, err
	}
	if !gjson.ValidBytes(req.Body) {
		return adapter.WebhookResult{}, fmt.Errorf("%s: invalid json: %w", p.name, domain.ErrMalformedPayload)
	}
	id := gjson.GetBytes(req.Body, p.idPath).String()
	if id == "" {
		return adapter.WebhookResult{}, fmt.Errorf("%s: missing %s: %w", p.name, p.idPath, domain.ErrMalformedPayload)
	}
	resource, err := p.poll.fetch(ctx, id)
	if err != nil {
		// the body claimed an id the provider does not vouch for
		return adapter.WebhookResult{}, fmt.Errorf("%s: lookup %s: %v: %w", p.name, id, err, domain.ErrBadSignature)
	}
	res, err := p.fields.fromJSON(p.name, resource)
	if err != nil {
		return res, err
	}
	if res.PaymentSystemID == "" {
		res.PaymentSystemID = id
	}
	return res, nil
}
