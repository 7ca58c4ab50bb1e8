package payment

import (
	"context"
	"fmt"
	"hash"
	"strings"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/ports/adapter"
)

// secretToken marks where the shared secret goes in formScheme.parts.
const secretToken = "\x00secret"

// formScheme describes a digest over selected form fields joined by sep.
type formScheme struct {
	signField string
	parts     []string
	sep       string
	hash      func() hash.Hash
	upper     bool
	// customPrefix appends every field with this prefix as sorted "k=v" after parts.
	customPrefix string
	// holdFlags name fields that, when "true", mark funds as not yet available.
	holdFlags []string
	fields    fieldMap
}

// FormProvider verifies providers that sign urlencoded callbacks.
type FormProvider struct {
	base
	secret string
	scheme formScheme
}

var _ adapter.PaymentProvider = (*FormProvider)(nil)

func (p *FormProvider) sign(f map[string]string) string {
	vals := make([]string, 0, len(p.scheme.parts)+2)
	for _, part := range p.scheme.parts {
		if part == secretToken {
			vals = append(vals, p.secret)
			continue
		}
		vals = append(vals, f[part])
	}
	if pre := p.scheme.customPrefix; pre != "" {
		for _, k := range sortedKeys(f, func(k string) bool { return strings.HasPrefix(k, pre) }) {
			vals = append(vals, k+"="+f[k])
		}
	}
	sum := hexDigest(p.scheme.hash(), strings.Join(vals, p.scheme.sep))
	if p.scheme.upper {
		sum = strings.ToUpper(sum)
	}
	return sum
}

func (p *FormProvider) VerifyWebhook(ctx context.Context, req adapter.WebhookRequest) (adapter.WebhookResult, error) {
	if err := p.checkSource(req.RemoteIP); err != nil {
		return adapter.WebhookResult{}, err
	}
	f, err := params(req)
	if err != nil {
		return adapter.WebhookResult{}, fmt.Errorf("%s: %w", p.name, err)
	}
	got := f[p.scheme.signField]
	if got == "" {
		return adapter.WebhookResult{}, fmt.Errorf("%s: missing %s: %w", p.name, p.scheme.signField, domain.ErrBadSignature)
	}
	if !equalHex(p.sign(f), got) {
		return adapter.WebhookResult{}, fmt.Errorf("%s: %w", p.name, domain.ErrBadSignature)
	}

	res, err := p.scheme.fields.fromParams(p.name, f)
	if err != nil {
		return res, err
	}
	for _, flag := range p.scheme.holdFlags {
		if strings.EqualFold(f[flag], "true") {
			res.Verified = false
			res.RawStatus = flag
		}
	}
	return res, nil
}
