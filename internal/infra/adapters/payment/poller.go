package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"vpn-billing/internal/domain/ports/adapter"
)

// poller is the status-check record attached to providers with a status API.
type poller struct {
	client    *http.Client
	url       string // "{id}" is replaced with the escaped provider id
	headers   map[string]string
	basicUser string
	basicPass string
	path      string // gjson path of the status value
	confirmed []string
}

var errUpstream = errors.New("provider api error")

func (p *poller) fetch(ctx context.Context, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.ReplaceAll(p.url, "{id}", url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	if p.basicUser != "" {
		req.SetBasicAuth(p.basicUser, p.basicPass)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: status %d", errUpstream, resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", errUpstream)
	}
	return body, nil
}

func (p *poller) status(ctx context.Context, id string) (adapter.PollResult, error) {
	body, err := p.fetch(ctx, id)
	if err != nil {
		return adapter.PollResult{}, err
	}
	raw := gjson.GetBytes(body, p.path).String()
	res := adapter.PollResult{RawStatus: raw}
	for _, c := range p.confirmed {
		if strings.EqualFold(c, raw) {
			res.Confirmed = true
			break
		}
	}
	return res, nil
}
