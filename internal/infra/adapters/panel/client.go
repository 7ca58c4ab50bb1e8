// File: internal/infra/adapters/panel/client.go
package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"vpn-billing/internal/config"
	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/adapter"
	"vpn-billing/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.EntitlementClient = (*Client)(nil)

// Client talks to the VPN panel REST API.
// Users live under /api/users; responses wrap the entity in "response".
// Authorization: Bearer <token>
type Client struct {
	base   string
	token  string
	client *http.Client
}

func NewClient(cfg config.PanelConfig) (*Client, error) {
	if cfg.BaseURL == "" || cfg.Token == "" {
		return nil, errors.New("panel base url or token empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		token:  cfg.Token,
		client: &http.Client{Timeout: timeout},
	}, nil
}

type patchBody struct {
	UUID              string     `json:"uuid"`
	ExpireAt          *time.Time `json:"expireAt,omitempty"`
	TrafficLimitBytes *int64     `json:"trafficLimitBytes,omitempty"`
	DeviceLimit       *int       `json:"hwidDeviceLimit,omitempty"`
	Squads            []string   `json:"activeInternalSquads,omitempty"`
}

type createBody struct {
	Username string    `json:"username"`
	ExpireAt time.Time `json:"expireAt"`
}

func (c *Client) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("panel %s %s: http %d", method, path, resp.StatusCode)
	}
	return out, nil
}

func (c *Client) GetAccount(ctx context.Context, accountID string) (e *model.Entitlement, err error) {
	defer func(start time.Time) { metrics.ObservePanelCall("get", start, err) }(time.Now())

	body, err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(accountID), nil)
	if err != nil {
		return nil, err
	}
	return parseEntitlement(body, accountID)
}

func parseEntitlement(body []byte, accountID string) (*model.Entitlement, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("panel: invalid json for %s", accountID)
	}
	u := gjson.GetBytes(body, "response")
	e := &model.Entitlement{
		AccountID:         accountID,
		TrafficLimitBytes: u.Get("trafficLimitBytes").Int(),
		DeviceLimit:       int(u.Get("hwidDeviceLimit").Int()),
	}
	if raw := u.Get("expireAt").String(); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("panel: expireAt %q: %w", raw, err)
		}
		e.ExpireAt = t.UTC()
	}
	for _, sq := range u.Get("activeInternalSquads").Array() {
		if id := sq.Get("uuid").String(); id != "" {
			e.Groups = append(e.Groups, id)
		} else if sq.Type == gjson.String {
			e.Groups = append(e.Groups, sq.String())
		}
	}
	return e, nil
}

// PatchAccount sends one absolute-value update. An empty patch is not sent.
func (c *Client) PatchAccount(ctx context.Context, accountID string, patch model.AccountPatch) (err error) {
	if patch.IsEmpty() {
		return nil
	}
	defer func(start time.Time) { metrics.ObservePanelCall("patch", start, err) }(time.Now())

	in := patchBody{
		UUID:              accountID,
		ExpireAt:          patch.ExpireAt,
		TrafficLimitBytes: patch.TrafficLimitBytes,
		DeviceLimit:       patch.DeviceLimit,
		Squads:            patch.Groups,
	}
	_, err = c.do(ctx, http.MethodPatch, "/api/users", in)
	return err
}

// CreateAccount registers a new panel user named identity and returns its id.
// The account starts expired; the caller extends it with a patch.
func (c *Client) CreateAccount(ctx context.Context, identity string) (id string, err error) {
	defer func(start time.Time) { metrics.ObservePanelCall("create", start, err) }(time.Now())

	body, err := c.do(ctx, http.MethodPost, "/api/users", createBody{Username: identity, ExpireAt: time.Now().UTC()})
	if err != nil {
		return "", err
	}
	id = gjson.GetBytes(body, "response.uuid").String()
	if id == "" {
		return "", fmt.Errorf("panel: create %s: no uuid in response", identity)
	}
	return id, nil
}
