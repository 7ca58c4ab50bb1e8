// File: internal/infra/adapters/payment/providers.go
package payment

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"vpn-billing/internal/config"
)

var errMissingSecret = errors.New("provider secret is not configured")

// Published notification sources. Overridden by allowed_ips in config.
var (
	freekassaIPs = []string{"168.119.157.136", "168.119.60.227", "138.201.88.124", "178.154.197.79"}
	yookassaIPs  = []string{
		"185.71.76.0/27", "185.71.77.0/27", "77.75.153.0/25", "77.75.156.11",
		"77.75.156.35", "77.75.154.128/25", "2a02:5180::/32",
	}
)

func newBase(name string, cfg config.ProviderConfig, defaultIPs []string) (base, error) {
	ips := cfg.AllowedIPs
	if len(ips) == 0 {
		ips = defaultIPs
	}
	al, err := newAllowList(ips)
	if err != nil {
		return base{}, fmt.Errorf("%s: %w", name, err)
	}
	b := base{name: name, allow: al}
	if cfg.RejectWithOK {
		b.reject = http.StatusOK
	}
	return b, nil
}

func baseURL(cfg config.ProviderConfig, def string) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}
	return def
}

func required(name string, vals ...string) error {
	for _, v := range vals {
		if v == "" {
			return fmt.Errorf("%s: %w", name, errMissingSecret)
		}
	}
	return nil
}

func textAck(body string) func(string) (int, string) {
	return func(string) (int, string) { return http.StatusOK, body }
}

func NewFreeKassa(cfg config.ProviderConfig) (*FormProvider, error) {
	if err := required("freekassa", cfg.MerchantID, cfg.Secret2); err != nil {
		return nil, err
	}
	b, err := newBase("freekassa", cfg, freekassaIPs)
	if err != nil {
		return nil, err
	}
	b.ack = textAck("YES")
	return &FormProvider{base: b, secret: cfg.Secret2, scheme: formScheme{
		signField: "SIGN",
		parts:     []string{"MERCHANT_ID", "AMOUNT", secretToken, "MERCHANT_ORDER_ID"},
		sep:       ":",
		hash:      md5.New,
		fields:    fieldMap{order: "MERCHANT_ORDER_ID", id: "intid", amount: "AMOUNT"},
	}}, nil
}

func NewAaio(cfg config.ProviderConfig) (*FormProvider, error) {
	if err := required("aaio", cfg.Secret2); err != nil {
		return nil, err
	}
	b, err := newBase("aaio", cfg, nil)
	if err != nil {
		return nil, err
	}
	return &FormProvider{base: b, secret: cfg.Secret2, scheme: formScheme{
		signField: "sign",
		parts:     []string{"merchant_id", "amount", "currency", secretToken, "order_id"},
		sep:       ":",
		hash:      sha256.New,
		fields:    fieldMap{order: "order_id", id: "invoice_id", amount: "amount", currency: []string{"currency"}},
	}}, nil
}

func NewRobokassa(cfg config.ProviderConfig) (*FormProvider, error) {
	if err := required("robokassa", cfg.Secret2); err != nil {
		return nil, err
	}
	b, err := newBase("robokassa", cfg, nil)
	if err != nil {
		return nil, err
	}
	b.ack = func(orderID string) (int, string) { return http.StatusOK, "OK" + orderID }
	return &FormProvider{base: b, secret: cfg.Secret2, scheme: formScheme{
		signField:    "SignatureValue",
		parts:        []string{"OutSum", "InvId", secretToken},
		sep:          ":",
		hash:         md5.New,
		customPrefix: "Shp_",
		fields:       fieldMap{order: "InvId", amount: "OutSum"},
	}}, nil
}

// NewYooMoney verifies wallet HTTP notifications. The reported amount is net of
// fees so it is not mapped.
func NewYooMoney(cfg config.ProviderConfig) (*FormProvider, error) {
	if err := required("yoomoney", cfg.Secret); err != nil {
		return nil, err
	}
	b, err := newBase("yoomoney", cfg, nil)
	if err != nil {
		return nil, err
	}
	return &FormProvider{base: b, secret: cfg.Secret, scheme: formScheme{
		signField: "sha1_hash",
		parts: []string{
			"notification_type", "operation_id", "amount", "currency", "datetime",
			"sender", "codepro", secretToken, "label",
		},
		sep:       "&",
		hash:      sha1.New,
		holdFlags: []string{"codepro", "unaccepted"},
		fields:    fieldMap{order: "label", id: "operation_id", status: "notification_type"},
	}}, nil
}

func NewPaypalych(cfg config.ProviderConfig) (*FormProvider, error) {
	if err := required("paypalych", cfg.APIToken); err != nil {
		return nil, err
	}
	b, err := newBase("paypalych", cfg, nil)
	if err != nil {
		return nil, err
	}
	return &FormProvider{base: b, secret: cfg.APIToken, scheme: formScheme{
		signField: "SignatureValue",
		parts:     []string{"OutSum", "InvId", secretToken},
		sep:       ":",
		hash:      md5.New,
		upper:     true,
		fields: fieldMap{
			order: "InvId", id: "TrsId", amount: "OutSum", currency: []string{"CurrencyIn"},
			status: "Status", paid: []string{"SUCCESS"},
		},
	}}, nil
}

func NewWata(cfg config.ProviderConfig) (*SortedHMACProvider, error) {
	if err := required("wata", cfg.Secret); err != nil {
		return nil, err
	}
	b, err := newBase("wata", cfg, nil)
	if err != nil {
		return nil, err
	}
	return &SortedHMACProvider{base: b, secret: cfg.Secret, scheme: sortedScheme{
		signField: "signature",
		sep:       "&",
		fields: fieldMap{
			order: "orderId", id: "transactionId", amount: "amount", currency: []string{"currency"},
			status: "transactionStatus", paid: []string{"Paid"},
		},
	}}, nil
}

func NewPlatega(cfg config.ProviderConfig, client *http.Client) (*SortedHMACProvider, error) {
	if err := required("platega", cfg.MerchantID, cfg.Secret); err != nil {
		return nil, err
	}
	b, err := newBase("platega", cfg, nil)
	if err != nil {
		return nil, err
	}
	b.poll = &poller{
		client:    client,
		url:       baseURL(cfg, "https://app.platega.io") + "/transaction/{id}",
		headers:   map[string]string{"X-MerchantId": cfg.MerchantID, "X-Secret": cfg.Secret},
		path:      "status",
		confirmed: []string{"CONFIRMED"},
	}
	return &SortedHMACProvider{base: b, secret: cfg.Secret, scheme: sortedScheme{
		signHeader: "X-Signature",
		sep:        "&",
		fields: fieldMap{
			order: "payload", id: "id", amount: "amount", currency: []string{"currency"},
			status: "status", paid: []string{"CONFIRMED"},
		},
	}}, nil
}

func NewCryptoBot(cfg config.ProviderConfig, client *http.Client) (*BodyHMACProvider, error) {
	if err := required("cryptobot", cfg.APIToken); err != nil {
		return nil, err
	}
	b, err := newBase("cryptobot", cfg, nil)
	if err != nil {
		return nil, err
	}
	b.poll = &poller{
		client:    client,
		url:       baseURL(cfg, "https://pay.crypt.bot") + "/api/getInvoices?invoice_ids={id}",
		headers:   map[string]string{"Crypto-Pay-API-Token": cfg.APIToken},
		path:      "result.items.0.status",
		confirmed: []string{"paid"},
	}
	key := sha256.Sum256([]byte(cfg.APIToken))
	return &BodyHMACProvider{base: b, key: key[:], scheme: bodyScheme{
		header: "crypto-pay-api-signature",
		hash:   sha256.New,
		fields: fieldMap{
			order: "payload.payload", id: "payload.invoice_id", amount: "payload.amount",
			currency: []string{"payload.fiat", "payload.asset"},
			status:   "payload.status", paid: []string{"paid"},
		},
	}}, nil
}

func NewNowPayments(cfg config.ProviderConfig, client *http.Client) (*BodyHMACProvider, error) {
	if err := required("nowpayments", cfg.Secret, cfg.APIToken); err != nil {
		return nil, err
	}
	b, err := newBase("nowpayments", cfg, nil)
	if err != nil {
		return nil, err
	}
	b.poll = &poller{
		client:    client,
		url:       baseURL(cfg, "https://api.nowpayments.io") + "/v1/payment/{id}",
		headers:   map[string]string{"x-api-key": cfg.APIToken},
		path:      "payment_status",
		confirmed: []string{"finished"},
	}
	return &BodyHMACProvider{base: b, key: []byte(cfg.Secret), scheme: bodyScheme{
		header:    "x-nowpayments-sig",
		hash:      sha512.New,
		canonical: sortedJSON,
		fields: fieldMap{
			order: "order_id", id: "payment_id", amount: "price_amount", currency: []string{"price_currency"},
			status: "payment_status", paid: []string{"finished"},
		},
	}}, nil
}

func NewLava(cfg config.ProviderConfig) (*BodyHMACProvider, error) {
	if err := required("lava", cfg.Secret2); err != nil {
		return nil, err
	}
	b, err := newBase("lava", cfg, nil)
	if err != nil {
		return nil, err
	}
	return &BodyHMACProvider{base: b, key: []byte(cfg.Secret2), scheme: bodyScheme{
		header: "Authorization",
		hash:   sha256.New,
		fields: fieldMap{
			order: "order_id", id: "invoice_id", amount: "amount",
			status: "status", paid: []string{"success"},
		},
	}}, nil
}

func NewCryptomus(cfg config.ProviderConfig) (*EmbeddedSignProvider, error) {
	if err := required("cryptomus", cfg.Secret); err != nil {
		return nil, err
	}
	b, err := newBase("cryptomus", cfg, nil)
	if err != nil {
		return nil, err
	}
	return &EmbeddedSignProvider{base: b, apiKey: cfg.Secret, fields: fieldMap{
		order: "order_id", id: "uuid", amount: "amount", currency: []string{"currency"},
		status: "status", paid: []string{"paid", "paid_over"},
	}}, nil
}

// NewYooKassa authenticates the API with shop id and secret key.
func NewYooKassa(cfg config.ProviderConfig, client *http.Client) (*LookupProvider, error) {
	if err := required("yookassa", cfg.MerchantID, cfg.Secret); err != nil {
		return nil, err
	}
	b, err := newBase("yookassa", cfg, yookassaIPs)
	if err != nil {
		return nil, err
	}
	b.poll = &poller{
		client:    client,
		url:       baseURL(cfg, "https://api.yookassa.ru") + "/v3/payments/{id}",
		basicUser: cfg.MerchantID,
		basicPass: cfg.Secret,
		path:      "status",
		confirmed: []string{"succeeded"},
	}
	return &LookupProvider{base: b, idPath: "object.id", fields: fieldMap{
		order: "metadata.order_id", id: "id", amount: "amount.value", currency: []string{"amount.currency"},
		status: "status", paid: []string{"succeeded"},
	}}, nil
}
