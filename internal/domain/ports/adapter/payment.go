package adapter

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// WebhookRequest is the raw inbound notification as received over HTTP.
type WebhookRequest struct {
	Body     []byte
	Form     url.Values // query + urlencoded body
	Header   http.Header
	RemoteIP string
}

// WebhookResult is what a provider vouches for after checking the signature.
// Verified is true only for the provider's unambiguous "paid" state.
type WebhookResult struct {
	OrderID         string
	PaymentSystemID string
	Verified        bool
	RawStatus       string
	Amount          decimal.Decimal // zero when the provider does not report it
	Currency        string
}

type PollResult struct {
	Confirmed bool
	RawStatus string
}

// PaymentProvider is the hex port for one payment processor's verification contract.
type PaymentProvider interface {
	Name() string
	// VerifyWebhook returns ErrBadSignature, ErrBadSourceIP or ErrMalformedPayload
	// on rejection. An authentic but unconfirmed notification yields Verified=false.
	VerifyWebhook(ctx context.Context, req WebhookRequest) (WebhookResult, error)
	// PollStatus returns ErrPollUnsupported for providers without a status API.
	PollStatus(ctx context.Context, paymentSystemID string) (PollResult, error)
	// Ack is the provider's expected success response.
	Ack(orderID string) (status int, body string)
	// RejectStatus is the HTTP status for rejected notifications.
	RejectStatus() int
}

type ProviderRegistry interface {
	Get(name string) (PaymentProvider, error)
}
