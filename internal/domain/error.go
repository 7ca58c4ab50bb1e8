package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Provider verification. Nothing is written when one of these is returned.
	ErrBadSignature     = errors.New("bad signature")
	ErrBadSourceIP      = errors.New("source ip not allowed")
	ErrUnverifiedStatus = errors.New("payment status not confirmed")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownProvider  = errors.New("unknown payment provider")
	ErrPollUnsupported  = errors.New("provider does not support status polling")

	// Fulfillment
	ErrEntitlementPushFailed     = errors.New("entitlement push failed")
	ErrAccountProvisioningFailed = errors.New("account provisioning failed")
	ErrPromoDecrementFailed      = errors.New("promo code decrement failed")
	ErrReferralCreditFailed      = errors.New("referral credit failed")
	ErrInsufficientBalance       = errors.New("insufficient balance")
	ErrUnknownCurrency           = errors.New("unknown currency")
	ErrLockNotAcquired           = errors.New("lock not acquired")
)
