package domain

import "errors"

var (
	// Lookups.
	ErrProductNotFound = errors.New("product not found")
	ErrNFTNotFound     = errors.New("nft not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrUserNotFound    = errors.New("user not found")

	// Sale gating.
	ErrSoldOut        = errors.New("sold out")
	ErrSaleNotStarted = errors.New("sale has not started")
	ErrSaleEnded      = errors.New("sale has ended")

	// Purchase flow.
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrNegativeAmount      = errors.New("negative split amount")
	ErrMissingPaymentRef   = errors.New("missing payment reference")

	// ErrOrderAlreadyPaid is returned on any confirmation attempt after
	// the first one succeeded. Safe for callers to treat as success of
	// an earlier attempt.
	ErrOrderAlreadyPaid = errors.New("order already paid")

	// ErrPaymentNotFound means the reference was not visible on chain
	// yet; the caller may retry. ErrPaymentMismatch means the referenced
	// transaction exists but does not satisfy the order; retrying cannot
	// help.
	ErrPaymentNotFound = errors.New("payment not found")
	ErrPaymentMismatch = errors.New("payment does not match order")

	// ErrBadFulfillmentType reports a stored fulfillment tag outside the
	// known set. Data integrity, not user input.
	ErrBadFulfillmentType = errors.New("unknown fulfillment type")

	// NFT actions.
	ErrUnknownAction        = errors.New("unknown action")
	ErrActionNotImplemented = errors.New("action not implemented")
	ErrNotAPrint            = errors.New("token is not a print edition")
	ErrNoMasterEdition      = errors.New("token has no master edition sale")
)
