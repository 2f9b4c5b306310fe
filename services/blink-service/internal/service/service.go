package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fosterlabs/blink-engine/shared/logging"
	"github.com/fosterlabs/blink-engine/shared/metrics"
	"github.com/fosterlabs/blink-engine/shared/monitoring"
	"github.com/fosterlabs/blink-engine/shared/resilience"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/config"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/payment"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/txbuilder"
)

// nowFunc is swapped in tests that exercise sale windows.
var nowFunc = time.Now

// Service coordinates blink purchase flows end to end: initiation
// (order + unsigned transaction) and confirmation (verify, fulfill,
// settle exactly once).
type Service struct {
	products    domain.ProductRepository
	users       domain.UserRepository
	orders      domain.OrderRepository
	catalog     domain.Catalog
	assets      domain.AssetIndex
	converter   *payment.Converter
	builder     domain.TransactionBuilder
	balances    domain.BalanceSource
	verifier    domain.PaymentVerifier
	fulfillment domain.FulfillmentClient
	editions    domain.EditionMinter
	publisher   domain.EventPublisher
	cfg         *config.Config
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

type Deps struct {
	Products    domain.ProductRepository
	Users       domain.UserRepository
	Orders      domain.OrderRepository
	Catalog     domain.Catalog
	Assets      domain.AssetIndex
	Converter   *payment.Converter
	Builder     domain.TransactionBuilder
	Balances    domain.BalanceSource
	Verifier    domain.PaymentVerifier
	Fulfillment domain.FulfillmentClient
	Editions    domain.EditionMinter
	Publisher   domain.EventPublisher
	Config      *config.Config
	Logger      *logging.Logger
	Metrics     *metrics.Metrics
}

func NewService(d Deps) *Service {
	return &Service{
		products:    d.Products,
		users:       d.Users,
		orders:      d.Orders,
		catalog:     d.Catalog,
		assets:      d.Assets,
		converter:   d.Converter,
		builder:     d.Builder,
		balances:    d.Balances,
		verifier:    d.Verifier,
		fulfillment: d.Fulfillment,
		editions:    d.Editions,
		publisher:   d.Publisher,
		cfg:         d.Config,
		logger:      d.Logger,
		metrics:     d.Metrics,
	}
}

// InitiateMerchInput is the POST body plus query inputs of a merch
// purchase initiation.
type InitiateMerchInput struct {
	ProductID int64
	Account   string
	Email     string
	Address   string
	Size      *string
}

// InitiateMerchPurchase validates the product is purchasable, resolves
// or creates the buyer, computes the payment split, persists the order,
// and returns the unsigned payment transaction chained to the checkout
// confirmation.
func (s *Service) InitiateMerchPurchase(ctx context.Context, in InitiateMerchInput) (*domain.PostResponse, error) {
	if _, err := txbuilder.ValidateAddress(in.Account); err != nil {
		return nil, err
	}

	product, err := s.products.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if err := product.Purchasable(nowFunc()); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByWallet(ctx, in.Account)
	if errors.Is(err, domain.ErrUserNotFound) {
		user, err = s.users.CreateUserFromWallet(ctx, in.Account, in.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve buyer: %w", err)
	}

	shares, err := payment.CalculateShares(
		[]payment.Beneficiary{{Address: product.SellerWallet, AmountUSD: product.SellingPriceUSD - product.FosterAmountUSD}},
		[]payment.Beneficiary{{Address: s.cfg.MerchPaymentAddress, AmountUSD: product.FosterAmountUSD + domain.ShippingSurchargeUSD}},
	)
	if err != nil {
		return nil, err
	}

	rate := s.converter.Rate(ctx)
	split := payment.BuildSplit(shares, rate)
	totalLamports := split.TotalLamports()

	balance, err := s.balances.GetBalance(ctx, in.Account)
	if err != nil {
		return nil, fmt.Errorf("failed to read buyer balance: %w", err)
	}
	required := totalLamports + domain.FeeBufferLamports
	if balance < required {
		return nil, fmt.Errorf("%w: need %d lamports, have %d", domain.ErrInsufficientBalance, required, balance)
	}

	order := &domain.Order{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		ProductID:     product.ID,
		Status:        domain.OrderCreated,
		TotalUSD:      split.TotalUSD(),
		TotalLamports: totalLamports,
		Split:         split,
		Shipping:      domain.ShippingAddress{RawAddress: in.Address},
		PaymentMethod: domain.PaymentMethodSOL,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	tx, err := s.builder.BuildPaymentTransaction(ctx, in.Account, split)
	if err != nil {
		if markErr := s.orders.MarkFailed(ctx, order.ID, err.Error()); markErr != nil {
			s.logger.WithContext(ctx).WithError(markErr).WithField("order_id", order.ID).Error("failed to mark order failed")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersInitiated.Inc()
	}
	s.logger.WithContext(ctx).
		WithField("order_id", order.ID).
		WithField("product_id", product.ID).
		WithField("total_lamports", totalLamports).
		Info("merch purchase initiated")

	message := fmt.Sprintf("Purchasing %s", product.Name)
	next := fmt.Sprintf("%s/v1/blinks/merch/%s/checkout?email=%s", s.cfg.PublicURL, order.ID, in.Email)
	if in.Size != nil {
		next += "&size=" + *in.Size
	}
	return &domain.PostResponse{
		Transaction: tx,
		Message:     &message,
		Links:       &domain.PostLinks{Next: domain.NextAction{Type: "post", Href: next}},
	}, nil
}

// ConfirmInput identifies the order being confirmed and the payment
// reference proving it was paid.
type ConfirmInput struct {
	OrderID    string
	Account    string
	PaymentRef string
	Email      string
	Size       *string
}

// ConfirmMerchOrder verifies the payment reference against the order,
// opens the external fulfillment order, and settles the order with a
// single conditional update. The update is the only at-most-once gate:
// a lost race surfaces as ErrOrderAlreadyPaid and the first payment
// reference stays attached.
func (s *Service) ConfirmMerchOrder(ctx context.Context, in ConfirmInput) (*domain.ActionDescriptor, error) {
	if in.PaymentRef == "" {
		return nil, domain.ErrMissingPaymentRef
	}

	order, err := s.orders.GetOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentRef != nil {
		return nil, domain.ErrOrderAlreadyPaid
	}

	// A just-landed transaction may not be visible to the RPC node yet;
	// only that case is worth retrying.
	verifyRetry := &resilience.RetryConfig{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		BackoffFactor:  2.0,
		JitterFraction: 0.1,
		RetryableErrors: func(err error) bool {
			return errors.Is(err, domain.ErrPaymentNotFound)
		},
	}
	if err := resilience.Retry(ctx, verifyRetry, func(ctx context.Context) error {
		return s.verifier.VerifyPayment(ctx, in.PaymentRef, order)
	}); err != nil {
		return nil, err
	}

	product, err := s.products.GetProduct(ctx, order.ProductID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByWallet(ctx, in.Account)
	if err != nil {
		return nil, err
	}

	externalID, err := s.fulfillment.CreateOrder(ctx, &domain.FulfillmentRequest{
		Order:      order,
		Product:    product,
		User:       user,
		Email:      in.Email,
		Size:       in.Size,
		PaymentRef: in.PaymentRef,
	})
	if err != nil {
		monitoring.CaptureError(err, map[string]string{"order_id": order.ID})
		return nil, fmt.Errorf("failed to create fulfillment order: %w", err)
	}

	if err := s.orders.ConfirmOrder(ctx, order.ID, externalID, in.PaymentRef); err != nil {
		return nil, err
	}

	event := &domain.OrderFulfilledEvent{
		OrderID:         order.ID,
		ProductID:       product.ID,
		UserID:          order.UserID,
		ExternalOrderID: externalID,
		PaymentRef:      in.PaymentRef,
		FulfilledAt:     nowFunc().UTC(),
	}
	if err := s.publisher.PublishOrderFulfilled(ctx, event); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("order_id", order.ID).Warn("order fulfilled event not published")
	}

	if s.metrics != nil {
		s.metrics.OrdersConfirmed.Inc()
	}
	s.logger.WithContext(ctx).
		WithField("order_id", order.ID).
		WithField("external_order_id", externalID).
		Info("merch order confirmed")

	return &domain.ActionDescriptor{
		Type:     domain.ActionTypeCompleted,
		Icon:     product.Icon(),
		Title:    fmt.Sprintf("Order %s placed", order.ID),
		Disabled: true,
		Description: fmt.Sprintf("Order confirmed. Track it at %s/orders/%s. A receipt was sent to %s.",
			domain.StorefrontHost(s.cfg.Network), order.ID, in.Email),
		Label: "Order placed",
	}, nil
}

// NFTActionInput is a POST against an NFT blink action.
type NFTActionInput struct {
	TokenID string
	Action  string
	Account string
	Price   *float64
}

// InitiateNFTAction dispatches an NFT blink POST. Only print minting
// produces a transaction today; listing purchases, bids, and offers
// require wallet state the blink surface does not carry yet.
func (s *Service) InitiateNFTAction(ctx context.Context, in NFTActionInput) (*domain.PostResponse, error) {
	if _, err := txbuilder.ValidateAddress(in.Account); err != nil {
		return nil, err
	}

	switch in.Action {
	case "buy-print":
		return s.initiatePrintMint(ctx, in.TokenID, in.Account)
	case "buy", "bid", "place-offer":
		return nil, fmt.Errorf("%w: %s", domain.ErrActionNotImplemented, in.Action)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAction, in.Action)
	}
}

func (s *Service) initiatePrintMint(ctx context.Context, tokenID, account string) (*domain.PostResponse, error) {
	nft, err := s.catalog.GetNFT(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if _, ok := nft.Sale.(domain.MasterEdition); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoMasterEdition, tokenID)
	}

	mint, err := s.editions.MintPrint(ctx, tokenID, account)
	if err != nil {
		return nil, fmt.Errorf("failed to mint print: %w", err)
	}

	s.logger.WithContext(ctx).
		WithField("token_id", tokenID).
		WithField("edition", mint.EditionNumber).
		Info("print mint initiated")

	message := fmt.Sprintf("Minting Print Edition #%d", mint.EditionNumber)
	next := fmt.Sprintf("%s/v1/blinks/nft/index-print/%s", s.cfg.PublicURL, mint.EditionMint)
	return &domain.PostResponse{
		Transaction: mint.Transaction,
		Message:     &message,
		Links:       &domain.PostLinks{Next: domain.NextAction{Type: "post", Href: next}},
	}, nil
}

// IndexPrintInput identifies a freshly minted print to record.
type IndexPrintInput struct {
	TokenID string
	Account string
}

// IndexPrint records a minted print in the catalog under its parent
// edition and notifies downstream consumers. The notification is
// at-least-once; a publish failure does not undo the catalog write.
func (s *Service) IndexPrint(ctx context.Context, in IndexPrintInput) (*domain.ActionDescriptor, error) {
	asset, err := s.assets.GetAsset(ctx, in.TokenID)
	if err != nil {
		return nil, err
	}
	if asset.MasterEditionMint == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotAPrint, in.TokenID)
	}

	parent, err := s.catalog.GetNFT(ctx, *asset.MasterEditionMint)
	if err != nil {
		return nil, err
	}

	var edition int64
	if asset.EditionNumber != nil {
		edition = *asset.EditionNumber
	}
	print := &domain.PrintNFT{
		TokenID:       in.TokenID,
		OwnerID:       in.Account,
		MinterID:      parent.MinterID,
		CollectionID:  parent.CollectionID,
		Name:          fmt.Sprintf("%s #%d", parent.Name, edition),
		AssetURL:      parent.AssetURL,
		AssetType:     parent.AssetType,
		CoverImageURL: parent.CoverImageURL,
		Categories:    parent.Categories,
		Royalties:     parent.Royalties,
		ParentNFT:     parent.TokenID,
		MaxSupply:     asset.PrintMaxSupply,
		Edition:       edition,
		MintedAt:      nowFunc().UTC(),
	}
	if err := s.catalog.InsertPrint(ctx, print); err != nil {
		return nil, fmt.Errorf("failed to index print: %w", err)
	}

	event := &domain.PrintMintedEvent{
		TokenID:   print.TokenID,
		ParentNFT: print.ParentNFT,
		OwnerID:   print.OwnerID,
		MinterID:  print.MinterID,
		Edition:   print.Edition,
		MintedAt:  print.MintedAt,
	}
	if err := s.publisher.PublishPrintMinted(ctx, event); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("token_id", print.TokenID).Warn("print minted event not published")
	}

	if s.metrics != nil {
		s.metrics.PrintsIndexed.Inc()
	}
	s.logger.WithContext(ctx).
		WithField("token_id", print.TokenID).
		WithField("parent", print.ParentNFT).
		Info("print indexed")

	return &domain.ActionDescriptor{
		Type:  domain.ActionTypeCompleted,
		Icon:  nftIcon(parent),
		Title: print.Name,
		Description: fmt.Sprintf("Your print edition is now in your collection: %s/nft/%s",
			domain.StorefrontHost(s.cfg.Network), print.TokenID),
		Label: "Minted",
	}, nil
}
