package domain

import (
	"context"
	"fmt"
	"time"
)

// Blockchain identifiers carried in-body and in the X-Blockchain-Ids header.
const (
	MainnetBlockchainID = "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp"
	DevnetBlockchainID  = "solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1"
)

// BlockchainID maps a configured network name to its blockchain id.
func BlockchainID(network string) string {
	if network == "mainnet" {
		return MainnetBlockchainID
	}
	return DevnetBlockchainID
}

// StorefrontHost returns the public storefront base URL for a network.
func StorefrontHost(network string) string {
	if network == "mainnet" {
		return "https://fostermarketplace.app"
	}
	return "https://devnet.fostermarketplace.app"
}

// Protocol constants, in minor fiat units / lamports unless noted.
const (
	ShippingSurchargeUSD = 1500   // flat $15 shipping added to every merch order
	FeeBufferLamports    = 20_000 // headroom the buyer must hold beyond the split total

	BidIncrementSOL = 0.01
	ReserveFloorSOL = 0.1
	OfferFloorSOL   = 0.01

	PaymentMethodSOL = "SOL"
)

// FulfillmentType is the closed set of product fulfillment modes,
// decoded once at the repository boundary.
type FulfillmentType int

const (
	// FulfillmentFoster products are printed and shipped by the platform.
	FulfillmentFoster FulfillmentType = iota
	// FulfillmentSeller products are shipped by the seller directly.
	FulfillmentSeller
)

// Tag returns the stored wire tag for a fulfillment mode.
func (t FulfillmentType) Tag() string {
	if t == FulfillmentSeller {
		return "user"
	}
	return "foster"
}

// ParseFulfillmentType decodes the stored tag. An unknown tag is a
// data-integrity error, not a request error.
func ParseFulfillmentType(s string) (FulfillmentType, error) {
	switch s {
	case "foster":
		return FulfillmentFoster, nil
	case "user":
		return FulfillmentSeller, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadFulfillmentType, s)
	}
}

func (t FulfillmentType) String() string {
	switch t {
	case FulfillmentFoster:
		return "foster"
	case FulfillmentSeller:
		return "user"
	default:
		return fmt.Sprintf("FulfillmentType(%d)", int(t))
	}
}

// ProductAddon describes a platform print addon attached to a product.
type ProductAddon struct {
	MockupURL string `json:"mockup_url"`
	RawURL    string `json:"raw_url"`
}

// ProductOptions is the structured options JSON stored with a product.
type ProductOptions struct {
	ProductImages  []string       `json:"product_images,omitempty"`
	PrintTechnique string         `json:"print_technique,omitempty"`
	Addons         []ProductAddon `json:"addons,omitempty"`
}

// Product is a merch listing with its live supply counters.
type Product struct {
	ID              int64
	Name            string
	Description     string
	SellingPriceUSD int64 // minor units
	FosterAmountUSD int64 // platform share of the price, minor units
	Supply          *int64
	CurrentSupply   int64
	SaleStartAt     *time.Time
	SaleEndAt       *time.Time
	Fulfillment     FulfillmentType
	SellerID        string
	SellerWallet    string
	Options         ProductOptions
}

// Purchasable reports whether the product can be bought right now.
// The returned error is one of the domain sale errors.
func (p *Product) Purchasable(now time.Time) error {
	if p.Supply != nil && p.CurrentSupply >= *p.Supply {
		return fmt.Errorf("%w: product %s has sold out; max supply: %d", ErrSoldOut, p.Name, *p.Supply)
	}
	if p.SaleStartAt != nil && now.Before(*p.SaleStartAt) {
		return fmt.Errorf("%w: product %s sale starts at %s", ErrSaleNotStarted, p.Name, p.SaleStartAt.Format(time.RFC3339))
	}
	if p.SaleEndAt != nil && now.After(*p.SaleEndAt) {
		return fmt.Errorf("%w: product %s sale ended at %s", ErrSaleEnded, p.Name, p.SaleEndAt.Format(time.RFC3339))
	}
	return nil
}

// Icon picks the display image for a product. Platform-fulfilled
// products show the first addon mockup, seller-fulfilled the first
// product image.
func (p *Product) Icon() string {
	switch p.Fulfillment {
	case FulfillmentFoster:
		if len(p.Options.Addons) > 0 {
			return p.Options.Addons[0].MockupURL
		}
	case FulfillmentSeller:
		if len(p.Options.ProductImages) > 0 {
			return p.Options.ProductImages[0]
		}
	}
	return ""
}

// User is a marketplace account keyed by wallet address.
type User struct {
	ID       string
	WalletID string
	Username *string
	Email    *string
}

// SplitEntry is one recipient of a payment split.
type SplitEntry struct {
	Address  string `json:"address"`
	USD      int64  `json:"usd"`
	Lamports uint64 `json:"lamports"`
}

// PaymentSplit distributes a payment across recipients. Entry order is
// not significant; the transfers are independent.
type PaymentSplit []SplitEntry

func (s PaymentSplit) TotalLamports() uint64 {
	var total uint64
	for _, e := range s {
		total += e.Lamports
	}
	return total
}

func (s PaymentSplit) TotalUSD() int64 {
	var total int64
	for _, e := range s {
		total += e.USD
	}
	return total
}

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderCreated   OrderStatus = "created"
	OrderPaid      OrderStatus = "paid"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderFailed    OrderStatus = "failed"
)

// ShippingAddress is persisted as structured JSON; rawAddress is the
// free-text address collected by the blink form.
type ShippingAddress struct {
	RawAddress string `json:"rawAddress"`
}

// Order is a merch order created by a blink purchase initiation.
type Order struct {
	ID              string
	UserID          string
	ProductID       int64
	Status          OrderStatus
	TotalUSD        int64
	TotalLamports   uint64
	Split           PaymentSplit
	ExternalOrderID *int64
	PaymentRef      *string
	Shipping        ShippingAddress
	PaymentMethod   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SaleState is the closed set of sale mechanisms an NFT can be in.
// Exactly one variant is active per snapshot.
type SaleState interface {
	saleState()
}

// FixedListing is a buy-now listing at a fixed SOL price.
type FixedListing struct {
	ListPriceSOL float64
}

// Auction is a running auction, optionally with a highest bid.
// A zero reserve defaults the minimum bid to the reserve floor.
type Auction struct {
	HighestBidSOL   *float64
	ReservePriceSOL float64
}

// MasterEdition sells numbered prints at a fixed lamport price.
// MerchProduct is set when the edition ships with a physical product.
type MasterEdition struct {
	PriceLamports uint64
	MerchProduct  *Product
}

// NoSale means the NFT has no active sale mechanism; offers only.
type NoSale struct{}

func (FixedListing) saleState()  {}
func (Auction) saleState()       {}
func (MasterEdition) saleState() {}
func (NoSale) saleState()        {}

// NFTSnapshot is the read-only catalog view of a token.
type NFTSnapshot struct {
	TokenID       string
	Name          string
	MinterID      string
	CollectionID  string
	AssetURL      string
	AssetType     string
	CoverImageURL *string
	Categories    []string
	Royalties     string
	ParentNFT     *string
	Sale          SaleState
}

// PrintNFT is a newly minted print edition recorded after on-chain
// confirmation.
type PrintNFT struct {
	TokenID       string
	OwnerID       string
	MinterID      string
	CollectionID  string
	Name          string
	AssetURL      string
	AssetType     string
	CoverImageURL *string
	Categories    []string
	Royalties     string
	ParentNFT     string
	MaxSupply     *int64
	Edition       int64
	MintedAt      time.Time
}

// IndexedAsset is the DAS view of a token.
type IndexedAsset struct {
	Description       string
	MasterEditionMint *string
	EditionNumber     *int64
	PrintMaxSupply    *int64
}

// PrintMint is the result of minting a new print through the editions
// collaborator: an unsigned transaction for the buyer plus the edition
// identity it will create.
type PrintMint struct {
	Transaction   string
	EditionNumber int64
	EditionMint   string
}

// FulfillmentRequest carries everything the shipping collaborator needs
// to open an external order.
type FulfillmentRequest struct {
	Order      *Order
	Product    *Product
	User       *User
	Email      string
	Size       *string
	PaymentRef string
}

// PrintMintedEvent notifies downstream consumers that a print edition
// was indexed. Delivery is at-least-once; consumers dedupe on TokenID.
type PrintMintedEvent struct {
	TokenID   string    `json:"token_id"`
	ParentNFT string    `json:"parent_nft"`
	OwnerID   string    `json:"owner_id"`
	MinterID  string    `json:"minter_id"`
	Edition   int64     `json:"edition"`
	MintedAt  time.Time `json:"minted_at"`
}

// OrderFulfilledEvent notifies downstream consumers that an order was
// confirmed and handed to fulfillment.
type OrderFulfilledEvent struct {
	OrderID         string    `json:"order_id"`
	ProductID       int64     `json:"product_id"`
	UserID          string    `json:"user_id"`
	ExternalOrderID int64     `json:"external_order_id"`
	PaymentRef      string    `json:"payment_ref"`
	FulfilledAt     time.Time `json:"fulfilled_at"`
}

// ProductRepository reads merch products.
type ProductRepository interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
}

// UserRepository resolves and creates marketplace users.
type UserRepository interface {
	GetUserByWallet(ctx context.Context, wallet string) (*User, error)
	CreateUserFromWallet(ctx context.Context, wallet, email string) (*User, error)
}

// OrderRepository persists orders. ConfirmOrder is the single
// at-most-once enforcement point for order confirmation: it attaches
// the external order id, payment reference, and fulfilled status in one
// conditional update gated on the payment reference still being unset,
// and returns ErrOrderAlreadyPaid when the condition does not hold.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	ConfirmOrder(ctx context.Context, id string, externalOrderID int64, paymentRef string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// Catalog reads NFT snapshots and records newly indexed prints.
type Catalog interface {
	GetNFT(ctx context.Context, tokenID string) (*NFTSnapshot, error)
	InsertPrint(ctx context.Context, print *PrintNFT) error
}

// RateSource quotes the live USD value of one SOL.
type RateSource interface {
	USDPerSOL(ctx context.Context) (float64, error)
}

// BalanceSource reads an account's lamport balance.
type BalanceSource interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
}

// TransactionBuilder assembles an unsigned, fee-primed payment
// transaction for the given payer and split.
type TransactionBuilder interface {
	BuildPaymentTransaction(ctx context.Context, payer string, split PaymentSplit) (string, error)
}

// PaymentVerifier confirms a payment reference satisfies an order.
// ErrPaymentNotFound is transient; ErrPaymentMismatch is terminal.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, reference string, order *Order) error
}

// FulfillmentClient opens an order with the external shipping carrier
// and returns its identifier.
type FulfillmentClient interface {
	CreateOrder(ctx context.Context, req *FulfillmentRequest) (int64, error)
}

// EditionMinter mints a new print of a master edition for a buyer.
type EditionMinter interface {
	MintPrint(ctx context.Context, tokenID, buyer string) (*PrintMint, error)
}

// AssetIndex is the read-only DAS lookup.
type AssetIndex interface {
	GetAsset(ctx context.Context, tokenID string) (*IndexedAsset, error)
}

// EventPublisher emits domain events. Emission is at-least-once; the
// receiving side is responsible for idempotent consumption.
type EventPublisher interface {
	PublishPrintMinted(ctx context.Context, event *PrintMintedEvent) error
	PublishOrderFulfilled(ctx context.Context, event *OrderFulfilledEvent) error
}
