package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fosterlabs/blink-engine/shared/logging"
	"github.com/fosterlabs/blink-engine/shared/metrics"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/config"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/payment"
)

const solSymbol = "◎"

// Resolver builds action descriptors for merch and NFT blinks.
type Resolver struct {
	products  domain.ProductRepository
	users     domain.UserRepository
	catalog   domain.Catalog
	assets    domain.AssetIndex
	converter *payment.Converter
	cfg       *config.Config
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

func NewResolver(
	products domain.ProductRepository,
	users domain.UserRepository,
	catalog domain.Catalog,
	assets domain.AssetIndex,
	converter *payment.Converter,
	cfg *config.Config,
	logger *logging.Logger,
	m *metrics.Metrics,
) *Resolver {
	return &Resolver{
		products:  products,
		users:     users,
		catalog:   catalog,
		assets:    assets,
		converter: converter,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
	}
}

// DescribeProduct resolves the merch blink for a product. Resolution
// never fails the unfurl: sale gating and lookup failures degrade to a
// disabled descriptor carrying the reason.
func (r *Resolver) DescribeProduct(ctx context.Context, artist string, productID int64) *domain.ActionDescriptor {
	if r.metrics != nil {
		r.metrics.ActionsResolved.WithLabelValues("merch").Inc()
	}

	product, err := r.products.GetProduct(ctx, productID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("product_id", productID).Warn("merch blink resolution failed")
		return domain.DisabledDescriptor("Product unavailable", "This product could not be found")
	}

	descriptor := &domain.ActionDescriptor{
		Type:        domain.ActionTypeAction,
		Icon:        product.Icon(),
		Title:       product.Name,
		Description: product.Description,
		Label:       "Buy",
	}

	if err := product.Purchasable(nowFunc()); err != nil {
		descriptor.Disabled = true
		descriptor.Error = &domain.ActionError{Message: err.Error()}
		return descriptor
	}

	rate := r.converter.Rate(ctx)
	totalUSD := product.SellingPriceUSD + domain.ShippingSurchargeUSD
	label := buyLabel(totalUSD, rate)
	descriptor.Label = label

	href := fmt.Sprintf("%s/v1/blinks/%s/merch/%d?email={email}&address={address}", r.cfg.PublicURL, artist, product.ID)
	parameters := []domain.ActionParameter{
		{Type: "email", Name: "email", Label: "Email", Required: true},
		{Type: "textarea", Name: "address", Label: "Shipping address", Required: true},
	}
	if product.Fulfillment == domain.FulfillmentFoster {
		href += "&size={size}"
		parameters = append(parameters, domain.ActionParameter{
			Type:     "select",
			Name:     "size",
			Label:    "Size",
			Required: true,
			Options:  domain.SizeOptions(),
		})
	}

	descriptor.Links = &domain.ActionLinks{
		Actions: []domain.LinkedAction{{Label: label, Href: href, Parameters: parameters}},
	}
	return descriptor
}

// DescribeNFT resolves the NFT blink for a token. The catalog snapshot
// decides which single sale branch renders; the DAS description lookup
// runs concurrently since neither depends on the other.
func (r *Resolver) DescribeNFT(ctx context.Context, tokenID string) *domain.ActionDescriptor {
	if r.metrics != nil {
		r.metrics.ActionsResolved.WithLabelValues("nft").Inc()
	}

	descriptionCh := make(chan string, 1)
	go func() {
		asset, err := r.assets.GetAsset(ctx, tokenID)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("token_id", tokenID).Warn("asset description lookup failed")
			descriptionCh <- ""
			return
		}
		descriptionCh <- asset.Description
	}()

	nft, err := r.catalog.GetNFT(ctx, tokenID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("token_id", tokenID).Warn("nft blink resolution failed")
		return domain.DisabledDescriptor("NFT unavailable", "This NFT could not be found")
	}

	title := nft.Name
	if minter, err := r.users.GetUserByWallet(ctx, nft.MinterID); err == nil && minter.Username != nil {
		title = fmt.Sprintf("%s by @%s", nft.Name, *minter.Username)
	}

	descriptor := &domain.ActionDescriptor{
		Type:        domain.ActionTypeAction,
		Icon:        nftIcon(nft),
		Title:       title,
		Description: <-descriptionCh,
		Label:       "View",
	}

	rate := r.converter.Rate(ctx)
	base := fmt.Sprintf("%s/v1/blinks/nft/%s", r.cfg.PublicURL, tokenID)

	switch sale := nft.Sale.(type) {
	case domain.FixedListing:
		label := solLabel("Buy now for", sale.ListPriceSOL, rate)
		descriptor.Label = label
		descriptor.Links = &domain.ActionLinks{Actions: []domain.LinkedAction{
			{Label: label, Href: base + "/buy"},
		}}

	case domain.Auction:
		minimum := sale.ReservePriceSOL
		if minimum == 0 {
			minimum = domain.ReserveFloorSOL
		}
		if sale.HighestBidSOL != nil {
			minimum = *sale.HighestBidSOL + domain.BidIncrementSOL
		}
		label := solLabel("Place bid for", minimum, rate)
		descriptor.Label = label
		min := minimum
		descriptor.Links = &domain.ActionLinks{Actions: []domain.LinkedAction{
			{
				Label: label,
				Href:  fmt.Sprintf("%s/bid?price=%.2f", base, minimum),
			},
			{
				Label: "Place bid",
				Href:  base + "/bid?price={price}",
				Parameters: []domain.ActionParameter{
					{Type: "number", Name: "price", Label: "Custom amount", Required: true, Min: &min},
				},
			},
		}}

	case domain.MasterEdition:
		lamports := sale.PriceLamports
		if sale.MerchProduct != nil && rate > 0 {
			lamports += merchAddonLamports(sale.MerchProduct.FosterAmountUSD, rate)
		}
		sol := payment.LamportsToSol(lamports)
		label := fmt.Sprintf("Mint print for %s%.2f", solSymbol, sol)
		if rate > 0 {
			label = fmt.Sprintf("Mint print for %s%.2f | $%.2f", solSymbol, sol, sol*rate)
		}
		descriptor.Label = label
		descriptor.Links = &domain.ActionLinks{Actions: []domain.LinkedAction{
			{Label: label, Href: base + "/buy-print"},
		}}

	case domain.NoSale:
		minimum := domain.OfferFloorSOL
		min := minimum
		label := "Place offer"
		descriptor.Label = label
		descriptor.Links = &domain.ActionLinks{Actions: []domain.LinkedAction{
			{
				Label: label,
				Href:  base + "/place-offer?price={price}",
				Parameters: []domain.ActionParameter{
					{Type: "number", Name: "price", Label: fmt.Sprintf("Offer amount (min %s%.2f)", solSymbol, minimum), Required: true, Min: &min},
				},
			},
		}}
	}

	return descriptor
}

// merchAddonLamports prices the physical product bundled with a master
// edition print, slippage-buffered, from its platform fee share.
func merchAddonLamports(fosterAmountUSD int64, usdPerSOL float64) uint64 {
	if usdPerSOL <= 0 {
		return 0
	}
	return uint64(float64(fosterAmountUSD) * 1e7 * (1 + payment.SlippageRate) / usdPerSOL)
}

// buyLabel renders the merch buy label with both SOL and fiat when a
// quote is available, fiat only otherwise.
func buyLabel(totalUSDMinor int64, usdPerSOL float64) string {
	usd := float64(totalUSDMinor) / 100
	if usdPerSOL <= 0 {
		return fmt.Sprintf("Buy for $%.2f", usd)
	}
	sol := payment.LamportsToSol(payment.USDToLamports(totalUSDMinor, usdPerSOL))
	return fmt.Sprintf("Buy for %s%.2f | $%.2f", solSymbol, sol, usd)
}

// solLabel renders a SOL amount with its approximate fiat equivalent
// when a quote is available.
func solLabel(verb string, sol, usdPerSOL float64) string {
	if usdPerSOL <= 0 {
		return fmt.Sprintf("%s %s%.2f", verb, solSymbol, sol)
	}
	return fmt.Sprintf("%s %s%.2f (~$%.2f)", verb, solSymbol, sol, sol*usdPerSOL)
}

const nftIconCDN = "https://cdn.helius-rpc.com/cdn-cgi/image/quality=75/"

// nftIcon picks the display image for a token. Video, audio, and vr
// assets render their cover image; everything else renders the asset
// itself. The result is served through the image CDN.
func nftIcon(nft *domain.NFTSnapshot) string {
	url := nft.AssetURL
	switch {
	case strings.HasPrefix(nft.AssetType, "video"),
		strings.HasPrefix(nft.AssetType, "audio"),
		nft.AssetType == "vr":
		if nft.CoverImageURL == nil {
			return ""
		}
		url = *nft.CoverImageURL
	}
	if url == "" {
		return ""
	}
	return nftIconCDN + url
}
