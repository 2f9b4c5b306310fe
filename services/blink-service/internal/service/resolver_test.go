package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/payment"
)

type ResolverTestSuite struct {
	suite.Suite
	products *MockProductRepository
	users    *MockUserRepository
	catalog  *MockCatalog
	assets   *MockAssetIndex
	rates    *MockRateSource
	resolver *Resolver
}

func (suite *ResolverTestSuite) SetupTest() {
	suite.products = new(MockProductRepository)
	suite.users = new(MockUserRepository)
	suite.catalog = new(MockCatalog)
	suite.assets = new(MockAssetIndex)
	suite.rates = new(MockRateSource)

	converter := payment.NewConverter(suite.rates, nil, testLogger(), nil)
	suite.resolver = NewResolver(
		suite.products, suite.users, suite.catalog, suite.assets,
		converter, testConfig(), testLogger(), nil,
	)
}

func (suite *ResolverTestSuite) TearDownTest() {
	nowFunc = time.Now
}

func (suite *ResolverTestSuite) TestDescribeProduct_SellerFulfilled() {
	product := testProduct()
	product.Options.ProductImages = []string{"https://cdn.test/tee.png"}
	suite.products.On("GetProduct", mock.Anything, int64(7)).Return(product, nil)
	suite.rates.On("USDPerSOL", mock.Anything).Return(100.0, nil)

	descriptor := suite.resolver.DescribeProduct(context.Background(), "artist", 7)

	suite.Equal(domain.ActionTypeAction, descriptor.Type)
	suite.False(descriptor.Disabled)
	suite.Equal("Tour Tee", descriptor.Title)
	suite.Equal("https://cdn.test/tee.png", descriptor.Icon)
	// $35 total converts to 0.357 SOL with the slippage buffer.
	suite.Equal("Buy for ◎0.36 | $35.00", descriptor.Label)

	suite.Require().NotNil(descriptor.Links)
	suite.Require().Len(descriptor.Links.Actions, 1)
	action := descriptor.Links.Actions[0]
	suite.Contains(action.Href, "/v1/blinks/artist/merch/7?email={email}&address={address}")
	suite.NotContains(action.Href, "{size}")
	suite.Len(action.Parameters, 2)
}

func (suite *ResolverTestSuite) TestDescribeProduct_PlatformFulfilledHasSizeSelector() {
	product := testProduct()
	product.Fulfillment = domain.FulfillmentFoster
	product.Options.Addons = []domain.ProductAddon{{MockupURL: "https://cdn.test/mockup.png"}}
	suite.products.On("GetProduct", mock.Anything, int64(7)).Return(product, nil)
	suite.rates.On("USDPerSOL", mock.Anything).Return(100.0, nil)

	descriptor := suite.resolver.DescribeProduct(context.Background(), "artist", 7)

	suite.Equal("https://cdn.test/mockup.png", descriptor.Icon)
	action := descriptor.Links.Actions[0]
	suite.Contains(action.Href, "&size={size}")
	suite.Require().Len(action.Parameters, 3)

	sizes := action.Parameters[2]
	suite.Equal("size", sizes.Name)
	suite.Require().Len(sizes.Options, 6)
	suite.Equal("S", sizes.Options[0].Value)
	suite.Equal("3XL", sizes.Options[5].Label)
	suite.Equal("XXXL", sizes.Options[5].Value)
}

func (suite *ResolverTestSuite) TestDescribeProduct_SoldOutIsDisabledWithoutLinks() {
	product := testProduct()
	supply := int64(5)
	product.Supply = &supply
	product.CurrentSupply = 5
	suite.products.On("GetProduct", mock.Anything, int64(7)).Return(product, nil)

	descriptor := suite.resolver.DescribeProduct(context.Background(), "artist", 7)

	suite.True(descriptor.Disabled)
	suite.Nil(descriptor.Links)
	suite.Require().NotNil(descriptor.Error)
	suite.Contains(descriptor.Error.Message, "sold out")
}

func (suite *ResolverTestSuite) TestDescribeProduct_NotFoundIsDisabled() {
	suite.products.On("GetProduct", mock.Anything, int64(7)).Return(nil, domain.ErrProductNotFound)

	descriptor := suite.resolver.DescribeProduct(context.Background(), "artist", 7)

	suite.True(descriptor.Disabled)
	suite.Nil(descriptor.Links)
}

func (suite *ResolverTestSuite) TestDescribeProduct_ZeroRateFallsBackToFiatLabel() {
	product := testProduct()
	suite.products.On("GetProduct", mock.Anything, int64(7)).Return(product, nil)
	suite.rates.On("USDPerSOL", mock.Anything).Return(0.0, nil)

	descriptor := suite.resolver.DescribeProduct(context.Background(), "artist", 7)

	suite.False(descriptor.Disabled)
	suite.Equal("Buy for $35.00", descriptor.Label)
}

func (suite *ResolverTestSuite) nftWithSale(sale domain.SaleState) *domain.NFTSnapshot {
	nft := masterEditionNFT()
	nft.Sale = sale
	return nft
}

func (suite *ResolverTestSuite) describeNFT(sale domain.SaleState) *domain.ActionDescriptor {
	suite.catalog.On("GetNFT", mock.Anything, "master-mint").Return(suite.nftWithSale(sale), nil)
	suite.assets.On("GetAsset", mock.Anything, "master-mint").Return(&domain.IndexedAsset{Description: "City at dusk"}, nil)
	suite.users.On("GetUserByWallet", mock.Anything, sellerWallet).Return(nil, domain.ErrUserNotFound)
	suite.rates.On("USDPerSOL", mock.Anything).Return(100.0, nil)
	return suite.resolver.DescribeNFT(context.Background(), "master-mint")
}

func (suite *ResolverTestSuite) TestDescribeNFT_FixedListing() {
	descriptor := suite.describeNFT(domain.FixedListing{ListPriceSOL: 2.5})

	suite.Equal("Buy now for ◎2.50 (~$250.00)", descriptor.Label)
	suite.Equal("City at dusk", descriptor.Description)
	suite.Require().Len(descriptor.Links.Actions, 1)
	suite.Contains(descriptor.Links.Actions[0].Href, "/v1/blinks/nft/master-mint/buy")
}

func (suite *ResolverTestSuite) TestDescribeNFT_AuctionWithBidUsesIncrement() {
	bid := 1.5
	descriptor := suite.describeNFT(domain.Auction{HighestBidSOL: &bid, ReservePriceSOL: 1.0})

	suite.Equal("Place bid for ◎1.51 (~$151.00)", descriptor.Label)
	suite.Require().Len(descriptor.Links.Actions, 2)

	oneClick := descriptor.Links.Actions[0]
	suite.Equal("Place bid for ◎1.51 (~$151.00)", oneClick.Label)
	suite.Contains(oneClick.Href, "/bid?price=1.51")
	suite.Empty(oneClick.Parameters)

	custom := descriptor.Links.Actions[1]
	suite.Equal("Place bid", custom.Label)
	suite.Contains(custom.Href, "/bid?price={price}")
	suite.Require().Len(custom.Parameters, 1)
	suite.Require().NotNil(custom.Parameters[0].Min)
	suite.InDelta(1.51, *custom.Parameters[0].Min, 1e-9)
}

func (suite *ResolverTestSuite) TestDescribeNFT_AuctionZeroReserveUsesFloor() {
	descriptor := suite.describeNFT(domain.Auction{ReservePriceSOL: 0})

	suite.Equal("Place bid for ◎0.10 (~$10.00)", descriptor.Label)
	suite.Require().Len(descriptor.Links.Actions, 2)
	suite.Contains(descriptor.Links.Actions[0].Href, "/bid?price=0.10")
}

func (suite *ResolverTestSuite) TestDescribeNFT_MasterEditionAddsMerchPrice() {
	merch := testProduct()
	merch.FosterAmountUSD = 300
	descriptor := suite.describeNFT(domain.MasterEdition{
		PriceLamports: 500000000,
		MerchProduct:  merch,
	})

	// 0.5 SOL plus round(300 * 1e7 * 1.02 / 100) lamports of merch.
	suite.Contains(descriptor.Label, "Mint print for ◎")
	suite.Contains(descriptor.Label, "0.53")
	suite.Contains(descriptor.Links.Actions[0].Href, "/buy-print")
}

func (suite *ResolverTestSuite) TestDescribeNFT_NoSaleOffersOnly() {
	descriptor := suite.describeNFT(domain.NoSale{})

	suite.Equal("Place offer", descriptor.Label)
	action := descriptor.Links.Actions[0]
	suite.Contains(action.Href, "/place-offer?price={price}")
	suite.Require().NotNil(action.Parameters[0].Min)
	suite.InDelta(domain.OfferFloorSOL, *action.Parameters[0].Min, 1e-9)
}

func (suite *ResolverTestSuite) TestDescribeNFT_TitleIncludesMinterHandle() {
	handle := "skyline_artist"
	suite.catalog.On("GetNFT", mock.Anything, "master-mint").
		Return(suite.nftWithSale(domain.NoSale{}), nil)
	suite.assets.On("GetAsset", mock.Anything, "master-mint").Return(&domain.IndexedAsset{}, nil)
	suite.users.On("GetUserByWallet", mock.Anything, sellerWallet).
		Return(&domain.User{ID: "artist-id", WalletID: sellerWallet, Username: &handle}, nil)
	suite.rates.On("USDPerSOL", mock.Anything).Return(100.0, nil)

	descriptor := suite.resolver.DescribeNFT(context.Background(), "master-mint")

	suite.Equal("Skyline by @skyline_artist", descriptor.Title)
}

func (suite *ResolverTestSuite) TestDescribeNFT_ImageIconIgnoresCoverImage() {
	cover := "https://cdn.test/cover.png"
	nft := suite.nftWithSale(domain.NoSale{})
	nft.CoverImageURL = &cover
	suite.catalog.On("GetNFT", mock.Anything, "master-mint").Return(nft, nil)
	suite.assets.On("GetAsset", mock.Anything, "master-mint").Return(&domain.IndexedAsset{}, nil)
	suite.users.On("GetUserByWallet", mock.Anything, sellerWallet).Return(nil, domain.ErrUserNotFound)
	suite.rates.On("USDPerSOL", mock.Anything).Return(100.0, nil)

	descriptor := suite.resolver.DescribeNFT(context.Background(), "master-mint")

	suite.Equal(nftIconCDN+"https://cdn.test/skyline.png", descriptor.Icon)
}

func (suite *ResolverTestSuite) TestDescribeNFT_VideoIconUsesCoverImage() {
	cover := "https://cdn.test/cover.png"
	nft := suite.nftWithSale(domain.NoSale{})
	nft.AssetType = "video/mp4"
	nft.CoverImageURL = &cover
	suite.catalog.On("GetNFT", mock.Anything, "master-mint").Return(nft, nil)
	suite.assets.On("GetAsset", mock.Anything, "master-mint").Return(&domain.IndexedAsset{}, nil)
	suite.users.On("GetUserByWallet", mock.Anything, sellerWallet).Return(nil, domain.ErrUserNotFound)
	suite.rates.On("USDPerSOL", mock.Anything).Return(100.0, nil)

	descriptor := suite.resolver.DescribeNFT(context.Background(), "master-mint")

	suite.Equal(nftIconCDN+cover, descriptor.Icon)
}

func (suite *ResolverTestSuite) TestDescribeNFT_VideoWithoutCoverHasNoIcon() {
	nft := suite.nftWithSale(domain.NoSale{})
	nft.AssetType = "video/mp4"
	suite.catalog.On("GetNFT", mock.Anything, "master-mint").Return(nft, nil)
	suite.assets.On("GetAsset", mock.Anything, "master-mint").Return(&domain.IndexedAsset{}, nil)
	suite.users.On("GetUserByWallet", mock.Anything, sellerWallet).Return(nil, domain.ErrUserNotFound)
	suite.rates.On("USDPerSOL", mock.Anything).Return(100.0, nil)

	descriptor := suite.resolver.DescribeNFT(context.Background(), "master-mint")

	suite.Empty(descriptor.Icon)
}

func (suite *ResolverTestSuite) TestDescribeNFT_NotFoundIsDisabled() {
	suite.catalog.On("GetNFT", mock.Anything, "missing").Return(nil, domain.ErrNFTNotFound)
	suite.assets.On("GetAsset", mock.Anything, "missing").Return(&domain.IndexedAsset{}, nil)

	descriptor := suite.resolver.DescribeNFT(context.Background(), "missing")

	suite.True(descriptor.Disabled)
	suite.Nil(descriptor.Links)
}

func TestResolverTestSuite(t *testing.T) {
	suite.Run(t, new(ResolverTestSuite))
}
