package service

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/fosterlabs/blink-engine/shared/logging"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/config"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
)

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if got := args.Get(0); got != nil {
		return got.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetUserByWallet(ctx context.Context, wallet string) (*domain.User, error) {
	args := m.Called(ctx, wallet)
	if got := args.Get(0); got != nil {
		return got.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) CreateUserFromWallet(ctx context.Context, wallet, email string) (*domain.User, error) {
	args := m.Called(ctx, wallet, email)
	if got := args.Get(0); got != nil {
		return got.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if got := args.Get(0); got != nil {
		return got.(*domain.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) ConfirmOrder(ctx context.Context, id string, externalOrderID int64, paymentRef string) error {
	args := m.Called(ctx, id, externalOrderID, paymentRef)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkFailed(ctx context.Context, id, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetNFT(ctx context.Context, tokenID string) (*domain.NFTSnapshot, error) {
	args := m.Called(ctx, tokenID)
	if got := args.Get(0); got != nil {
		return got.(*domain.NFTSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalog) InsertPrint(ctx context.Context, print *domain.PrintNFT) error {
	args := m.Called(ctx, print)
	return args.Error(0)
}

type MockAssetIndex struct {
	mock.Mock
}

func (m *MockAssetIndex) GetAsset(ctx context.Context, tokenID string) (*domain.IndexedAsset, error) {
	args := m.Called(ctx, tokenID)
	if got := args.Get(0); got != nil {
		return got.(*domain.IndexedAsset), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockRateSource struct {
	mock.Mock
}

func (m *MockRateSource) USDPerSOL(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

type MockTransactionBuilder struct {
	mock.Mock
}

func (m *MockTransactionBuilder) BuildPaymentTransaction(ctx context.Context, payer string, split domain.PaymentSplit) (string, error) {
	args := m.Called(ctx, payer, split)
	return args.String(0), args.Error(1)
}

type MockBalanceSource struct {
	mock.Mock
}

func (m *MockBalanceSource) GetBalance(ctx context.Context, address string) (uint64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(uint64), args.Error(1)
}

type MockPaymentVerifier struct {
	mock.Mock
}

func (m *MockPaymentVerifier) VerifyPayment(ctx context.Context, reference string, order *domain.Order) error {
	args := m.Called(ctx, reference, order)
	return args.Error(0)
}

type MockFulfillmentClient struct {
	mock.Mock
}

func (m *MockFulfillmentClient) CreateOrder(ctx context.Context, req *domain.FulfillmentRequest) (int64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(int64), args.Error(1)
}

type MockEditionMinter struct {
	mock.Mock
}

func (m *MockEditionMinter) MintPrint(ctx context.Context, tokenID, buyer string) (*domain.PrintMint, error) {
	args := m.Called(ctx, tokenID, buyer)
	if got := args.Get(0); got != nil {
		return got.(*domain.PrintMint), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishPrintMinted(ctx context.Context, event *domain.PrintMintedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishOrderFulfilled(ctx context.Context, event *domain.OrderFulfilledEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func testLogger() *logging.Logger {
	return logging.NewLogger(&logging.Config{
		Level:   logging.LevelError,
		Service: "test",
		Output:  io.Discard,
	})
}

func testConfig() *config.Config {
	return &config.Config{
		ServiceName:         "blink-service",
		Environment:         "test",
		PublicURL:           "https://blinks.test",
		Network:             "devnet",
		MerchPaymentAddress: merchWallet,
	}
}
