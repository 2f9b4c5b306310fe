package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosterlabs/blink-engine/shared/logging"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/config"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/payment"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/service"
)

type stubProducts struct {
	product *domain.Product
	err     error
}

func (s *stubProducts) GetProduct(context.Context, int64) (*domain.Product, error) {
	return s.product, s.err
}

type stubUsers struct{}

func (stubUsers) GetUserByWallet(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (stubUsers) CreateUserFromWallet(context.Context, string, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

type stubCatalog struct{}

func (stubCatalog) GetNFT(context.Context, string) (*domain.NFTSnapshot, error) {
	return nil, domain.ErrNFTNotFound
}

func (stubCatalog) InsertPrint(context.Context, *domain.PrintNFT) error { return nil }

type stubAssets struct{}

func (stubAssets) GetAsset(context.Context, string) (*domain.IndexedAsset, error) {
	return &domain.IndexedAsset{}, nil
}

type stubRates struct{}

func (stubRates) USDPerSOL(context.Context) (float64, error) { return 100, nil }

func newTestHandler(t *testing.T, products *stubProducts) *Handler {
	t.Helper()
	logger := logging.NewLogger(&logging.Config{
		Level:   logging.LevelError,
		Service: "test",
		Output:  io.Discard,
	})
	cfg := &config.Config{
		PublicURL: "https://blinks.test",
		Network:   "devnet",
	}
	converter := payment.NewConverter(stubRates{}, nil, logger, nil)
	resolver := service.NewResolver(products, stubUsers{}, stubCatalog{}, stubAssets{}, converter, cfg, logger, nil)
	svc := service.NewService(service.Deps{
		Products:  products,
		Users:     stubUsers{},
		Catalog:   stubCatalog{},
		Assets:    stubAssets{},
		Converter: converter,
		Config:    cfg,
		Logger:    logger,
	})
	return NewHandler(resolver, svc, cfg, logger, nil)
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Register(mux)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)
	return recorder
}

func TestGetMerchBlink_ReturnsDescriptorWithHeaders(t *testing.T) {
	handler := newTestHandler(t, &stubProducts{product: &domain.Product{
		ID:              7,
		Name:            "Tour Tee",
		SellingPriceUSD: 2000,
		Fulfillment:     domain.FulfillmentSeller,
		SellerWallet:    "seller",
	}})

	resp := serve(handler, httptest.NewRequest(http.MethodGet, "/v1/blinks/artist/merch/7", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, domain.DevnetBlockchainID, resp.Header().Get("X-Blockchain-Ids"))
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))

	var descriptor domain.ActionDescriptor
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &descriptor))
	assert.Equal(t, domain.ActionTypeAction, descriptor.Type)
	assert.Equal(t, "Tour Tee", descriptor.Title)
	assert.False(t, descriptor.Disabled)

	// Wire casing is part of the protocol.
	assert.Contains(t, resp.Body.String(), `"type":"action"`)
	assert.Contains(t, resp.Body.String(), `"label":`)
}

func TestGetMerchBlink_UnknownProductServesDisabledDescriptor(t *testing.T) {
	handler := newTestHandler(t, &stubProducts{err: domain.ErrProductNotFound})

	resp := serve(handler, httptest.NewRequest(http.MethodGet, "/v1/blinks/artist/merch/7", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var descriptor domain.ActionDescriptor
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &descriptor))
	assert.True(t, descriptor.Disabled)
}

func TestGetMerchBlink_NonNumericIDServesDisabledDescriptor(t *testing.T) {
	handler := newTestHandler(t, &stubProducts{})

	resp := serve(handler, httptest.NewRequest(http.MethodGet, "/v1/blinks/artist/merch/not-a-number", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var descriptor domain.ActionDescriptor
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &descriptor))
	assert.True(t, descriptor.Disabled)
}

func TestPostMerchBlink_RequiresAccount(t *testing.T) {
	handler := newTestHandler(t, &stubProducts{})

	req := httptest.NewRequest(http.MethodPost,
		"/v1/blinks/artist/merch/7?email=a@b.c&address=somewhere",
		strings.NewReader(`{}`))
	resp := serve(handler, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "account is required")
}

func TestPostMerchBlink_RequiresEmailAndAddress(t *testing.T) {
	handler := newTestHandler(t, &stubProducts{})

	req := httptest.NewRequest(http.MethodPost, "/v1/blinks/artist/merch/7",
		strings.NewReader(`{"account":"someone"}`))
	resp := serve(handler, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "email and address are required")
}

func TestPostCheckout_MissingSignature(t *testing.T) {
	handler := newTestHandler(t, &stubProducts{})

	req := httptest.NewRequest(http.MethodPost, "/v1/blinks/merch/order-1/checkout?email=a@b.c",
		strings.NewReader(`{"account":"someone"}`))
	resp := serve(handler, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "missing payment reference")
}

func TestUnknownBlinkPath(t *testing.T) {
	handler := newTestHandler(t, &stubProducts{})

	resp := serve(handler, httptest.NewRequest(http.MethodGet, "/v1/blinks/whatever", nil))

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestOptionsPreflight(t *testing.T) {
	handler := newTestHandler(t, &stubProducts{})

	resp := serve(handler, httptest.NewRequest(http.MethodOptions, "/v1/blinks/artist/merch/7", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "GET, POST, OPTIONS", resp.Header().Get("Access-Control-Allow-Methods"))
}

func TestNFTIndexPrintRouteTakesPrecedenceOverActionRoute(t *testing.T) {
	handler := newTestHandler(t, &stubProducts{})

	// index-print with a catalog miss surfaces as not found rather than
	// being parsed as an action named "index-print".
	req := httptest.NewRequest(http.MethodPost, "/v1/blinks/nft/index-print/some-mint",
		strings.NewReader(`{"account":"someone"}`))
	resp := serve(handler, req)

	assert.NotEqual(t, http.StatusOK, resp.Code)
	assert.NotContains(t, resp.Body.String(), "unknown action")
}
