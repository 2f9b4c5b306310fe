package fulfillment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/config"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
)

type ShipStationTestSuite struct {
	suite.Suite
	server   *httptest.Server
	received createOrderRequest
	client   *ShipStation
}

func (suite *ShipStationTestSuite) SetupTest() {
	suite.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		suite.Require().NoError(json.NewDecoder(r.Body).Decode(&suite.received))
		w.Header().Set("Content-Type", "application/json")
		suite.Require().NoError(json.NewEncoder(w).Encode(createOrderResponse{OrderID: 9001}))
	}))
	suite.client = NewShipStation(config.ShipStationConfig{
		BaseURL:   suite.server.URL,
		APIKey:    "key",
		APISecret: "secret",
	}, "devnet")
}

func (suite *ShipStationTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *ShipStationTestSuite) request() *domain.FulfillmentRequest {
	size := "XL"
	return &domain.FulfillmentRequest{
		Order: &domain.Order{
			ID:        "order-1",
			TotalUSD:  3500,
			Shipping:  domain.ShippingAddress{RawAddress: "1 Main St, Springfield"},
			CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		},
		Product: &domain.Product{
			ID:              7,
			Name:            "Tour Tee",
			SellingPriceUSD: 2000,
			Fulfillment:     domain.FulfillmentFoster,
			Options: domain.ProductOptions{
				PrintTechnique: "DTG",
				Addons: []domain.ProductAddon{
					{MockupURL: "https://cdn.test/mockup.png", RawURL: "https://cdn.test/raw.png"},
					{MockupURL: "https://cdn.test/mockup2.png", RawURL: "https://cdn.test/raw2.png"},
				},
			},
		},
		User:       &domain.User{ID: "user-1", WalletID: "wallet"},
		Email:      "fan@example.com",
		Size:       &size,
		PaymentRef: "sig",
	}
}

func (suite *ShipStationTestSuite) TestCreateOrderPayload() {
	externalID, err := suite.client.CreateOrder(context.Background(), suite.request())

	suite.Require().NoError(err)
	suite.Equal(int64(9001), externalID)

	suite.Equal("order-1", suite.received.OrderNumber)
	suite.Equal("awaiting_shipment", suite.received.OrderStatus)
	suite.Equal("2026-03-14T09:30:00", suite.received.OrderDate)
	suite.Equal("1 Main St, Springfield", suite.received.ShipTo.Street1)
	suite.Equal(suite.received.ShipTo, suite.received.BillTo)
	suite.InDelta(35.0, suite.received.AmountPaid, 1e-9)
	suite.InDelta(15.0, suite.received.ShippingAmount, 1e-9)
	suite.Contains(suite.received.InternalNotes, "ordered via blink!")
	suite.Contains(suite.received.InternalNotes, "sig")

	suite.Require().Len(suite.received.Items, 1)
	item := suite.received.Items[0]
	suite.InDelta(20.0, item.UnitPrice, 1e-9)

	options := make(map[string]string, len(item.Options))
	for _, opt := range item.Options {
		options[opt.Name] = opt.Value
	}
	suite.Equal("foster", options["type"])
	suite.Equal("https://devnet.fostermarketplace.app/_/merch/7", options["fosterUrl"])
	suite.Equal("https://cdn.test/raw.png,https://cdn.test/raw2.png", options["assetUrl"])
	suite.Equal("https://cdn.test/mockup.png,https://cdn.test/mockup2.png", options["mockupUrl"])
	suite.Equal("DTG", options["technique"])
	suite.Equal("XL", options["size"])
}

func (suite *ShipStationTestSuite) TestCreateOrderRejectsCarrierError() {
	suite.server.Close()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	suite.server = failing
	suite.client = NewShipStation(config.ShipStationConfig{BaseURL: failing.URL}, "devnet")

	_, err := suite.client.CreateOrder(context.Background(), suite.request())

	suite.Require().Error(err)
	suite.Contains(err.Error(), "order-1")
}

func TestShipStationTestSuite(t *testing.T) {
	suite.Run(t, new(ShipStationTestSuite))
}
