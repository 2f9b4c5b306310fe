package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/config"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
)

// ShipStation opens fulfillment orders with the external carrier API.
type ShipStation struct {
	client  *resty.Client
	network string
}

func NewShipStation(cfg config.ShipStationConfig, network string) *ShipStation {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.APIKey, cfg.APISecret).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &ShipStation{client: client, network: network}
}

type address struct {
	Name    string `json:"name"`
	Street1 string `json:"street1"`
}

type itemOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type orderItem struct {
	Name      string       `json:"name"`
	Quantity  int          `json:"quantity"`
	UnitPrice float64      `json:"unitPrice"`
	Options   []itemOption `json:"options,omitempty"`
}

type createOrderRequest struct {
	OrderNumber    string      `json:"orderNumber"`
	OrderDate      string      `json:"orderDate"`
	OrderStatus    string      `json:"orderStatus"`
	CustomerEmail  string      `json:"customerEmail"`
	BillTo         address     `json:"billTo"`
	ShipTo         address     `json:"shipTo"`
	Items          []orderItem `json:"items"`
	AmountPaid     float64     `json:"amountPaid"`
	ShippingAmount float64     `json:"shippingAmount"`
	InternalNotes  string      `json:"internalNotes"`
}

type createOrderResponse struct {
	OrderID int64 `json:"orderId"`
}

// CreateOrder registers the paid order for shipment and returns the
// carrier's order id. The payment reference travels in the internal
// notes so support can trace any order back to its transaction.
func (s *ShipStation) CreateOrder(ctx context.Context, req *domain.FulfillmentRequest) (int64, error) {
	recipient := req.Email
	if req.User.Username != nil {
		recipient = *req.User.Username
	}

	item := orderItem{
		Name:      req.Product.Name,
		Quantity:  1,
		UnitPrice: float64(req.Product.SellingPriceUSD) / 100,
	}
	item.Options = []itemOption{
		{Name: "type", Value: req.Product.Fulfillment.Tag()},
		{Name: "fosterUrl", Value: fmt.Sprintf("%s/_/merch/%d", domain.StorefrontHost(s.network), req.Product.ID)},
		{Name: "assetUrl", Value: addonURLs(req.Product, func(a domain.ProductAddon) string { return a.RawURL })},
		{Name: "mockupUrl", Value: addonURLs(req.Product, func(a domain.ProductAddon) string { return a.MockupURL })},
	}
	if req.Product.Options.PrintTechnique != "" {
		item.Options = append(item.Options, itemOption{Name: "technique", Value: req.Product.Options.PrintTechnique})
	}
	if req.Size != nil {
		item.Options = append(item.Options, itemOption{Name: "size", Value: *req.Size})
	}

	shipTo := address{Name: recipient, Street1: req.Order.Shipping.RawAddress}
	body := createOrderRequest{
		OrderNumber:    req.Order.ID,
		OrderDate:      req.Order.CreatedAt.UTC().Format("2006-01-02T15:04:05"),
		OrderStatus:    "awaiting_shipment",
		CustomerEmail:  req.Email,
		BillTo:         shipTo,
		ShipTo:         shipTo,
		Items:          []orderItem{item},
		AmountPaid:     float64(req.Order.TotalUSD) / 100,
		ShippingAmount: float64(domain.ShippingSurchargeUSD) / 100,
		InternalNotes:  fmt.Sprintf("ordered via blink! Paid in SOL, reference %s", req.PaymentRef),
	}

	var out createOrderResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/orders/createorder")
	if err != nil {
		return 0, fmt.Errorf("fulfillment request failed for order %s: %w", req.Order.ID, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("fulfillment for order %s returned %s", req.Order.ID, resp.Status())
	}
	if out.OrderID == 0 {
		return 0, fmt.Errorf("fulfillment for order %s returned no order id", req.Order.ID)
	}
	return out.OrderID, nil
}

func addonURLs(product *domain.Product, pick func(domain.ProductAddon) string) string {
	urls := make([]string, 0, len(product.Options.Addons))
	for _, addon := range product.Options.Addons {
		if url := pick(addon); url != "" {
			urls = append(urls, url)
		}
	}
	return strings.Join(urls, ",")
}
