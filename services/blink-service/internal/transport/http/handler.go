package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fosterlabs/blink-engine/shared/logging"
	"github.com/fosterlabs/blink-engine/shared/metrics"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/config"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
	"github.com/fosterlabs/blink-engine/services/blink-service/internal/service"
)

// Handler adapts the Actions protocol over HTTP. Blink paths overlap
// structurally (merch and NFT routes share the /v1/blinks prefix with
// wildcards in different positions), so dispatch is by explicit
// segment matching with NFT routes taking precedence.
type Handler struct {
	resolver *service.Resolver
	service  *service.Service
	cfg      *config.Config
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

func NewHandler(resolver *service.Resolver, svc *service.Service, cfg *config.Config, logger *logging.Logger, m *metrics.Metrics) *Handler {
	return &Handler{resolver: resolver, service: svc, cfg: cfg, logger: logger, metrics: m}
}

// Register mounts the blink routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/blinks/", h.dispatch)
	mux.HandleFunc("GET /actions.json", h.actionsJSON)
	mux.HandleFunc("GET /health", h.health)
}

// postBody is the Actions POST payload. Signature carries the landed
// transaction signature on chained actions.
type postBody struct {
	Account   string `json:"account"`
	Signature string `json:"signature,omitempty"`
}

// statusRecorder captures the response status for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.writeActionHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	segments := splitPath(strings.TrimPrefix(r.URL.Path, "/v1/blinks/"))
	route := h.route(recorder, r, segments)

	if h.metrics != nil {
		h.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.status)).Inc()
		h.metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	}
}

// route returns the matched route label for metrics.
func (h *Handler) route(w http.ResponseWriter, r *http.Request, segments []string) string {
	switch r.Method {
	case http.MethodGet:
		switch {
		case len(segments) == 2 && segments[0] == "nft":
			h.getNFT(w, r, segments[1])
			return "nft_blink"
		case len(segments) == 3 && segments[1] == "merch":
			h.getMerch(w, r, segments[0], segments[2])
			return "merch_blink"
		}
	case http.MethodPost:
		switch {
		case len(segments) == 3 && segments[0] == "nft" && segments[1] == "index-print":
			h.postIndexPrint(w, r, segments[2])
			return "index_print"
		case len(segments) == 3 && segments[0] == "nft":
			h.postNFTAction(w, r, segments[1], segments[2])
			return "nft_action"
		case len(segments) == 3 && segments[0] == "merch" && segments[2] == "checkout":
			h.postCheckout(w, r, segments[1])
			return "checkout"
		case len(segments) == 3 && segments[1] == "merch":
			h.postMerch(w, r, segments[0], segments[2])
			return "merch_initiate"
		}
	}
	h.writeError(w, http.StatusNotFound, "unknown blink")
	return "unknown"
}

func (h *Handler) getMerch(w http.ResponseWriter, r *http.Request, artist, item string) {
	productID, err := strconv.ParseInt(item, 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusOK, domain.DisabledDescriptor("Product unavailable", "This product could not be found"))
		return
	}
	h.writeJSON(w, http.StatusOK, h.resolver.DescribeProduct(r.Context(), artist, productID))
}

func (h *Handler) getNFT(w http.ResponseWriter, r *http.Request, tokenID string) {
	h.writeJSON(w, http.StatusOK, h.resolver.DescribeNFT(r.Context(), tokenID))
}

func (h *Handler) postMerch(w http.ResponseWriter, r *http.Request, artist, item string) {
	productID, err := strconv.ParseInt(item, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	in := service.InitiateMerchInput{
		ProductID: productID,
		Account:   body.Account,
		Email:     query.Get("email"),
		Address:   query.Get("address"),
	}
	if size := query.Get("size"); size != "" {
		in.Size = &size
	}
	if in.Email == "" || in.Address == "" {
		h.writeError(w, http.StatusBadRequest, "email and address are required")
		return
	}

	resp, err := h.service.InitiateMerchPurchase(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) postCheckout(w http.ResponseWriter, r *http.Request, orderID string) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	in := service.ConfirmInput{
		OrderID:    orderID,
		Account:    body.Account,
		PaymentRef: body.Signature,
		Email:      query.Get("email"),
	}
	if size := query.Get("size"); size != "" {
		in.Size = &size
	}

	descriptor, err := h.service.ConfirmMerchOrder(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, descriptor)
}

func (h *Handler) postNFTAction(w http.ResponseWriter, r *http.Request, tokenID, action string) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	in := service.NFTActionInput{
		TokenID: tokenID,
		Action:  action,
		Account: body.Account,
	}
	if raw := r.URL.Query().Get("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid price")
			return
		}
		in.Price = &price
	}

	resp, err := h.service.InitiateNFTAction(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) postIndexPrint(w http.ResponseWriter, r *http.Request, tokenID string) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	descriptor, err := h.service.IndexPrint(r.Context(), service.IndexPrintInput{
		TokenID: tokenID,
		Account: body.Account,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, descriptor)
}

// actionsJSON maps site URLs to action endpoints for wallet unfurling.
func (h *Handler) actionsJSON(w http.ResponseWriter, _ *http.Request) {
	h.writeActionHeaders(w)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"rules": []map[string]string{
			{"pathPattern": "/**", "apiPath": h.cfg.PublicURL + "/v1/blinks/**"},
		},
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) (postBody, bool) {
	var body postBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return postBody{}, false
	}
	if body.Account == "" {
		h.writeError(w, http.StatusBadRequest, "account is required")
		return postBody{}, false
	}
	return body, true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrNFTNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrOrderAlreadyPaid):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrPaymentNotFound):
		// Transient: the reference may not be visible yet, the wallet
		// should retry.
		status = http.StatusConflict
	case errors.Is(err, domain.ErrSoldOut),
		errors.Is(err, domain.ErrSaleNotStarted),
		errors.Is(err, domain.ErrSaleEnded),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrMissingPaymentRef),
		errors.Is(err, domain.ErrPaymentMismatch),
		errors.Is(err, domain.ErrUnknownAction),
		errors.Is(err, domain.ErrActionNotImplemented),
		errors.Is(err, domain.ErrNotAPrint),
		errors.Is(err, domain.ErrNoMasterEdition):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
		h.logger.WithContext(r.Context()).WithError(err).Error("blink request failed")
		if h.metrics != nil {
			h.metrics.ErrorsTotal.WithLabelValues("http").Inc()
		}
	}
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, domain.ActionError{Message: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("failed to encode response")
	}
}

// writeActionHeaders sets the headers wallets require on every blink
// response, including permissive CORS for cross-origin unfurling.
func (h *Handler) writeActionHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Blockchain-Ids", domain.BlockchainID(h.cfg.Network))
	w.Header().Set("X-Action-Version", "2.1.3")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept-Encoding")
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
