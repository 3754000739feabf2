package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"exchange-rate-facade/internal/domain/model"
	"exchange-rate-facade/internal/domain/ports"
	"exchange-rate-facade/internal/metrics"
	"exchange-rate-facade/pkg/logger"
)

const maxRequestBodyBytes = 1 << 20

type ErrorResponse struct {
	Message string `json:"message"`
}

type PairRateResponse struct {
	From model.Currency `json:"from"`
	To   model.Currency `json:"to"`
	Rate float64        `json:"rate"`
}

type RatesResponse struct {
	Rates map[model.Currency]float64 `json:"rates"`
}

// OverrideRequest is the body of POST /api/exchange-rates. Rate is kept raw so
// that a present but non-numeric value can be told apart from a missing one.
type OverrideRequest struct {
	From model.Currency  `json:"from"`
	To   model.Currency  `json:"to"`
	Rate json.RawMessage `json:"rate"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type Handler struct {
	service    ports.ExchangeService
	currencies *model.Allowlist
	log        *logger.Logger
	metrics    *metrics.Metrics
}

func NewHandler(service ports.ExchangeService, currencies *model.Allowlist, log *logger.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service:    service,
		currencies: currencies,
		log:        log,
		metrics:    metrics,
	}
}

func (h *Handler) GetExchangeRateHandler(w http.ResponseWriter, r *http.Request) {
	h.metrics.PairRequestsTotal.Inc()

	from := model.Currency(r.URL.Query().Get("from"))
	to := model.Currency(r.URL.Query().Get("to"))

	if from == "" || to == "" {
		h.sendErrorResponse(w, http.StatusBadRequest, `Both "from" and "to" query parameters are required`)
		return
	}

	if !h.currencies.IsSupported(from) || !h.currencies.IsSupported(to) {
		h.sendErrorResponse(w, http.StatusBadRequest, "Invalid currency code provided")
		return
	}

	rate, err := h.service.ResolvePair(r.Context(), from, to)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.sendJSON(w, http.StatusOK, PairRateResponse{From: from, To: to, Rate: rate})
}

func (h *Handler) GetAllExchangeRatesHandler(w http.ResponseWriter, r *http.Request) {
	h.metrics.ListRequestsTotal.Inc()

	rates, err := h.service.ResolveAll(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.sendJSON(w, http.StatusOK, RatesResponse{Rates: rates})
}

func (h *Handler) AddExchangeRateHandler(w http.ResponseWriter, r *http.Request) {
	h.metrics.OverrideRequestsTotal.Inc()

	req, ok := decodeModel[OverrideRequest](w, r, h)
	if !ok {
		return
	}

	if req.From == "" || req.To == "" || len(req.Rate) == 0 || string(req.Rate) == "null" {
		h.sendErrorResponse(w, http.StatusBadRequest, `All fields ("from", "to", "rate") are required`)
		return
	}

	if !h.currencies.IsSupported(req.From) || !h.currencies.IsSupported(req.To) {
		h.sendErrorResponse(w, http.StatusBadRequest, "Invalid currency code provided")
		return
	}

	var rate float64
	if err := json.Unmarshal(req.Rate, &rate); err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, "Rate must be a positive number")
		return
	}

	if err := h.service.RegisterOverride(r.Context(), req.From, req.To, rate); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.sendJSON(w, http.StatusCreated, MessageResponse{
		Message: fmt.Sprintf("Exchange rate added for %s to %s", req.From, req.To),
	})
}

func (h *Handler) FlushCacheHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.FlushCache(r.Context()); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	h.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func decodeModel[T any](w http.ResponseWriter, r *http.Request, h *Handler) (T, bool) {
	var requestBody T

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendErrorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return requestBody, false
		}

		h.log.Debug("Failed to decode request body", "error", err)
		h.sendErrorResponse(w, http.StatusBadRequest, "Request body must be a JSON object")
		return requestBody, false
	}

	return requestBody, true
}

func (h *Handler) sendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) sendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	h.sendJSON(w, statusCode, ErrorResponse{Message: message})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorMessage := "internal server error"

	switch {
	case errors.Is(err, model.ErrInvalidRate):
		statusCode = http.StatusBadRequest
		errorMessage = "Rate must be a positive number"
	case errors.Is(err, model.ErrRateUnavailable):
		statusCode = http.StatusNotFound
		errorMessage = "exchange rate not available for the requested currencies"
	case errors.Is(err, model.ErrUpstreamMalformed):
		statusCode = http.StatusBadGateway
		errorMessage = "invalid response from rate provider"
	case errors.Is(err, model.ErrUpstreamUnavailable):
		statusCode = http.StatusServiceUnavailable
		errorMessage = "rate provider unavailable"
	}

	h.log.Error("Service error", "error", err, "status_code", statusCode)
	h.sendErrorResponse(w, statusCode, errorMessage)
}
