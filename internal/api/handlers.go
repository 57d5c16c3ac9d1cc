package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/intake"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/models"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/status"
	"github.com/shopspring/decimal"
)

// Handler exposes webhook intake and transaction queries over HTTP.
type Handler struct {
	gateway *intake.Gateway
	status  *status.Service
	logger  zerolog.Logger
	now     func() time.Time
}

func NewHandler(gateway *intake.Gateway, statusSvc *status.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		gateway: gateway,
		status:  statusSvc,
		logger:  logger,
		now:     time.Now,
	}
}

// Router builds the chi mux for the service.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", h.Health)
	r.Post("/v1/webhooks/transactions", h.SubmitWebhook)
	r.Get("/v1/transactions/{transactionID}", h.GetTransaction)
	return r
}

type healthResponse struct {
	Status      string `json:"status"`
	CurrentTime string `json:"current_time"`
}

type submitResponse struct {
	Message string `json:"message"`
}

type transactionResponse struct {
	TransactionID      string          `json:"transaction_id"`
	SourceAccount      string          `json:"source_account"`
	DestinationAccount string          `json:"destination_account"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Status             string          `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	ProcessedAt        *time.Time      `json:"processed_at"`
}

// Health reports process liveness and the current time.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:      "HEALTHY",
		CurrentTime: h.now().UTC().Format(time.RFC3339),
	})
}

// SubmitWebhook accepts a transaction notification. Duplicate deliveries are
// acknowledged with 202 like first deliveries; only malformed payloads and
// store outages are errors.
func (h *Handler) SubmitWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload intake.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.gateway.Submit(ctx, payload)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMalformedPayload):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("webhook intake failed")
			respondError(w, http.StatusServiceUnavailable, "transaction store unavailable, retry later")
		}
		return
	}

	respondJSON(w, http.StatusAccepted, submitResponse{Message: string(result)})
}

// GetTransaction returns the current state of a transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transactionID := chi.URLParam(r, "transactionID")

	txn, err := h.status.Get(ctx, transactionID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			respondError(w, http.StatusNotFound, "transaction not found")
		default:
			h.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("transaction lookup failed")
			respondError(w, http.StatusServiceUnavailable, "transaction store unavailable, retry later")
		}
		return
	}

	respondJSON(w, http.StatusOK, transactionResponse{
		TransactionID:      txn.TransactionID,
		SourceAccount:      txn.SourceAccount,
		DestinationAccount: txn.DestinationAccount,
		Amount:             txn.Amount,
		Currency:           txn.Currency,
		Status:             string(txn.Status),
		CreatedAt:          txn.CreatedAt,
		ProcessedAt:        txn.ProcessedAt,
	})
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}
