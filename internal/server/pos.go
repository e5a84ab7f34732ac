package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"loyalty-bot/internal/ledger"
	"loyalty-bot/internal/storage"
	"loyalty-bot/pkg/logger"
)

// Ledger is the slice of the loyalty ledger the POS API drives.
type Ledger interface {
	RecordPurchase(ctx context.Context, telegramID int64, amount int64) (*ledger.Purchase, error)
	Redeem(ctx context.Context, telegramID int64, amount int64) (*ledger.Redemption, error)
}

// POSHandler exposes purchase and redemption recording to the venue's
// point-of-sale terminal. Requests authenticate with a shared secret in
// the X-POS-Secret header.
type POSHandler struct {
	ledger Ledger
	secret string
	logger *logger.Logger
}

func NewPOSHandler(ledger Ledger, secret string, logger *logger.Logger) *POSHandler {
	return &POSHandler{
		ledger: ledger,
		secret: secret,
		logger: logger,
	}
}

type posRequest struct {
	UserID int64 `json:"user_id"`
	Amount int64 `json:"amount"`
}

type purchaseResponse struct {
	Cashback    int64  `json:"cashback"`
	BonusPoints int64  `json:"bonus_points"`
	TotalSpent  int64  `json:"total_spent"`
	Tier        string `json:"tier"`
}

type redeemResponse struct {
	Declined    bool  `json:"declined"`
	BonusPoints int64 `json:"bonus_points"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// authorize enforces POST plus the shared secret. It writes the failure
// response itself and reports whether the request may proceed.
func (h *POSHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return false
	}
	if h.secret == "" {
		h.logger.Error("POS API secret is not configured")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "POS API not configured"})
		return false
	}

	provided := r.Header.Get("X-POS-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid secret"})
		return false
	}
	return true
}

func (h *POSHandler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	var req posRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	purchase, err := h.ledger.RecordPurchase(r.Context(), req.UserID, req.Amount)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "user is not registered"})
		return
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount must be positive"})
		return
	case err != nil:
		h.logger.Error("Failed to record purchase", "user_id", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	h.logger.Info("Purchase recorded",
		"user_id", req.UserID, "amount", req.Amount, "cashback", purchase.Cashback)
	writeJSON(w, http.StatusOK, purchaseResponse{
		Cashback:    purchase.Cashback,
		BonusPoints: purchase.BonusPoints,
		TotalSpent:  purchase.TotalSpent,
		Tier:        string(purchase.Tier),
	})
}

func (h *POSHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	var req posRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	redemption, err := h.ledger.Redeem(r.Context(), req.UserID, req.Amount)
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount must be positive"})
		return
	case err != nil:
		h.logger.Error("Failed to redeem points", "user_id", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	h.logger.Info("Redemption processed",
		"user_id", req.UserID, "amount", req.Amount, "declined", redemption.Declined)
	writeJSON(w, http.StatusOK, redeemResponse{
		Declined:    redemption.Declined,
		BonusPoints: redemption.BonusPoints,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
