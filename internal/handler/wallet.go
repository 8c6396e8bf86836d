package handler

import (
	"net/http"
	"strconv"

	"github.com/plutohub/platform/internal/auth"
	"github.com/plutohub/platform/internal/domain"
	"github.com/plutohub/platform/internal/repository"
)

// WalletHandler serves the player-facing balance and history endpoints.
type WalletHandler struct {
	ledger repository.LedgerRepository
	db     repository.DBTX
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(ledger repository.LedgerRepository, db repository.DBTX) *WalletHandler {
	return &WalletHandler{ledger: ledger, db: db}
}

// balanceResponse is the shape of GET /v1/me/balance. Amounts travel as
// decimal strings.
type balanceResponse struct {
	Balance          domain.Amount `json:"balance"`
	LockedBalance    domain.Amount `json:"lockedBalance"`
	AvailableBalance domain.Amount `json:"availableBalance"`
}

// GetBalance handles GET /v1/me/balance.
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		RespondError(w, domain.ErrUnauthorized("no authenticated user"))
		return
	}

	RespondJSON(w, http.StatusOK, balanceResponse{
		Balance:          user.Balance,
		LockedBalance:    user.Locked,
		AvailableBalance: user.Available(),
	})
}

// historyResponse is the paginated shape of GET /v1/me/history.
type historyResponse struct {
	Data    []domain.LedgerEntry `json:"data"`
	Total   int64                `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
	HasMore bool                 `json:"hasMore"`
}

// GetHistory handles GET /v1/me/history.
func (h *WalletHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		RespondError(w, domain.ErrUnauthorized("no authenticated user"))
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 100 {
			RespondError(w, domain.ErrValidation("limit must be an integer in [1, 100]"))
			return
		}
		limit = n
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			RespondError(w, domain.ErrValidation("offset must be a non-negative integer"))
			return
		}
		offset = n
	}

	entries, total, err := h.ledger.History(r.Context(), h.db, user.ID, limit, offset)
	if err != nil {
		RespondError(w, domain.ErrInternal("load history", err))
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}

	RespondJSON(w, http.StatusOK, historyResponse{
		Data:    entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(entries)) < total,
	})
}
