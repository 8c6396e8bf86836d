package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/plutohub/platform/internal/auth"
	"github.com/plutohub/platform/internal/contract"
	"github.com/plutohub/platform/internal/domain"
	"github.com/plutohub/platform/internal/lobby"
)

// ContractHandler serves the game-backend contract operations. All three
// routes sit behind the game MAC middleware.
type ContractHandler struct {
	engine  *contract.Engine
	lobbies *lobby.Manager
}

// NewContractHandler creates a ContractHandler.
func NewContractHandler(engine *contract.Engine, lobbies *lobby.Manager) *ContractHandler {
	return &ContractHandler{engine: engine, lobbies: lobbies}
}

type executeRequest struct {
	ContractID uuid.UUID `json:"contractId"`
	PlayerIDs  []string  `json:"playerIds"`
}

// Execute handles POST /v1/contracts/execute.
func (h *ContractHandler) Execute(w http.ResponseWriter, r *http.Request) {
	game := auth.GameFromContext(r.Context())
	if game == nil {
		RespondError(w, domain.ErrUnauthorized("no authenticated game"))
		return
	}

	var req executeRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if req.ContractID == uuid.Nil {
		RespondError(w, domain.ErrValidation("contractId is required"))
		return
	}

	result, err := h.engine.Execute(r.Context(), game.ID, req.ContractID, req.PlayerIDs)
	if err != nil {
		RespondError(w, err)
		return
	}

	h.lobbies.MarkGameStarted(req.ContractID, result.SessionID)
	RespondJSON(w, http.StatusOK, result)
}

type settleRequest struct {
	SessionToken string                `json:"sessionToken"`
	Results      []domain.PlayerResult `json:"results"`
}

// Settle handles POST /v1/contracts/settle.
func (h *ContractHandler) Settle(w http.ResponseWriter, r *http.Request) {
	game := auth.GameFromContext(r.Context())
	if game == nil {
		RespondError(w, domain.ErrUnauthorized("no authenticated game"))
		return
	}

	var req settleRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if req.SessionToken == "" {
		RespondError(w, domain.ErrValidation("sessionToken is required"))
		return
	}

	result, err := h.engine.Settle(r.Context(), game.ID, req.SessionToken, req.Results)
	if err != nil {
		RespondError(w, err)
		return
	}

	h.closeLobbyForSession(r, result.SessionID, "session settled")
	RespondJSON(w, http.StatusOK, result)
}

type cancelRequest struct {
	SessionToken string `json:"sessionToken"`
	Reason       string `json:"reason,omitempty"`
}

// Cancel handles POST /v1/contracts/cancel.
func (h *ContractHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	game := auth.GameFromContext(r.Context())
	if game == nil {
		RespondError(w, domain.ErrUnauthorized("no authenticated game"))
		return
	}

	var req cancelRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if req.SessionToken == "" {
		RespondError(w, domain.ErrValidation("sessionToken is required"))
		return
	}

	result, err := h.engine.Cancel(r.Context(), game.ID, req.SessionToken, req.Reason)
	if err != nil {
		RespondError(w, err)
		return
	}

	h.closeLobbyForSession(r, result.SessionID, "session cancelled")
	RespondJSON(w, http.StatusOK, result)
}

// Session handles GET /v1/sessions/{id}: the owning game's view of a
// session, whatever its state.
func (h *ContractHandler) Session(w http.ResponseWriter, r *http.Request) {
	game := auth.GameFromContext(r.Context())
	if game == nil {
		RespondError(w, domain.ErrUnauthorized("no authenticated game"))
		return
	}
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("session id must be a UUID"))
		return
	}

	session, err := h.engine.SessionForGame(r.Context(), game.ID, sessionID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, session)
}

// Audit handles GET /v1/sessions/{id}/audit: replays the session's ledger
// trail against the conservation invariants.
func (h *ContractHandler) Audit(w http.ResponseWriter, r *http.Request) {
	game := auth.GameFromContext(r.Context())
	if game == nil {
		RespondError(w, domain.ErrUnauthorized("no authenticated game"))
		return
	}
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("session id must be a UUID"))
		return
	}

	if _, err := h.engine.SessionForGame(r.Context(), game.ID, sessionID); err != nil {
		RespondError(w, err)
		return
	}
	audit, err := h.engine.AuditSessionByID(r.Context(), sessionID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, audit)
}

// closeLobbyForSession releases the lobby attached to a settled or cancelled
// session. Lookup failures only cost the lobby a sweep by TTL, so they are
// not surfaced.
func (h *ContractHandler) closeLobbyForSession(r *http.Request, sessionID uuid.UUID, reason string) {
	session, err := h.engine.SessionByID(r.Context(), sessionID)
	if err != nil || session == nil {
		return
	}
	h.lobbies.CloseForContract(session.ContractID, reason)
}
