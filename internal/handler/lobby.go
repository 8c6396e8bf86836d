package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/plutohub/platform/internal/auth"
	"github.com/plutohub/platform/internal/domain"
	"github.com/plutohub/platform/internal/lobby"
)

// LobbyHandler serves lobby browsing, membership, and the SSE event stream.
type LobbyHandler struct {
	manager *lobby.Manager
	hub     *lobby.Hub
}

// NewLobbyHandler creates a LobbyHandler.
func NewLobbyHandler(manager *lobby.Manager, hub *lobby.Hub) *LobbyHandler {
	return &LobbyHandler{manager: manager, hub: hub}
}

// List handles GET /v1/lobbies with an optional contractId filter.
func (h *LobbyHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter *uuid.UUID
	if s := r.URL.Query().Get("contractId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			RespondError(w, domain.ErrValidation("contractId must be a UUID"))
			return
		}
		filter = &id
	}
	RespondJSON(w, http.StatusOK, h.manager.List(filter))
}

// Status handles GET /v1/lobbies/{id}/status: the snapshot clients use to
// recover after missing stream events.
func (h *LobbyHandler) Status(w http.ResponseWriter, r *http.Request) {
	lobbyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("lobby id must be a UUID"))
		return
	}

	l := h.manager.Get(lobbyID)
	if l == nil {
		RespondError(w, domain.ErrNotFound("lobby", lobbyID.String()))
		return
	}
	RespondJSON(w, http.StatusOK, l)
}

// Events handles GET /v1/lobbies/{id}/events as a server-sent event stream.
// Real events arrive as `data: {json}` frames; heartbeats as `: heartbeat`
// comment lines.
func (h *LobbyHandler) Events(w http.ResponseWriter, r *http.Request) {
	lobbyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("lobby id must be a UUID"))
		return
	}
	if h.manager.Get(lobbyID) == nil {
		RespondError(w, domain.ErrNotFound("lobby", lobbyID.String()))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		RespondError(w, domain.ErrInternal("streaming unsupported", nil))
		return
	}

	// Subscribe before the first flush so no event can slip between the
	// client seeing the stream open and the subscription existing.
	sub := h.hub.Subscribe(lobbyID)
	defer h.hub.Unsubscribe(lobbyID, sub.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-sub.Send:
			if !ok {
				// Evicted by the hub.
				return
			}
			if msg.Heartbeat {
				fmt.Fprint(w, ": heartbeat\n\n")
			} else {
				fmt.Fprintf(w, "data: %s\n\n", msg.Data)
			}
			flusher.Flush()
		}
	}
}

type joinRequest struct {
	ContractID uuid.UUID `json:"contractId"`
}

// Join handles POST /v1/lobby/join.
func (h *LobbyHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		RespondError(w, domain.ErrUnauthorized("no authenticated user"))
		return
	}

	var req joinRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if req.ContractID == uuid.Nil {
		RespondError(w, domain.ErrValidation("contractId is required"))
		return
	}

	result, err := h.manager.Join(r.Context(), user, req.ContractID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

type leaveResponse struct {
	Success bool      `json:"success"`
	LobbyID uuid.UUID `json:"lobbyId"`
}

// Leave handles POST /v1/lobby/leave.
func (h *LobbyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		RespondError(w, domain.ErrUnauthorized("no authenticated user"))
		return
	}

	lobbyID, err := h.manager.Leave(user.ID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, leaveResponse{Success: true, LobbyID: lobbyID})
}
