// Package policy holds the pure decision functions the lobby manager
// consults before admitting a player.
package policy

import "github.com/plutohub/platform/internal/domain"

// AdmissionEvaluation holds the result of a lobby admission check.
type AdmissionEvaluation struct {
	Allowed bool
	Denial  *domain.AppError
}

// AdmissionRequest carries everything the check needs; the caller resolves
// state, the policy only decides.
type AdmissionRequest struct {
	Contract       *domain.Contract
	Lobby          *domain.Lobby
	User           *domain.User
	AlreadyInLobby *domain.Lobby
}

// EvaluateAdmission decides whether a user may join a lobby. The funds check
// is advisory: the authoritative lock happens at execution, so a user can
// still fail there if they spend down in between.
func EvaluateAdmission(req AdmissionRequest) AdmissionEvaluation {
	deny := func(err *domain.AppError) AdmissionEvaluation {
		return AdmissionEvaluation{Allowed: false, Denial: err}
	}

	if req.Contract == nil || !req.Contract.IsActive {
		return deny(domain.ErrInvalidState("contract is not active"))
	}

	if req.AlreadyInLobby != nil && !req.AlreadyInLobby.Status.IsTerminal() {
		return deny(domain.ErrAlreadyInLobby(req.AlreadyInLobby.ID.String()))
	}

	if req.Lobby != nil {
		if req.Lobby.Status != domain.LobbyWaiting {
			return deny(domain.ErrLobbyNotReady(req.Lobby.ID.String()))
		}
		if len(req.Lobby.Players) >= req.Contract.MaxPlayers {
			return deny(domain.ErrLobbyFull(req.Lobby.ID.String()))
		}
	}

	available := req.User.Available()
	if available.Cmp(req.Contract.EntryFee) < 0 {
		return deny(domain.ErrInsufficientFunds(req.Contract.EntryFee, available))
	}

	return AdmissionEvaluation{Allowed: true}
}
