package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/botmarket-labs/botmarket-backend/api/middleware"
	"github.com/botmarket-labs/botmarket-backend/api/responses"
	"github.com/botmarket-labs/botmarket-backend/api/validators"
	registrysvc "github.com/botmarket-labs/botmarket-backend/internal/registry"
	pkgerrors "github.com/botmarket-labs/botmarket-backend/pkg/errors"
	"github.com/botmarket-labs/botmarket-backend/pkg/logger"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

type registerBotRequest struct {
	IPFSHash     string       `json:"ipfs_hash" validate:"required"`
	Name         string       `json:"name" validate:"required"`
	Description  string       `json:"description,omitempty"`
	Price        types.Amount `json:"price"`
	TrialSeconds int64        `json:"trial_seconds" validate:"min=0"`
}

// RegisterBot lists a new bot owned by the authenticated wallet.
func RegisterBot(svc *registrysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := authedWallet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload registerBotRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bot, err := svc.Register(r.Context(), registrysvc.RegisterBotInput{
			Developer:    wallet,
			IPFSHash:     payload.IPFSHash,
			Name:         payload.Name,
			Description:  payload.Description,
			Price:        payload.Price,
			TrialSeconds: payload.TrialSeconds,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toBotResponse(bot))
	}
}

// GetBot returns a single catalog entry, active or not.
func GetBot(svc *registrysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		botID, err := botIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bot, err := svc.GetBot(r.Context(), botID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toBotResponse(bot))
	}
}

// ListBots returns the active catalog.
func ListBots(svc *registrysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bots, err := svc.ListActiveBots(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toBotResponses(bots))
	}
}

// MyBots returns every bot registered by the authenticated wallet.
func MyBots(svc *registrysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := authedWallet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bots, err := svc.ListBotsByDeveloper(r.Context(), wallet)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toBotResponses(bots))
	}
}

type botStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// SetBotStatus flips a bot's listing flag; only the owning developer may.
func SetBotStatus(svc *registrysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := authedWallet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		botID, err := botIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload botStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bot, err := svc.SetBotStatus(r.Context(), wallet, botID, *payload.IsActive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toBotResponse(bot))
	}
}

// DeveloperStatus reports whether the authenticated wallet has any bots.
func DeveloperStatus(svc *registrysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := authedWallet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		isDeveloper, err := svc.IsDeveloper(r.Context(), wallet)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"is_developer": isDeveloper})
	}
}

func authedWallet(r *http.Request) (types.Address, error) {
	raw := middleware.WalletFromContext(r.Context())
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "wallet context missing")
	}
	wallet, err := types.ParseAddress(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid wallet claim")
	}
	return wallet, nil
}

func botIDParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "botId")
	botID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bot id")
	}
	return botID, nil
}
