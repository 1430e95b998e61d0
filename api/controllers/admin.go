package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/botmarket-labs/botmarket-backend/api/responses"
	"github.com/botmarket-labs/botmarket-backend/api/validators"
	"github.com/botmarket-labs/botmarket-backend/internal/ledger"
	paymentsvc "github.com/botmarket-labs/botmarket-backend/internal/payments"
	pkgerrors "github.com/botmarket-labs/botmarket-backend/pkg/errors"
	"github.com/botmarket-labs/botmarket-backend/pkg/logger"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// AdminFinalizePayment settles a pending escrow: splits the fee and credits
// the developer.
func AdminFinalizePayment(svc *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := walletParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		botID, err := botIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.FinalizePayment(r.Context(), wallet, botID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "finalized"})
	}
}

type refundRequest struct {
	Amount types.Amount `json:"amount"`
}

// AdminRefundPayment returns part or all of a pending escrow to the
// subscriber.
func AdminRefundPayment(svc *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := walletParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		botID, err := botIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ProcessRefund(r.Context(), wallet, botID, payload.Amount); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "refunded"})
	}
}

type addTokenRequest struct {
	Token    string `json:"token" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Symbol   string `json:"symbol" validate:"required"`
	Decimals int32  `json:"decimals" validate:"min=0,max=18"`
}

// AdminTokenAdd whitelists a settlement token and makes it known to the
// ledger simulator.
func AdminTokenAdd(svc *paymentsvc.Service, ldg *ledger.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addTokenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := types.ParseAddress(payload.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid token address"))
			return
		}

		record, err := svc.AddSupportedToken(r.Context(), paymentsvc.AddTokenInput{
			Token:    token,
			Name:     payload.Name,
			Symbol:   payload.Symbol,
			Decimals: payload.Decimals,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if ldg != nil {
			// Already-deployed is fine: the token may have been seeded at boot.
			if _, deployErr := ldg.DeployToken(token, payload.Name, payload.Symbol, payload.Decimals); deployErr != nil {
				if typed := pkgerrors.As(deployErr); typed == nil || typed.Code() != pkgerrors.CodeConflict {
					responses.WriteError(r.Context(), logg, w, deployErr)
					return
				}
			}
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toTokenResponse(record))
	}
}

// AdminTokenRemove delists a settlement token. Refused while platform fees
// in that token remain unwithdrawn.
func AdminTokenRemove(svc *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := tokenParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveSupportedToken(r.Context(), token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

type platformFeeRequest struct {
	FeeBps *uint64 `json:"fee_bps" validate:"required"`
}

// AdminPlatformFeeUpdate changes the platform fee in basis points.
func AdminPlatformFeeUpdate(svc *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload platformFeeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdatePlatformFee(r.Context(), *payload.FeeBps); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]uint64{"fee_bps": *payload.FeeBps})
	}
}

// AdminPlatformFeeBalance returns the accumulated platform fees in a token.
func AdminPlatformFeeBalance(svc *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := tokenParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.PlatformFeeBalance(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"token":   token.String(),
			"balance": balance,
		})
	}
}

// AdminPlatformFeeWithdraw pays the accumulated fees in a token out to the
// treasury.
func AdminPlatformFeeWithdraw(svc *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := tokenParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := svc.WithdrawPlatformFee(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"token":  token.String(),
			"amount": amount,
		})
	}
}

func walletParam(r *http.Request) (types.Address, error) {
	raw := chi.URLParam(r, "wallet")
	wallet, err := types.ParseAddress(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet address")
	}
	return wallet, nil
}
