package controllers

import (
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/botmarket-labs/botmarket-backend/api/responses"
	"github.com/botmarket-labs/botmarket-backend/api/validators"
	paymentsvc "github.com/botmarket-labs/botmarket-backend/internal/payments"
	pkgerrors "github.com/botmarket-labs/botmarket-backend/pkg/errors"
	"github.com/botmarket-labs/botmarket-backend/pkg/logger"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

type processPaymentRequest struct {
	BotID  uint64       `json:"bot_id" validate:"required"`
	Token  string       `json:"token" validate:"required"`
	Amount types.Amount `json:"amount"`
	Days   uint64       `json:"days" validate:"required,min=1,max=3650"`
}

// PaymentProcess charges the caller for a subscription window using a
// pre-approved allowance.
func PaymentProcess(svc *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := authedWallet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload processPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := types.ParseAddress(payload.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid token address"))
			return
		}

		payment, err := svc.ProcessPayment(r.Context(), paymentsvc.ProcessPaymentInput{
			Subscriber: wallet,
			BotID:      payload.BotID,
			Token:      token,
			Amount:     payload.Amount,
			Days:       payload.Days,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toEscrowResponse(payment))
	}
}

type permitPaymentRequest struct {
	processPaymentRequest
	Deadline uint64 `json:"deadline" validate:"required"`
	V        uint8  `json:"v" validate:"required"`
	R        string `json:"r" validate:"required"`
	S        string `json:"s" validate:"required"`
}

// PaymentProcessWithPermit charges the caller using a signed EIP-2612
// approval bundled with the payment.
func PaymentProcessWithPermit(svc *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := authedWallet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload permitPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := types.ParseAddress(payload.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid token address"))
			return
		}

		sigR, err := parseSignatureWord(payload.R)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid signature r"))
			return
		}
		sigS, err := parseSignatureWord(payload.S)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid signature s"))
			return
		}

		payment, err := svc.ProcessPaymentWithPermit(r.Context(), paymentsvc.PermitPaymentInput{
			ProcessPaymentInput: paymentsvc.ProcessPaymentInput{
				Subscriber: wallet,
				BotID:      payload.BotID,
				Token:      token,
				Amount:     payload.Amount,
				Days:       payload.Days,
			},
			Deadline: payload.Deadline,
			V:        payload.V,
			R:        sigR,
			S:        sigS,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toEscrowResponse(payment))
	}
}

// PaymentStatus returns the caller's escrow state for a bot.
func PaymentStatus(svc *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		status, err := svc.PaymentStatus(r.Context(), wallet, botID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		escrow, err := svc.EscrowBalance(r.Context(), wallet, botID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"status":         string(status),
			"escrow_balance": escrow,
		})
	}
}

// PaymentHistory returns the caller's payment event log, newest first.
func PaymentHistory(svc *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := authedWallet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, parseErr := strconv.Atoi(raw)
			if parseErr != nil || parsed < 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid limit"))
				return
			}
			limit = parsed
		}

		events, err := svc.PaymentHistory(r.Context(), wallet, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPaymentEventResponses(events))
	}
}

// BalanceFetch returns the caller's withdrawable balance in a token.
func BalanceFetch(svc *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := authedWallet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := tokenParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.DeveloperBalance(r.Context(), wallet, token)
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

// BalanceWithdraw pays out the caller's full balance in a token.
func BalanceWithdraw(svc *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := authedWallet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := tokenParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := svc.WithdrawBalance(r.Context(), wallet, token)
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

// TokenList returns the supported settlement tokens.
func TokenList(svc *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokens, err := svc.SupportedTokens(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toTokenResponses(tokens))
	}
}

// PlatformFee returns the current fee in basis points.
func PlatformFee(svc *paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bps, err := svc.CurrentFeeBps(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]uint64{"fee_bps": bps})
	}
}

func tokenParam(r *http.Request) (types.Address, error) {
	raw := chi.URLParam(r, "token")
	token, err := types.ParseAddress(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid token address")
	}
	return token, nil
}

func parseSignatureWord(value string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "empty signature word")
	}
	word, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed signature word")
	}
	return word, nil
}
