package controllers

import (
	"net/http"
	"time"

	"github.com/botmarket-labs/botmarket-backend/api/responses"
	"github.com/botmarket-labs/botmarket-backend/api/validators"
	"github.com/botmarket-labs/botmarket-backend/internal/ledger"
	pkgAuth "github.com/botmarket-labs/botmarket-backend/pkg/auth"
	"github.com/botmarket-labs/botmarket-backend/pkg/config"
	"github.com/botmarket-labs/botmarket-backend/pkg/enums"
	pkgerrors "github.com/botmarket-labs/botmarket-backend/pkg/errors"
	"github.com/botmarket-labs/botmarket-backend/pkg/logger"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

type faucetMintRequest struct {
	Token  string       `json:"token" validate:"required"`
	To     string       `json:"to" validate:"required"`
	Amount types.Amount `json:"amount"`
}

// DevFaucetMint credits simulated token balance to a wallet. Wired only
// outside prod behind the dev faucet flag.
func DevFaucetMint(ldg *ledger.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload faucetMintRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := types.ParseAddress(payload.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid token address"))
			return
		}

		to, err := types.ParseAddress(payload.To)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid recipient address"))
			return
		}

		if payload.Amount.IsZero() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive"))
			return
		}

		instance, err := ldg.Token(token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := instance.Mint(to, payload.Amount); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"token":   token.String(),
			"to":      to.String(),
			"balance": instance.BalanceOf(to),
		})
	}
}

type devTokenRequest struct {
	Wallet string `json:"wallet" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

// DevIssueToken mints an access token for local development. Wired only
// outside prod.
func DevIssueToken(cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload devTokenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wallet, err := types.ParseAddress(payload.Wallet)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet address"))
			return
		}

		role, err := enums.ParseRole(payload.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}

		token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
			Wallet: wallet,
			Role:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"access_token": token})
	}
}
