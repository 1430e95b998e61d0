package controllers

import (
	"net/http"

	"github.com/botmarket-labs/botmarket-backend/api/responses"
	subscriptionsvc "github.com/botmarket-labs/botmarket-backend/internal/subscriptions"
	"github.com/botmarket-labs/botmarket-backend/pkg/logger"
)

// SubscriptionFetch returns the caller's subscription record for a bot.
func SubscriptionFetch(svc *subscriptionsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		sub, err := svc.Get(r.Context(), wallet, botID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toSubscriptionResponse(sub))
	}
}

// SubscriptionStatus reports the live and trial flags for a subscription.
// Reading the status settles any elapsed window to expired first.
func SubscriptionStatus(svc *subscriptionsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		active, err := svc.IsActive(r.Context(), wallet, botID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		trial, err := svc.IsTrialActive(r.Context(), wallet, botID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{
			"is_active":       active,
			"is_trial_active": trial,
		})
	}
}

// SubscriptionCancel ends a subscription; only allowed while the trial window
// is still running.
func SubscriptionCancel(svc *subscriptionsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		sub, err := svc.Cancel(r.Context(), wallet, botID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toSubscriptionResponse(sub))
	}
}
