package controllers

import (
	"encoding/json"
	"time"

	"github.com/botmarket-labs/botmarket-backend/pkg/db/models"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

type botResponse struct {
	ID           uint64       `json:"id"`
	Developer    string       `json:"developer"`
	IPFSHash     string       `json:"ipfs_hash"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Price        types.Amount `json:"price"`
	TrialSeconds int64        `json:"trial_seconds"`
	IsActive     bool         `json:"is_active"`
	TotalIncome  types.Amount `json:"total_income"`
	CreatedAt    time.Time    `json:"created_at"`
}

func toBotResponse(bot *models.Bot) botResponse {
	return botResponse{
		ID:           bot.ID,
		Developer:    bot.Developer.String(),
		IPFSHash:     bot.IPFSHash,
		Name:         bot.Name,
		Description:  bot.Description,
		Price:        bot.Price,
		TrialSeconds: bot.TrialSeconds,
		IsActive:     bot.IsActive,
		TotalIncome:  bot.TotalIncome,
		CreatedAt:    bot.CreatedAt,
	}
}

func toBotResponses(bots []models.Bot) []botResponse {
	out := make([]botResponse, 0, len(bots))
	for i := range bots {
		out = append(out, toBotResponse(&bots[i]))
	}
	return out
}

type subscriptionResponse struct {
	Wallet       string    `json:"wallet"`
	BotID        uint64    `json:"bot_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	TrialEndTime time.Time `json:"trial_end_time"`
	LastPayment  time.Time `json:"last_payment"`
	Status       string    `json:"status"`
}

func toSubscriptionResponse(sub *models.Subscription) subscriptionResponse {
	return subscriptionResponse{
		Wallet:       sub.Wallet.String(),
		BotID:        sub.BotID,
		StartTime:    sub.StartTime,
		EndTime:      sub.EndTime,
		TrialEndTime: sub.TrialEndTime,
		LastPayment:  sub.LastPayment,
		Status:       string(sub.Status),
	}
}

type escrowResponse struct {
	Wallet        string       `json:"wallet"`
	BotID         uint64       `json:"bot_id"`
	Token         string       `json:"token"`
	EscrowBalance types.Amount `json:"escrow_balance"`
	StartTime     time.Time    `json:"start_time"`
	Status        string       `json:"status"`
}

func toEscrowResponse(payment *models.EscrowPayment) escrowResponse {
	return escrowResponse{
		Wallet:        payment.Wallet.String(),
		BotID:         payment.BotID,
		Token:         payment.Token.String(),
		EscrowBalance: payment.EscrowBalance,
		StartTime:     payment.StartTime,
		Status:        string(payment.Status),
	}
}

type tokenResponse struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

func toTokenResponse(token *models.SupportedToken) tokenResponse {
	return tokenResponse{
		Token:    token.Token.String(),
		Name:     token.Name,
		Symbol:   token.Symbol,
		Decimals: token.Decimals,
	}
}

func toTokenResponses(tokens []models.SupportedToken) []tokenResponse {
	out := make([]tokenResponse, 0, len(tokens))
	for i := range tokens {
		out = append(out, toTokenResponse(&tokens[i]))
	}
	return out
}

type paymentEventResponse struct {
	Type      string          `json:"type"`
	Wallet    string          `json:"wallet"`
	BotID     uint64          `json:"bot_id,omitempty"`
	Token     string          `json:"token,omitempty"`
	Amount    types.Amount    `json:"amount"`
	Fee       types.Amount    `json:"fee"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func toPaymentEventResponses(events []models.PaymentEvent) []paymentEventResponse {
	out := make([]paymentEventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, paymentEventResponse{
			Type:      string(event.Type),
			Wallet:    event.Wallet.String(),
			BotID:     event.BotID,
			Token:     event.Token.String(),
			Amount:    event.Amount,
			Fee:       event.Fee,
			Metadata:  event.Metadata,
			CreatedAt: event.CreatedAt,
		})
	}
	return out
}
