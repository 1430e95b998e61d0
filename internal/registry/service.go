package registry

import (
	"context"
	"strings"

	"github.com/botmarket-labs/botmarket-backend/pkg/db/models"
	"github.com/botmarket-labs/botmarket-backend/pkg/enums"
	"github.com/botmarket-labs/botmarket-backend/pkg/errors"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// maxTrialSeconds caps trial windows at 90 days.
const maxTrialSeconds = int64(90 * 24 * 3600)

// RegisterBotInput is the payload required to list a bot.
type RegisterBotInput struct {
	Developer    types.Address
	IPFSHash     string
	Name         string
	Description  string
	Price        types.Amount
	TrialSeconds int64
}

// ServiceParams groups dependencies for the registry service.
type ServiceParams struct {
	Repo Repository
}

// Service owns the bot catalog: registration, lookup, and status flips.
type Service struct {
	repo Repository
}

// NewService builds a registry service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New(errors.CodeInternal, "repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// Register lists a new bot under the caller's wallet. The wallet becomes a
// developer on its first registration. A zero price is allowed and makes the
// bot effectively trial-only.
func (s *Service) Register(ctx context.Context, input RegisterBotInput) (*models.Bot, error) {
	if input.Developer.IsZero() {
		return nil, errors.New(errors.CodeValidation, "developer wallet is required")
	}
	if strings.TrimSpace(input.IPFSHash) == "" {
		return nil, errors.New(errors.CodeValidation, "ipfs hash is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New(errors.CodeValidation, "bot name is required")
	}
	if input.TrialSeconds < 0 {
		return nil, errors.New(errors.CodeValidation, "trial seconds must not be negative")
	}
	if input.TrialSeconds > maxTrialSeconds {
		return nil, errors.New(errors.CodeValidation, "trial window exceeds the 90 day cap")
	}

	bot := &models.Bot{
		Developer:    input.Developer,
		IPFSHash:     strings.TrimSpace(input.IPFSHash),
		Name:         strings.TrimSpace(input.Name),
		Description:  strings.TrimSpace(input.Description),
		Price:        input.Price,
		TrialSeconds: input.TrialSeconds,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, bot); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "creating bot")
	}

	event := &models.PaymentEvent{
		Type:   enums.PaymentEventBotRegistered,
		Wallet: input.Developer,
		BotID:  bot.ID,
		Amount: bot.Price,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "recording registration event")
	}
	return bot, nil
}

// GetBot returns the bot for the given id. Unknown ids, including zero,
// resolve to NotFound.
func (s *Service) GetBot(ctx context.Context, botID uint64) (*models.Bot, error) {
	bot, err := s.repo.FindByID(ctx, botID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "finding bot")
	}
	if bot == nil {
		return nil, errors.New(errors.CodeNotFound, "bot does not exist")
	}
	return bot, nil
}

// SetBotStatus flips a bot's availability. Only the registering developer
// may do this.
func (s *Service) SetBotStatus(ctx context.Context, wallet types.Address, botID uint64, isActive bool) (*models.Bot, error) {
	bot, err := s.GetBot(ctx, botID)
	if err != nil {
		return nil, err
	}
	if bot.Developer != wallet {
		return nil, errors.New(errors.CodeForbidden, "only the bot developer may change its status")
	}
	if bot.IsActive == isActive {
		return bot, nil
	}

	bot.IsActive = isActive
	if err := s.repo.Update(ctx, bot); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "updating bot status")
	}
	return bot, nil
}

// IsDeveloper reports whether the wallet has registered at least one bot.
func (s *Service) IsDeveloper(ctx context.Context, wallet types.Address) (bool, error) {
	if wallet.IsZero() {
		return false, nil
	}
	count, err := s.repo.CountByDeveloper(ctx, wallet)
	if err != nil {
		return false, errors.Wrap(errors.CodeInternal, err, "counting developer bots")
	}
	return count > 0, nil
}

// ListActiveBots returns the public catalog.
func (s *Service) ListActiveBots(ctx context.Context) ([]models.Bot, error) {
	bots, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing active bots")
	}
	return bots, nil
}

// ListBotsByDeveloper returns every bot a wallet has registered.
func (s *Service) ListBotsByDeveloper(ctx context.Context, developer types.Address) ([]models.Bot, error) {
	bots, err := s.repo.ListByDeveloper(ctx, developer)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing developer bots")
	}
	return bots, nil
}
