package subscriptions

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/botmarket-labs/botmarket-backend/pkg/db/models"
	"github.com/botmarket-labs/botmarket-backend/pkg/enums"
	"github.com/botmarket-labs/botmarket-backend/pkg/errors"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

const (
	secondsPerDay = int64(86400)
	maxDays       = uint64(3650)
)

// OpenInput describes a payment-triggered subscription window.
type OpenInput struct {
	Wallet       types.Address
	BotID        uint64
	Days         uint64
	TrialSeconds int64
	Now          time.Time
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo Repository
	Now  func() time.Time
}

// Service owns subscription windows: opening, renewal, cancellation, and
// expiry. Opening always happens inside the payment transaction, so Open
// takes the transaction handle explicitly.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a subscription service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New(errors.CodeInternal, "repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{repo: params.Repo, now: now}, nil
}

// Open starts or extends the (wallet, bot) subscription.
//
// A first subscription gets the bot's trial window and runs days*86400
// seconds from now. Paying again while still live extends the end without
// touching the trial. Paying after expiry or cancellation starts a fresh
// window with no second trial.
func (s *Service) Open(ctx context.Context, tx *gorm.DB, input OpenInput) (*models.Subscription, error) {
	if input.Wallet.IsZero() {
		return nil, errors.New(errors.CodeValidation, "wallet is required")
	}
	if input.BotID == 0 {
		return nil, errors.New(errors.CodeValidation, "bot id is required")
	}
	if input.Days == 0 || input.Days > maxDays {
		return nil, errors.New(errors.CodeValidation, "days must be between 1 and 3650")
	}
	if input.TrialSeconds < 0 {
		return nil, errors.New(errors.CodeValidation, "trial seconds must not be negative")
	}

	now := input.Now
	if now.IsZero() {
		now = s.now()
	}
	now = now.UTC()
	extension := time.Duration(int64(input.Days)*secondsPerDay) * time.Second

	repo := s.repo.WithTx(tx)
	existing, err := repo.FindForUpdate(ctx, input.Wallet, input.BotID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "finding subscription")
	}

	if existing == nil {
		sub := &models.Subscription{
			Wallet:       input.Wallet,
			BotID:        input.BotID,
			StartTime:    now,
			EndTime:      now.Add(extension),
			TrialEndTime: now.Add(time.Duration(input.TrialSeconds) * time.Second),
			LastPayment:  now,
			Status:       enums.SubscriptionStatusTrial,
		}
		if input.TrialSeconds == 0 {
			sub.Status = enums.SubscriptionStatusActive
		}
		// The trial can never outlive the paid window.
		if sub.TrialEndTime.After(sub.EndTime) {
			sub.TrialEndTime = sub.EndTime
		}
		if err := repo.Create(ctx, sub); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "creating subscription")
		}
		return sub, nil
	}

	if s.isLive(existing, now) {
		existing.EndTime = existing.EndTime.Add(extension)
		existing.LastPayment = now
		if existing.Status == enums.SubscriptionStatusTrial && !now.Before(existing.TrialEndTime) {
			existing.Status = enums.SubscriptionStatusActive
		}
		if err := repo.Update(ctx, existing); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "extending subscription")
		}
		return existing, nil
	}

	// Fresh window after expiry or cancellation, no second trial.
	existing.StartTime = now
	existing.EndTime = now.Add(extension)
	existing.TrialEndTime = now
	existing.LastPayment = now
	existing.Status = enums.SubscriptionStatusActive
	if err := repo.Update(ctx, existing); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "reopening subscription")
	}
	return existing, nil
}

// Cancel ends the subscriber's own subscription. Only permitted while the
// trial window is still open; paid time is settled through refunds instead.
func (s *Service) Cancel(ctx context.Context, wallet types.Address, botID uint64) (*models.Subscription, error) {
	sub, err := s.Get(ctx, wallet, botID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if sub.Status != enums.SubscriptionStatusTrial || !now.Before(sub.TrialEndTime) {
		return nil, errors.New(errors.CodeStateConflict, "subscription can only be cancelled during the trial window")
	}

	sub.Status = enums.SubscriptionStatusCancelled
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "cancelling subscription")
	}
	return sub, nil
}

// IsActive reports whether the subscription window is currently open. A
// window that elapsed since the last write is flipped to Expired on read.
func (s *Service) IsActive(ctx context.Context, wallet types.Address, botID uint64) (bool, error) {
	sub, err := s.repo.Find(ctx, wallet, botID)
	if err != nil {
		return false, errors.Wrap(errors.CodeInternal, err, "finding subscription")
	}
	if sub == nil {
		return false, nil
	}

	now := s.now().UTC()
	if !s.isLive(sub, now) {
		if sub.Status == enums.SubscriptionStatusTrial || sub.Status == enums.SubscriptionStatusActive {
			sub.Status = enums.SubscriptionStatusExpired
			if err := s.repo.Update(ctx, sub); err != nil {
				return false, errors.Wrap(errors.CodeInternal, err, "expiring subscription")
			}
		}
		return false, nil
	}
	return true, nil
}

// IsTrialActive reports whether the subscriber is still inside the trial.
func (s *Service) IsTrialActive(ctx context.Context, wallet types.Address, botID uint64) (bool, error) {
	sub, err := s.repo.Find(ctx, wallet, botID)
	if err != nil {
		return false, errors.Wrap(errors.CodeInternal, err, "finding subscription")
	}
	if sub == nil || sub.Status != enums.SubscriptionStatusTrial {
		return false, nil
	}
	return s.now().UTC().Before(sub.TrialEndTime), nil
}

// Get returns the full subscription record.
func (s *Service) Get(ctx context.Context, wallet types.Address, botID uint64) (*models.Subscription, error) {
	sub, err := s.repo.Find(ctx, wallet, botID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "finding subscription")
	}
	if sub == nil {
		return nil, errors.New(errors.CodeNotFound, "subscription does not exist")
	}
	return sub, nil
}

// ExpireElapsed sweeps live subscriptions whose end passed, in batches.
// Used by the cron worker.
func (s *Service) ExpireElapsed(ctx context.Context, limit int) (int64, error) {
	flipped, err := s.repo.MarkElapsed(ctx, s.now().UTC(), limit)
	if err != nil {
		return 0, errors.Wrap(errors.CodeInternal, err, "expiring subscriptions")
	}
	return flipped, nil
}

func (s *Service) isLive(sub *models.Subscription, now time.Time) bool {
	if sub.Status != enums.SubscriptionStatusTrial && sub.Status != enums.SubscriptionStatusActive {
		return false
	}
	return now.Before(sub.EndTime)
}
