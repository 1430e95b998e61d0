package payments

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"gorm.io/gorm"

	"github.com/botmarket-labs/botmarket-backend/internal/ledger"
	"github.com/botmarket-labs/botmarket-backend/internal/subscriptions"
	"github.com/botmarket-labs/botmarket-backend/pkg/db"
	"github.com/botmarket-labs/botmarket-backend/pkg/db/models"
	"github.com/botmarket-labs/botmarket-backend/pkg/enums"
	"github.com/botmarket-labs/botmarket-backend/pkg/errors"
	"github.com/botmarket-labs/botmarket-backend/pkg/metrics"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

const (
	maxFeeBps     = uint64(10_000)
	daysPerPeriod = uint64(30)
	maxDays       = uint64(3650)
	methodDirect  = "direct"
	methodPermit  = "permit"
	kindDeveloper = "developer"
	kindPlatform  = "platform"
)

// ProcessPaymentInput is a subscriber paying for a bot.
type ProcessPaymentInput struct {
	Subscriber types.Address
	BotID      uint64
	Token      types.Address
	Amount     types.Amount
	Days       uint64
}

// PermitPaymentInput carries a payment plus the signed EIP-2612 approval
// that funds it.
type PermitPaymentInput struct {
	ProcessPaymentInput
	Deadline uint64
	V        uint8
	R        *big.Int
	S        *big.Int
}

// AddTokenInput registers an accepted payment token.
type AddTokenInput struct {
	Token    types.Address
	Name     string
	Symbol   string
	Decimals int32
}

// txRunner matches pkg/db.Client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	DB            txRunner
	Repo          Repository
	Catalog       BotCatalog
	Subscriptions SubscriptionOpener
	Ledger        TokenLedger
	EscrowAccount types.Address
	Treasury      types.Address
	DefaultFeeBps uint64
	Metrics       *metrics.PaymentMetrics
	Now           func() time.Time
}

// Service orchestrates the escrow payment lifecycle. It is wired once at
// startup with its registry and subscription collaborators; authority over
// admin operations is enforced at the transport layer.
type Service struct {
	db            txRunner
	repo          Repository
	catalog       BotCatalog
	subscriptions SubscriptionOpener
	ledger        TokenLedger
	escrowAccount types.Address
	treasury      types.Address
	defaultFeeBps uint64
	metrics       *metrics.PaymentMetrics
	now           func() time.Time
}

// NewService builds a payment service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New(errors.CodeInternal, "database client is required")
	}
	if params.Repo == nil {
		return nil, errors.New(errors.CodeInternal, "repo is required")
	}
	if params.Catalog == nil {
		return nil, errors.New(errors.CodeInternal, "bot catalog is required")
	}
	if params.Subscriptions == nil {
		return nil, errors.New(errors.CodeInternal, "subscription opener is required")
	}
	if params.Ledger == nil {
		return nil, errors.New(errors.CodeInternal, "token ledger is required")
	}
	if params.EscrowAccount.IsZero() {
		return nil, errors.New(errors.CodeInternal, "escrow account is required")
	}
	if params.Treasury.IsZero() {
		return nil, errors.New(errors.CodeInternal, "treasury account is required")
	}
	if params.DefaultFeeBps > maxFeeBps {
		return nil, errors.New(errors.CodeInternal, "default fee exceeds 10000 bps")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:            params.DB,
		repo:          params.Repo,
		catalog:       params.Catalog,
		subscriptions: params.Subscriptions,
		ledger:        params.Ledger,
		escrowAccount: params.EscrowAccount,
		treasury:      params.Treasury,
		defaultFeeBps: params.DefaultFeeBps,
		metrics:       params.Metrics,
		now:           now,
	}, nil
}

// AddSupportedToken registers a token the platform accepts payments in.
func (s *Service) AddSupportedToken(ctx context.Context, input AddTokenInput) (*models.SupportedToken, error) {
	if input.Token.IsZero() {
		return nil, errors.New(errors.CodeValidation, "token address is required")
	}
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Symbol) == "" {
		return nil, errors.New(errors.CodeValidation, "token name and symbol are required")
	}
	if input.Decimals < 0 || input.Decimals > 30 {
		return nil, errors.New(errors.CodeValidation, "token decimals out of range")
	}

	existing, err := s.repo.FindToken(ctx, input.Token)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "finding token")
	}
	if existing != nil {
		return nil, errors.New(errors.CodeConflict, "token is already supported")
	}

	token := &models.SupportedToken{
		Token:    input.Token,
		Name:     strings.TrimSpace(input.Name),
		Symbol:   strings.TrimSpace(input.Symbol),
		Decimals: input.Decimals,
	}
	if err := s.repo.CreateToken(ctx, token); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errors.New(errors.CodeConflict, "token is already supported")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "creating token")
	}

	if err := s.repo.CreateEvent(ctx, &models.PaymentEvent{
		Type:   enums.PaymentEventTokenAdded,
		Wallet: input.Token,
		Token:  input.Token,
	}); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "recording token event")
	}
	return token, nil
}

// RemoveSupportedToken delists a token. Removal is blocked while platform
// fees accumulated in that token remain unwithdrawn, so funds never strand.
func (s *Service) RemoveSupportedToken(ctx context.Context, token types.Address) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindToken(ctx, token)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "finding token")
		}
		if existing == nil {
			return errors.New(errors.CodeNotFound, "token is not supported")
		}

		feeBalance, err := repo.FindPlatformFeeBalanceForUpdate(ctx, token)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "finding platform fee balance")
		}
		if feeBalance != nil && !feeBalance.Balance.IsZero() {
			return errors.New(errors.CodeStateConflict, "platform fees in this token must be withdrawn first")
		}

		if err := repo.DeleteToken(ctx, token); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "deleting token")
		}
		return repo.CreateEvent(ctx, &models.PaymentEvent{
			Type:   enums.PaymentEventTokenRemoved,
			Wallet: token,
			Token:  token,
		})
	})
}

// ProcessPayment accepts a subscriber's pre-approved payment: funds move
// from the subscriber to the escrow account on the token ledger, the escrow
// row goes Pending, and the subscription window opens or extends. The whole
// flow runs in one database transaction with the escrow row locked.
func (s *Service) ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*models.EscrowPayment, error) {
	payment, err := s.processPayment(ctx, input, nil)
	if err != nil {
		s.metrics.IncFailure("process_payment", string(errors.As(err).Code()))
		return nil, err
	}
	s.metrics.IncProcessed(methodDirect)
	return payment, nil
}

// ProcessPaymentWithPermit funds the payment with a signed EIP-2612 permit
// instead of a prior approval. An expired or invalid permit mutates nothing.
func (s *Service) ProcessPaymentWithPermit(ctx context.Context, input PermitPaymentInput) (*models.EscrowPayment, error) {
	now := s.now().UTC()
	if uint64(now.Unix()) > input.Deadline {
		err := errors.New(errors.CodeExpiredSignature, "permit deadline has passed")
		s.metrics.IncFailure("process_payment_permit", string(errors.CodeExpiredSignature))
		return nil, err
	}

	permit := &ledger.PermitRequest{
		Owner:    input.Subscriber,
		Spender:  s.escrowAccount,
		Value:    input.Amount,
		Deadline: input.Deadline,
		V:        input.V,
		R:        input.R,
		S:        input.S,
	}
	payment, err := s.processPayment(ctx, input.ProcessPaymentInput, permit)
	if err != nil {
		s.metrics.IncFailure("process_payment_permit", string(errors.As(err).Code()))
		return nil, err
	}
	s.metrics.IncProcessed(methodPermit)
	return payment, nil
}

func (s *Service) processPayment(ctx context.Context, input ProcessPaymentInput, permit *ledger.PermitRequest) (*models.EscrowPayment, error) {
	if input.Subscriber.IsZero() {
		return nil, errors.New(errors.CodeValidation, "subscriber wallet is required")
	}
	if input.Days == 0 || input.Days > maxDays {
		return nil, errors.New(errors.CodeValidation, "days must be between 1 and 3650")
	}

	supported, err := s.repo.FindToken(ctx, input.Token)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "finding token")
	}
	if supported == nil {
		return nil, errors.New(errors.CodeUnsupportedToken, "token is not accepted for payments")
	}

	bot, err := s.catalog.GetBot(ctx, input.BotID)
	if err != nil {
		return nil, err
	}
	if !bot.IsActive {
		return nil, errors.New(errors.CodeStateConflict, "bot is not active")
	}

	expected := expectedCharge(bot.Price, input.Days)
	if input.Amount.Cmp(expected) != 0 {
		return nil, errors.New(errors.CodeValidation, "amount does not match the bot price for the requested period").
			WithDetails(map[string]string{"expected": expected.String(), "got": input.Amount.String()})
	}

	now := s.now().UTC()
	var payment *models.EscrowPayment
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		escrow, err := repo.FindEscrowForUpdate(ctx, input.Subscriber, input.BotID)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "finding escrow")
		}
		if escrow == nil {
			escrow = &models.EscrowPayment{
				Wallet:        input.Subscriber,
				BotID:         input.BotID,
				Token:         input.Token,
				EscrowBalance: input.Amount,
				StartTime:     now,
				Status:        enums.PaymentStatusPending,
			}
			if err := repo.CreateEscrow(ctx, escrow); err != nil {
				return errors.Wrap(errors.CodeInternal, err, "creating escrow")
			}
		} else {
			// A still-pending balance accumulates; a settled row starts a
			// fresh escrow in the payment's token.
			if escrow.Status == enums.PaymentStatusPending && escrow.Token != input.Token {
				return errors.New(errors.CodeStateConflict, "pending escrow is held in a different token")
			}
			if escrow.Status == enums.PaymentStatusPending {
				escrow.EscrowBalance = escrow.EscrowBalance.Add(input.Amount)
			} else {
				escrow.EscrowBalance = input.Amount
				escrow.Token = input.Token
			}
			escrow.StartTime = now
			escrow.Status = enums.PaymentStatusPending
			if err := repo.UpdateEscrow(ctx, escrow); err != nil {
				return errors.Wrap(errors.CodeInternal, err, "updating escrow")
			}
		}

		if _, err := s.subscriptions.Open(ctx, tx, subscriptions.OpenInput{
			Wallet:       input.Subscriber,
			BotID:        input.BotID,
			Days:         input.Days,
			TrialSeconds: bot.TrialSeconds,
			Now:          now,
		}); err != nil {
			return err
		}

		if err := repo.AddBotIncome(ctx, input.BotID, input.Amount); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "accruing bot income")
		}

		if err := repo.CreateEvent(ctx, &models.PaymentEvent{
			Type:   enums.PaymentEventPaymentProcessed,
			Wallet: input.Subscriber,
			BotID:  input.BotID,
			Token:  input.Token,
			Amount: input.Amount,
		}); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "recording payment event")
		}

		// Ledger movements cannot be rolled back, so they run last.
		if permit != nil {
			if err := s.ledger.Permit(input.Token, *permit, now); err != nil {
				return err
			}
		}
		if err := s.ledger.TransferFrom(input.Token, s.escrowAccount, input.Subscriber, s.escrowAccount, input.Amount); err != nil {
			return err
		}

		payment = escrow
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// FinalizePayment releases a pending escrow: the platform fee is carved off
// at the current rate and the rest accrues to the developer's withdrawable
// balance. Finalizing twice fails and changes no balance.
func (s *Service) FinalizePayment(ctx context.Context, subscriber types.Address, botID uint64) error {
	var settledToken types.Address
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		escrow, err := repo.FindEscrowForUpdate(ctx, subscriber, botID)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "finding escrow")
		}
		if escrow == nil || escrow.Status != enums.PaymentStatusPending {
			return errors.New(errors.CodeStateConflict, "no pending payment to finalize")
		}
		if escrow.EscrowBalance.IsZero() {
			return errors.New(errors.CodeStateConflict, "escrow balance is empty")
		}

		bot, err := s.catalog.GetBot(ctx, botID)
		if err != nil {
			return err
		}

		feeBps, err := s.feeBps(ctx, repo)
		if err != nil {
			return err
		}
		fee, share := splitFee(escrow.EscrowBalance, feeBps)

		if err := s.creditPlatformFee(ctx, repo, escrow.Token, fee); err != nil {
			return err
		}
		if err := s.creditDeveloper(ctx, repo, bot.Developer, escrow.Token, share); err != nil {
			return err
		}

		released := escrow.EscrowBalance
		settledToken = escrow.Token
		escrow.EscrowBalance = types.Amount{}
		escrow.Status = enums.PaymentStatusFinalized
		if err := repo.UpdateEscrow(ctx, escrow); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "settling escrow")
		}

		return repo.CreateEvent(ctx, &models.PaymentEvent{
			Type:   enums.PaymentEventPaymentFinalized,
			Wallet: subscriber,
			BotID:  botID,
			Token:  escrow.Token,
			Amount: released,
			Fee:    fee,
		})
	})
	if err != nil {
		s.metrics.IncFailure("finalize_payment", string(errors.As(err).Code()))
		return err
	}
	s.metrics.IncFinalized(settledToken.String())
	return nil
}

// ProcessRefund returns part or all of a pending escrow to the subscriber.
// The bot's accrued income shrinks by the refunded amount; a refund that
// drains the escrow closes the payment as Refunded.
func (s *Service) ProcessRefund(ctx context.Context, subscriber types.Address, botID uint64, amount types.Amount) error {
	if amount.IsZero() {
		return errors.New(errors.CodeValidation, "refund amount must be positive")
	}

	var refundToken types.Address
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		escrow, err := repo.FindEscrowForUpdate(ctx, subscriber, botID)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "finding escrow")
		}
		if escrow == nil || escrow.Status != enums.PaymentStatusPending {
			return errors.New(errors.CodeStateConflict, "no pending payment to refund")
		}
		if amount.Cmp(escrow.EscrowBalance) > 0 {
			return errors.New(errors.CodeInsufficientFunds, "refund exceeds the escrow balance")
		}

		refundToken = escrow.Token
		escrow.EscrowBalance = escrow.EscrowBalance.Sub(amount)
		if escrow.EscrowBalance.IsZero() {
			escrow.Status = enums.PaymentStatusRefunded
		}
		if err := repo.UpdateEscrow(ctx, escrow); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "updating escrow")
		}

		if err := repo.SubBotIncome(ctx, botID, amount); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "reversing bot income")
		}

		if err := repo.CreateEvent(ctx, &models.PaymentEvent{
			Type:   enums.PaymentEventRefundProcessed,
			Wallet: subscriber,
			BotID:  botID,
			Token:  escrow.Token,
			Amount: amount,
		}); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "recording refund event")
		}

		return s.ledger.Transfer(escrow.Token, s.escrowAccount, subscriber, amount)
	})
	if err != nil {
		s.metrics.IncFailure("process_refund", string(errors.As(err).Code()))
		return err
	}
	s.metrics.IncRefunded(refundToken.String())
	return nil
}

// WithdrawBalance pays out a developer's full accumulated balance in the
// given token.
func (s *Service) WithdrawBalance(ctx context.Context, developer, token types.Address) (types.Amount, error) {
	var withdrawn types.Amount
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		balance, err := repo.FindDeveloperBalanceForUpdate(ctx, developer, token)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "finding developer balance")
		}
		if balance == nil || balance.Balance.IsZero() {
			return errors.New(errors.CodeStateConflict, "nothing to withdraw")
		}

		withdrawn = balance.Balance
		balance.Balance = types.Amount{}
		if err := repo.SaveDeveloperBalance(ctx, balance); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "zeroing developer balance")
		}

		if err := repo.CreateEvent(ctx, &models.PaymentEvent{
			Type:   enums.PaymentEventBalanceWithdrawn,
			Wallet: developer,
			Token:  token,
			Amount: withdrawn,
		}); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "recording withdrawal event")
		}

		return s.ledger.Transfer(token, s.escrowAccount, developer, withdrawn)
	})
	if err != nil {
		s.metrics.IncFailure("withdraw_balance", string(errors.As(err).Code()))
		return types.Amount{}, err
	}
	s.metrics.IncWithdrawal(kindDeveloper)
	return withdrawn, nil
}

// WithdrawPlatformFee pays the platform's accumulated fees in the given
// token out to the treasury.
func (s *Service) WithdrawPlatformFee(ctx context.Context, token types.Address) (types.Amount, error) {
	var withdrawn types.Amount
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		balance, err := repo.FindPlatformFeeBalanceForUpdate(ctx, token)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "finding platform fee balance")
		}
		if balance == nil || balance.Balance.IsZero() {
			return errors.New(errors.CodeStateConflict, "nothing to withdraw")
		}

		withdrawn = balance.Balance
		balance.Balance = types.Amount{}
		if err := repo.SavePlatformFeeBalance(ctx, balance); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "zeroing platform fee balance")
		}

		if err := repo.CreateEvent(ctx, &models.PaymentEvent{
			Type:   enums.PaymentEventBalanceWithdrawn,
			Wallet: s.treasury,
			Token:  token,
			Amount: withdrawn,
		}); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "recording withdrawal event")
		}

		return s.ledger.Transfer(token, s.escrowAccount, s.treasury, withdrawn)
	})
	if err != nil {
		s.metrics.IncFailure("withdraw_platform_fee", string(errors.As(err).Code()))
		return types.Amount{}, err
	}
	s.metrics.IncWithdrawal(kindPlatform)
	return withdrawn, nil
}

// UpdatePlatformFee changes the platform's cut, capped at 100%.
func (s *Service) UpdatePlatformFee(ctx context.Context, newBps uint64) error {
	if newBps > maxFeeBps {
		return errors.New(errors.CodeValidation, "fee must not exceed 10000 bps")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		setting, err := repo.FindPlatformSetting(ctx)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "finding platform setting")
		}
		oldBps := s.defaultFeeBps
		if setting == nil {
			setting = &models.PlatformSetting{ID: models.PlatformSettingID}
		} else {
			oldBps = setting.FeeBps
		}
		setting.FeeBps = newBps
		if err := repo.SavePlatformSetting(ctx, setting); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "updating platform setting")
		}

		metadata, _ := json.Marshal(map[string]uint64{"old_bps": oldBps, "new_bps": newBps})
		return repo.CreateEvent(ctx, &models.PaymentEvent{
			Type:     enums.PaymentEventPlatformFeeUpdated,
			Wallet:   s.treasury,
			Metadata: metadata,
		})
	})
}

// EscrowBalance reads the current escrow balance for a (subscriber, bot).
func (s *Service) EscrowBalance(ctx context.Context, subscriber types.Address, botID uint64) (types.Amount, error) {
	escrow, err := s.repo.FindEscrow(ctx, subscriber, botID)
	if err != nil {
		return types.Amount{}, errors.Wrap(errors.CodeInternal, err, "finding escrow")
	}
	if escrow == nil {
		return types.Amount{}, nil
	}
	return escrow.EscrowBalance, nil
}

// PaymentStatus reads the lifecycle state for a (subscriber, bot) payment.
func (s *Service) PaymentStatus(ctx context.Context, subscriber types.Address, botID uint64) (enums.PaymentStatus, error) {
	escrow, err := s.repo.FindEscrow(ctx, subscriber, botID)
	if err != nil {
		return enums.PaymentStatusNone, errors.Wrap(errors.CodeInternal, err, "finding escrow")
	}
	if escrow == nil {
		return enums.PaymentStatusNone, nil
	}
	return escrow.Status, nil
}

// IsTokenSupported reports whether payments in the token are accepted.
func (s *Service) IsTokenSupported(ctx context.Context, token types.Address) (bool, error) {
	supported, err := s.repo.FindToken(ctx, token)
	if err != nil {
		return false, errors.Wrap(errors.CodeInternal, err, "finding token")
	}
	return supported != nil, nil
}

// SupportedTokens lists every accepted payment token.
func (s *Service) SupportedTokens(ctx context.Context) ([]models.SupportedToken, error) {
	tokens, err := s.repo.ListTokens(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing tokens")
	}
	return tokens, nil
}

// DeveloperBalance reads a developer's withdrawable balance in a token.
func (s *Service) DeveloperBalance(ctx context.Context, developer, token types.Address) (types.Amount, error) {
	balance, err := s.repo.FindDeveloperBalance(ctx, developer, token)
	if err != nil {
		return types.Amount{}, errors.Wrap(errors.CodeInternal, err, "finding developer balance")
	}
	if balance == nil {
		return types.Amount{}, nil
	}
	return balance.Balance, nil
}

// PlatformFeeBalance reads the platform's accumulated fees in a token.
func (s *Service) PlatformFeeBalance(ctx context.Context, token types.Address) (types.Amount, error) {
	balance, err := s.repo.FindPlatformFeeBalance(ctx, token)
	if err != nil {
		return types.Amount{}, errors.Wrap(errors.CodeInternal, err, "finding platform fee balance")
	}
	if balance == nil {
		return types.Amount{}, nil
	}
	return balance.Balance, nil
}

// CurrentFeeBps reads the platform fee rate.
func (s *Service) CurrentFeeBps(ctx context.Context) (uint64, error) {
	return s.feeBps(ctx, s.repo)
}

// PaymentHistory lists recent payment lifecycle events for a wallet.
func (s *Service) PaymentHistory(ctx context.Context, wallet types.Address, limit int) ([]models.PaymentEvent, error) {
	events, err := s.repo.ListEventsByWallet(ctx, wallet, limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing payment events")
	}
	return events, nil
}

func (s *Service) feeBps(ctx context.Context, repo Repository) (uint64, error) {
	setting, err := repo.FindPlatformSetting(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.CodeInternal, err, "finding platform setting")
	}
	if setting == nil {
		return s.defaultFeeBps, nil
	}
	return setting.FeeBps, nil
}

func (s *Service) creditPlatformFee(ctx context.Context, repo Repository, token types.Address, fee types.Amount) error {
	if fee.IsZero() {
		return nil
	}
	balance, err := repo.FindPlatformFeeBalanceForUpdate(ctx, token)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "finding platform fee balance")
	}
	if balance == nil {
		balance = &models.PlatformFeeBalance{Token: token}
	}
	balance.Balance = balance.Balance.Add(fee)
	if err := repo.SavePlatformFeeBalance(ctx, balance); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "crediting platform fee")
	}
	return nil
}

func (s *Service) creditDeveloper(ctx context.Context, repo Repository, developer, token types.Address, share types.Amount) error {
	if share.IsZero() {
		return nil
	}
	balance, err := repo.FindDeveloperBalanceForUpdate(ctx, developer, token)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "finding developer balance")
	}
	if balance == nil {
		balance = &models.DeveloperBalance{Developer: developer, Token: token}
	}
	balance.Balance = balance.Balance.Add(share)
	if err := repo.SaveDeveloperBalance(ctx, balance); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "crediting developer balance")
	}
	return nil
}

// expectedCharge is price per 30-day period times the number of periods the
// requested window spans, partial periods rounding up.
func expectedCharge(price types.Amount, days uint64) types.Amount {
	periods := (days + daysPerPeriod - 1) / daysPerPeriod
	total := new(uint256.Int).Mul(price.Int(), uint256.NewInt(periods))
	return types.NewAmount(total)
}

// splitFee carves the platform's cut out of the released escrow, flooring
// the fee so fee + share always reassembles the full balance.
func splitFee(escrow types.Amount, feeBps uint64) (fee, share types.Amount) {
	f := new(uint256.Int).Mul(escrow.Int(), uint256.NewInt(feeBps))
	f.Div(f, uint256.NewInt(maxFeeBps))
	s := new(uint256.Int).Sub(escrow.Int(), f)
	return types.NewAmount(f), types.NewAmount(s)
}
