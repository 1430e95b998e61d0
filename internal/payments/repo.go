package payments

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/botmarket-labs/botmarket-backend/pkg/db/models"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// forUpdateLock serializes writers against escrow and balance rows.
var forUpdateLock = clause.Locking{Strength: "UPDATE"}

// Repository handles escrow, balance, and token persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindEscrow(ctx context.Context, wallet types.Address, botID uint64) (*models.EscrowPayment, error)
	FindEscrowForUpdate(ctx context.Context, wallet types.Address, botID uint64) (*models.EscrowPayment, error)
	CreateEscrow(ctx context.Context, payment *models.EscrowPayment) error
	UpdateEscrow(ctx context.Context, payment *models.EscrowPayment) error

	FindToken(ctx context.Context, token types.Address) (*models.SupportedToken, error)
	CreateToken(ctx context.Context, token *models.SupportedToken) error
	DeleteToken(ctx context.Context, token types.Address) error
	ListTokens(ctx context.Context) ([]models.SupportedToken, error)

	FindDeveloperBalance(ctx context.Context, developer, token types.Address) (*models.DeveloperBalance, error)
	FindDeveloperBalanceForUpdate(ctx context.Context, developer, token types.Address) (*models.DeveloperBalance, error)
	SaveDeveloperBalance(ctx context.Context, balance *models.DeveloperBalance) error

	FindPlatformFeeBalance(ctx context.Context, token types.Address) (*models.PlatformFeeBalance, error)
	FindPlatformFeeBalanceForUpdate(ctx context.Context, token types.Address) (*models.PlatformFeeBalance, error)
	SavePlatformFeeBalance(ctx context.Context, balance *models.PlatformFeeBalance) error

	FindPlatformSetting(ctx context.Context) (*models.PlatformSetting, error)
	SavePlatformSetting(ctx context.Context, setting *models.PlatformSetting) error

	AddBotIncome(ctx context.Context, botID uint64, delta types.Amount) error
	SubBotIncome(ctx context.Context, botID uint64, delta types.Amount) error

	CreateEvent(ctx context.Context, event *models.PaymentEvent) error
	ListEventsByWallet(ctx context.Context, wallet types.Address, limit int) ([]models.PaymentEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindEscrow(ctx context.Context, wallet types.Address, botID uint64) (*models.EscrowPayment, error) {
	return r.findEscrow(ctx, wallet, botID, false)
}

func (r *repository) FindEscrowForUpdate(ctx context.Context, wallet types.Address, botID uint64) (*models.EscrowPayment, error) {
	return r.findEscrow(ctx, wallet, botID, true)
}

func (r *repository) findEscrow(ctx context.Context, wallet types.Address, botID uint64, lock bool) (*models.EscrowPayment, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(forUpdateLock)
	}
	var payment models.EscrowPayment
	if err := query.
		Where("wallet = ? AND bot_id = ?", wallet, botID).
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) CreateEscrow(ctx context.Context, payment *models.EscrowPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) UpdateEscrow(ctx context.Context, payment *models.EscrowPayment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *repository) FindToken(ctx context.Context, token types.Address) (*models.SupportedToken, error) {
	var supported models.SupportedToken
	if err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&supported).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &supported, nil
}

func (r *repository) CreateToken(ctx context.Context, token *models.SupportedToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *repository) DeleteToken(ctx context.Context, token types.Address) error {
	return r.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&models.SupportedToken{}).Error
}

func (r *repository) ListTokens(ctx context.Context) ([]models.SupportedToken, error) {
	var tokens []models.SupportedToken
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *repository) FindDeveloperBalance(ctx context.Context, developer, token types.Address) (*models.DeveloperBalance, error) {
	return r.findDeveloperBalance(ctx, developer, token, false)
}

func (r *repository) FindDeveloperBalanceForUpdate(ctx context.Context, developer, token types.Address) (*models.DeveloperBalance, error) {
	return r.findDeveloperBalance(ctx, developer, token, true)
}

func (r *repository) findDeveloperBalance(ctx context.Context, developer, token types.Address, lock bool) (*models.DeveloperBalance, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(forUpdateLock)
	}
	var balance models.DeveloperBalance
	if err := query.
		Where("developer = ? AND token = ?", developer, token).
		First(&balance).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &balance, nil
}

func (r *repository) SaveDeveloperBalance(ctx context.Context, balance *models.DeveloperBalance) error {
	return r.db.WithContext(ctx).Save(balance).Error
}

func (r *repository) FindPlatformFeeBalance(ctx context.Context, token types.Address) (*models.PlatformFeeBalance, error) {
	return r.findPlatformFeeBalance(ctx, token, false)
}

func (r *repository) FindPlatformFeeBalanceForUpdate(ctx context.Context, token types.Address) (*models.PlatformFeeBalance, error) {
	return r.findPlatformFeeBalance(ctx, token, true)
}

func (r *repository) findPlatformFeeBalance(ctx context.Context, token types.Address, lock bool) (*models.PlatformFeeBalance, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(forUpdateLock)
	}
	var balance models.PlatformFeeBalance
	if err := query.
		Where("token = ?", token).
		First(&balance).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &balance, nil
}

func (r *repository) SavePlatformFeeBalance(ctx context.Context, balance *models.PlatformFeeBalance) error {
	return r.db.WithContext(ctx).Save(balance).Error
}

func (r *repository) FindPlatformSetting(ctx context.Context) (*models.PlatformSetting, error) {
	var setting models.PlatformSetting
	if err := r.db.WithContext(ctx).
		Where("id = ?", models.PlatformSettingID).
		First(&setting).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

func (r *repository) SavePlatformSetting(ctx context.Context, setting *models.PlatformSetting) error {
	return r.db.WithContext(ctx).Save(setting).Error
}

func (r *repository) AddBotIncome(ctx context.Context, botID uint64, delta types.Amount) error {
	return r.db.WithContext(ctx).
		Model(&models.Bot{}).
		Where("id = ?", botID).
		Update("total_income", gorm.Expr("total_income + ?", delta)).Error
}

func (r *repository) SubBotIncome(ctx context.Context, botID uint64, delta types.Amount) error {
	return r.db.WithContext(ctx).
		Model(&models.Bot{}).
		Where("id = ?", botID).
		Update("total_income", gorm.Expr("total_income - ?", delta)).Error
}

func (r *repository) CreateEvent(ctx context.Context, event *models.PaymentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListEventsByWallet(ctx context.Context, wallet types.Address, limit int) ([]models.PaymentEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.PaymentEvent
	if err := r.db.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
