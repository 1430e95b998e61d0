package registry

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/botmarket-labs/botmarket-backend/pkg/db/models"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// forUpdateLock serializes writers against the same bot row.
var forUpdateLock = clause.Locking{Strength: "UPDATE"}

// Repository handles bot catalog persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, bot *models.Bot) error
	Update(ctx context.Context, bot *models.Bot) error
	FindByID(ctx context.Context, id uint64) (*models.Bot, error)
	FindByIDForUpdate(ctx context.Context, id uint64) (*models.Bot, error)
	ListActive(ctx context.Context) ([]models.Bot, error)
	ListByDeveloper(ctx context.Context, developer types.Address) ([]models.Bot, error)
	CountByDeveloper(ctx context.Context, developer types.Address) (int64, error)
	CreateEvent(ctx context.Context, event *models.PaymentEvent) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a registry repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, bot *models.Bot) error {
	return r.db.WithContext(ctx).Create(bot).Error
}

func (r *repository) Update(ctx context.Context, bot *models.Bot) error {
	return r.db.WithContext(ctx).Save(bot).Error
}

func (r *repository) FindByID(ctx context.Context, id uint64) (*models.Bot, error) {
	if id == 0 {
		return nil, nil
	}
	var bot models.Bot
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&bot).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &bot, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uint64) (*models.Bot, error) {
	if id == 0 {
		return nil, nil
	}
	var bot models.Bot
	if err := r.db.WithContext(ctx).
		Clauses(forUpdateLock).
		Where("id = ?", id).
		First(&bot).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &bot, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Bot, error) {
	var bots []models.Bot
	if err := r.db.WithContext(ctx).
		Where("is_active").
		Order("id ASC").
		Find(&bots).Error; err != nil {
		return nil, err
	}
	return bots, nil
}

func (r *repository) ListByDeveloper(ctx context.Context, developer types.Address) ([]models.Bot, error) {
	var bots []models.Bot
	if err := r.db.WithContext(ctx).
		Where("developer = ?", developer).
		Order("id ASC").
		Find(&bots).Error; err != nil {
		return nil, err
	}
	return bots, nil
}

func (r *repository) CountByDeveloper(ctx context.Context, developer types.Address) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Bot{}).
		Where("developer = ?", developer).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) CreateEvent(ctx context.Context, event *models.PaymentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
