package subscriptions

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/botmarket-labs/botmarket-backend/pkg/db/models"
	"github.com/botmarket-labs/botmarket-backend/pkg/enums"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// forUpdateLock serializes writers against the same subscription row.
var forUpdateLock = clause.Locking{Strength: "UPDATE"}

// Repository handles subscription persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, subscription *models.Subscription) error
	Update(ctx context.Context, subscription *models.Subscription) error
	Find(ctx context.Context, wallet types.Address, botID uint64) (*models.Subscription, error)
	FindForUpdate(ctx context.Context, wallet types.Address, botID uint64) (*models.Subscription, error)
	MarkElapsed(ctx context.Context, now time.Time, limit int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *repository) Update(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Save(subscription).Error
}

func (r *repository) Find(ctx context.Context, wallet types.Address, botID uint64) (*models.Subscription, error) {
	return r.find(ctx, wallet, botID, false)
}

func (r *repository) FindForUpdate(ctx context.Context, wallet types.Address, botID uint64) (*models.Subscription, error) {
	return r.find(ctx, wallet, botID, true)
}

func (r *repository) find(ctx context.Context, wallet types.Address, botID uint64, lock bool) (*models.Subscription, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(forUpdateLock)
	}
	var sub models.Subscription
	if err := query.
		Where("wallet = ? AND bot_id = ?", wallet, botID).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// MarkElapsed flips live subscriptions whose window has closed to Expired,
// at most limit rows per call so the sweep stays bounded.
func (r *repository) MarkElapsed(ctx context.Context, now time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 250
	}
	live := []enums.SubscriptionStatus{
		enums.SubscriptionStatusTrial,
		enums.SubscriptionStatusActive,
	}
	result := r.db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET status = ?, updated_at = ?
		 WHERE id IN (
			SELECT id FROM subscriptions
			WHERE status IN (?) AND end_time <= ?
			ORDER BY end_time ASC
			LIMIT ?
		 )`,
		enums.SubscriptionStatusExpired, now.UTC(), live, now.UTC(), limit,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
