package payments

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/botmarket-labs/botmarket-backend/internal/ledger"
	"github.com/botmarket-labs/botmarket-backend/internal/subscriptions"
	"github.com/botmarket-labs/botmarket-backend/pkg/db/models"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

// BotCatalog is the slice of the registry service the payment flow needs.
type BotCatalog interface {
	GetBot(ctx context.Context, botID uint64) (*models.Bot, error)
}

// SubscriptionOpener opens or extends a subscription inside the payment
// transaction.
type SubscriptionOpener interface {
	Open(ctx context.Context, tx *gorm.DB, input subscriptions.OpenInput) (*models.Subscription, error)
}

// TokenLedger is the settlement layer the escrow account moves funds on.
type TokenLedger interface {
	BalanceOf(token, holder types.Address) (types.Amount, error)
	Transfer(token, from, to types.Address, value types.Amount) error
	TransferFrom(token, spender, from, to types.Address, value types.Amount) error
	Permit(token types.Address, p ledger.PermitRequest, now time.Time) error
}
