package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgdb "github.com/botmarket-labs/botmarket-backend/pkg/db"
	"github.com/botmarket-labs/botmarket-backend/pkg/db/models"
	"github.com/botmarket-labs/botmarket-backend/pkg/enums"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS escrow_payments (
  id TEXT PRIMARY KEY,
  wallet TEXT NOT NULL,
  bot_id INTEGER NOT NULL,
  token TEXT NOT NULL,
  escrow_balance TEXT NOT NULL,
  start_time DATETIME NOT NULL,
  status TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (wallet, bot_id)
);`,
		`CREATE TABLE IF NOT EXISTS supported_tokens (
  id TEXT PRIMARY KEY,
  token TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  symbol TEXT NOT NULL,
  decimals INTEGER NOT NULL DEFAULT 6,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS developer_balances (
  id TEXT PRIMARY KEY,
  developer TEXT NOT NULL,
  token TEXT NOT NULL,
  balance TEXT NOT NULL,
  updated_at DATETIME,
  UNIQUE (developer, token)
);`,
		`CREATE TABLE IF NOT EXISTS platform_fee_balances (
  id TEXT PRIMARY KEY,
  token TEXT NOT NULL UNIQUE,
  balance TEXT NOT NULL,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS platform_settings (
  id INTEGER PRIMARY KEY,
  fee_bps INTEGER NOT NULL,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS bots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  developer TEXT NOT NULL,
  ipfs_hash TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  price TEXT NOT NULL,
  trial_seconds INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  total_income TEXT NOT NULL DEFAULT '0',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS payment_events (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  wallet TEXT NOT NULL,
  bot_id INTEGER NOT NULL,
  token TEXT,
  amount TEXT NOT NULL,
  fee TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func TestRepositoryEscrowRoundtrip(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	missing, err := repo.FindEscrow(context.Background(), subscriber, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	payment := &models.EscrowPayment{
		Wallet:        subscriber,
		BotID:         1,
		Token:         usdtAddress,
		EscrowBalance: types.NewAmountFromUint64(botPrice),
		StartTime:     time.Now().UTC().Truncate(time.Second),
		Status:        enums.PaymentStatusPending,
	}
	require.NoError(t, repo.CreateEscrow(context.Background(), payment))

	found, err := repo.FindEscrow(context.Background(), subscriber, 1)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, usdtAddress, found.Token)
	assert.Zero(t, found.EscrowBalance.Cmp(types.NewAmountFromUint64(botPrice)))
	assert.Equal(t, enums.PaymentStatusPending, found.Status)

	found.EscrowBalance = types.Amount{}
	found.Status = enums.PaymentStatusFinalized
	require.NoError(t, repo.UpdateEscrow(context.Background(), found))

	again, err := repo.FindEscrow(context.Background(), subscriber, 1)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.True(t, again.EscrowBalance.IsZero())
	assert.Equal(t, enums.PaymentStatusFinalized, again.Status)
}

func TestRepositoryTokenWhitelist(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.CreateToken(context.Background(), &models.SupportedToken{
		Token:    usdtAddress,
		Name:     "Tether USD",
		Symbol:   "USDT",
		Decimals: 6,
	}))
	require.NoError(t, repo.CreateToken(context.Background(), &models.SupportedToken{
		Token:     daiAddress,
		Name:      "Dai Stablecoin",
		Symbol:    "DAI",
		Decimals:  18,
		CreatedAt: time.Now().UTC().Add(time.Second),
	}))

	found, err := repo.FindToken(context.Background(), usdtAddress)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "USDT", found.Symbol)

	listed, err := repo.ListTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, usdtAddress, listed[0].Token)
	assert.Equal(t, daiAddress, listed[1].Token)

	require.NoError(t, repo.DeleteToken(context.Background(), usdtAddress))

	gone, err := repo.FindToken(context.Background(), usdtAddress)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestRepositoryDuplicateTokenIsUniqueViolation(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	token := &models.SupportedToken{
		Token:    usdtAddress,
		Name:     "Tether USD",
		Symbol:   "USDT",
		Decimals: 6,
	}
	require.NoError(t, repo.CreateToken(context.Background(), token))

	err := repo.CreateToken(context.Background(), &models.SupportedToken{
		Token:    usdtAddress,
		Name:     "Tether USD",
		Symbol:   "USDT",
		Decimals: 6,
	})
	require.Error(t, err)
	assert.True(t, pkgdb.IsUniqueViolation(err))
}

func TestRepositoryDeveloperBalanceUpsert(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	missing, err := repo.FindDeveloperBalance(context.Background(), developer, usdtAddress)
	require.NoError(t, err)
	assert.Nil(t, missing)

	balance := &models.DeveloperBalance{
		Developer: developer,
		Token:     usdtAddress,
		Balance:   types.NewAmountFromUint64(1_000),
	}
	require.NoError(t, repo.SaveDeveloperBalance(context.Background(), balance))

	found, err := repo.FindDeveloperBalance(context.Background(), developer, usdtAddress)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Zero(t, found.Balance.Cmp(types.NewAmountFromUint64(1_000)))

	found.Balance = found.Balance.Add(types.NewAmountFromUint64(500))
	require.NoError(t, repo.SaveDeveloperBalance(context.Background(), found))

	again, err := repo.FindDeveloperBalance(context.Background(), developer, usdtAddress)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Zero(t, again.Balance.Cmp(types.NewAmountFromUint64(1_500)))
}

func TestRepositoryPlatformSetting(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	missing, err := repo.FindPlatformSetting(context.Background())
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.SavePlatformSetting(context.Background(), &models.PlatformSetting{
		ID:     models.PlatformSettingID,
		FeeBps: 500,
	}))

	setting, err := repo.FindPlatformSetting(context.Background())
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.Equal(t, uint64(500), setting.FeeBps)

	setting.FeeBps = 750
	require.NoError(t, repo.SavePlatformSetting(context.Background(), setting))

	setting, err = repo.FindPlatformSetting(context.Background())
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.Equal(t, uint64(750), setting.FeeBps)
}

func TestRepositoryBotIncomeAccrual(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	bot := &models.Bot{
		Developer: developer,
		IPFSHash:  "QmIncome",
		Name:      "Earner",
		Price:     types.NewAmountFromUint64(botPrice),
		IsActive:  true,
	}
	require.NoError(t, db.Create(bot).Error)

	require.NoError(t, repo.AddBotIncome(context.Background(), bot.ID, types.NewAmountFromUint64(1_000)))
	require.NoError(t, repo.AddBotIncome(context.Background(), bot.ID, types.NewAmountFromUint64(250)))
	require.NoError(t, repo.SubBotIncome(context.Background(), bot.ID, types.NewAmountFromUint64(400)))

	var stored models.Bot
	require.NoError(t, db.Where("id = ?", bot.ID).First(&stored).Error)
	assert.Zero(t, stored.TotalIncome.Cmp(types.NewAmountFromUint64(850)))
}

func TestRepositoryListEventsByWallet(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateEvent(context.Background(), &models.PaymentEvent{
			Type:      enums.PaymentEventPaymentProcessed,
			Wallet:    subscriber,
			BotID:     uint64(i + 1),
			Token:     usdtAddress,
			Amount:    types.NewAmountFromUint64(botPrice),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.CreateEvent(context.Background(), &models.PaymentEvent{
		Type:      enums.PaymentEventRefundProcessed,
		Wallet:    developer,
		BotID:     9,
		Token:     usdtAddress,
		Amount:    types.NewAmountFromUint64(100),
		CreatedAt: base,
	}))

	events, err := repo.ListEventsByWallet(context.Background(), subscriber, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(3), events[0].BotID)
	assert.Equal(t, uint64(2), events[1].BotID)

	all, err := repo.ListEventsByWallet(context.Background(), subscriber, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
