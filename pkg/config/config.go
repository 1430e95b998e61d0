package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Platform     PlatformConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Platform.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BOTMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"BOTMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BOTMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BOTMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BOTMARKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BOTMARKET_DB_DSN"`
	Driver string `envconfig:"BOTMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOTMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"BOTMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOTMARKET_DB_USER"`
	LegacyPassword string `envconfig:"BOTMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOTMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOTMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOTMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOTMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOTMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOTMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOTMARKET_REDIS_URL" required:"true"`
	Password     string        `envconfig:"BOTMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOTMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOTMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOTMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOTMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOTMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOTMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BOTMARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BOTMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BOTMARKET_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// PlatformConfig carries the settlement-layer identity of this deployment.
type PlatformConfig struct {
	// EscrowWallet is the ledger account that custodies escrowed funds
	// between payment and finalization.
	EscrowWallet string `envconfig:"BOTMARKET_PLATFORM_ESCROW_WALLET" default:"0x00000000000000000000000000000000000e5c00"`
	// TreasuryWallet receives withdrawn platform fees.
	TreasuryWallet string `envconfig:"BOTMARKET_PLATFORM_TREASURY_WALLET" default:"0x00000000000000000000000000000000000f3e00"`
	// ChainID feeds the EIP-712 domain separator used for permits.
	ChainID uint64 `envconfig:"BOTMARKET_PLATFORM_CHAIN_ID" default:"31337"`
	// DefaultFeeBps seeds the platform fee on first migration; runtime
	// updates go through the payments service.
	DefaultFeeBps uint64 `envconfig:"BOTMARKET_PLATFORM_DEFAULT_FEE_BPS" default:"500"`
}

func (p PlatformConfig) validate() error {
	if _, err := types.ParseAddress(p.EscrowWallet); err != nil {
		return fmt.Errorf("invalid escrow wallet: %w", err)
	}
	if _, err := types.ParseAddress(p.TreasuryWallet); err != nil {
		return fmt.Errorf("invalid treasury wallet: %w", err)
	}
	if p.DefaultFeeBps > 10000 {
		return fmt.Errorf("default fee %d exceeds 10000 bps", p.DefaultFeeBps)
	}
	return nil
}

// EscrowAddress returns the validated escrow account.
func (p PlatformConfig) EscrowAddress() types.Address {
	addr, _ := types.ParseAddress(p.EscrowWallet)
	return addr
}

// TreasuryAddress returns the validated treasury account.
func (p PlatformConfig) TreasuryAddress() types.Address {
	addr, _ := types.ParseAddress(p.TreasuryWallet)
	return addr
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"BOTMARKET_CRON_INTERVAL" default:"1m"`
	ExpiryBatchLimit int           `envconfig:"BOTMARKET_CRON_EXPIRY_BATCH_LIMIT" default:"250"`
	LockTTL          time.Duration `envconfig:"BOTMARKET_CRON_LOCK_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BOTMARKET_AUTO_MIGRATE" default:"false"`
	// DevFaucet enables the simulated token mint endpoint outside prod.
	DevFaucet bool `envconfig:"BOTMARKET_FEATURE_DEV_FAUCET" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
