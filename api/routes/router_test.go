package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/botmarket-labs/botmarket-backend/internal/ledger"
	"github.com/botmarket-labs/botmarket-backend/internal/payments"
	"github.com/botmarket-labs/botmarket-backend/internal/registry"
	"github.com/botmarket-labs/botmarket-backend/internal/subscriptions"
	pkgAuth "github.com/botmarket-labs/botmarket-backend/pkg/auth"
	"github.com/botmarket-labs/botmarket-backend/pkg/config"
	"github.com/botmarket-labs/botmarket-backend/pkg/db/models"
	"github.com/botmarket-labs/botmarket-backend/pkg/enums"
	"github.com/botmarket-labs/botmarket-backend/pkg/logger"
	"github.com/botmarket-labs/botmarket-backend/pkg/types"
)

const (
	testWallet = types.Address("0x1111111111111111111111111111111111111111")
	testToken  = types.Address("0x2222222222222222222222222222222222222222")
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

// memoryStore is an in-process stand-in for the redis idempotency store.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]string{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[key], nil
}

func (s *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = value.(string)
	return nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = value.(string)
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.records, key)
	}
	return nil
}

func (s *memoryStore) Ping(context.Context) error {
	return nil
}

type stubRegistryRepo struct {
	mu      sync.Mutex
	bots    map[uint64]models.Bot
	nextID  uint64
	creates int
}

func newStubRegistryRepo() *stubRegistryRepo {
	return &stubRegistryRepo{bots: map[uint64]models.Bot{}, nextID: 1}
}

func (s *stubRegistryRepo) WithTx(*gorm.DB) registry.Repository {
	return s
}

func (s *stubRegistryRepo) Create(_ context.Context, bot *models.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bot.ID = s.nextID
	s.nextID++
	s.creates++
	s.bots[bot.ID] = *bot
	return nil
}

func (s *stubRegistryRepo) Update(_ context.Context, bot *models.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bots[bot.ID] = *bot
	return nil
}

func (s *stubRegistryRepo) FindByID(_ context.Context, id uint64) (*models.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bot, ok := s.bots[id]
	if !ok {
		return nil, nil
	}
	return &bot, nil
}

func (s *stubRegistryRepo) FindByIDForUpdate(ctx context.Context, id uint64) (*models.Bot, error) {
	return s.FindByID(ctx, id)
}

func (s *stubRegistryRepo) ListActive(context.Context) ([]models.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Bot{}
	for _, bot := range s.bots {
		if bot.IsActive {
			out = append(out, bot)
		}
	}
	return out, nil
}

func (s *stubRegistryRepo) ListByDeveloper(_ context.Context, developer types.Address) ([]models.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Bot{}
	for _, bot := range s.bots {
		if bot.Developer == developer {
			out = append(out, bot)
		}
	}
	return out, nil
}

func (s *stubRegistryRepo) CountByDeveloper(_ context.Context, developer types.Address) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := int64(0)
	for _, bot := range s.bots {
		if bot.Developer == developer {
			count++
		}
	}
	return count, nil
}

func (s *stubRegistryRepo) CreateEvent(context.Context, *models.PaymentEvent) error {
	return nil
}

type stubSubscriptionRepo struct{}

func (s stubSubscriptionRepo) WithTx(*gorm.DB) subscriptions.Repository {
	return s
}

func (stubSubscriptionRepo) Create(context.Context, *models.Subscription) error {
	return nil
}

func (stubSubscriptionRepo) Update(context.Context, *models.Subscription) error {
	return nil
}

func (stubSubscriptionRepo) Find(context.Context, types.Address, uint64) (*models.Subscription, error) {
	return nil, nil
}

func (stubSubscriptionRepo) FindForUpdate(context.Context, types.Address, uint64) (*models.Subscription, error) {
	return nil, nil
}

func (stubSubscriptionRepo) MarkElapsed(context.Context, time.Time, int) (int64, error) {
	return 0, nil
}

type stubPaymentsRepo struct{}

func (s stubPaymentsRepo) WithTx(*gorm.DB) payments.Repository {
	return s
}

func (stubPaymentsRepo) FindEscrow(context.Context, types.Address, uint64) (*models.EscrowPayment, error) {
	return nil, nil
}

func (stubPaymentsRepo) FindEscrowForUpdate(context.Context, types.Address, uint64) (*models.EscrowPayment, error) {
	return nil, nil
}

func (stubPaymentsRepo) CreateEscrow(context.Context, *models.EscrowPayment) error {
	panic("unimplemented")
}

func (stubPaymentsRepo) UpdateEscrow(context.Context, *models.EscrowPayment) error {
	panic("unimplemented")
}

func (stubPaymentsRepo) FindToken(context.Context, types.Address) (*models.SupportedToken, error) {
	return nil, nil
}

func (stubPaymentsRepo) CreateToken(context.Context, *models.SupportedToken) error {
	panic("unimplemented")
}

func (stubPaymentsRepo) DeleteToken(context.Context, types.Address) error {
	panic("unimplemented")
}

func (stubPaymentsRepo) ListTokens(context.Context) ([]models.SupportedToken, error) {
	return []models.SupportedToken{{Token: testToken, Name: "Test USD", Symbol: "TUSD", Decimals: 6}}, nil
}

func (stubPaymentsRepo) FindDeveloperBalance(context.Context, types.Address, types.Address) (*models.DeveloperBalance, error) {
	return nil, nil
}

func (stubPaymentsRepo) FindDeveloperBalanceForUpdate(context.Context, types.Address, types.Address) (*models.DeveloperBalance, error) {
	return nil, nil
}

func (stubPaymentsRepo) SaveDeveloperBalance(context.Context, *models.DeveloperBalance) error {
	panic("unimplemented")
}

func (stubPaymentsRepo) FindPlatformFeeBalance(context.Context, types.Address) (*models.PlatformFeeBalance, error) {
	return nil, nil
}

func (stubPaymentsRepo) FindPlatformFeeBalanceForUpdate(context.Context, types.Address) (*models.PlatformFeeBalance, error) {
	return nil, nil
}

func (stubPaymentsRepo) SavePlatformFeeBalance(context.Context, *models.PlatformFeeBalance) error {
	panic("unimplemented")
}

func (stubPaymentsRepo) FindPlatformSetting(context.Context) (*models.PlatformSetting, error) {
	return &models.PlatformSetting{ID: models.PlatformSettingID, FeeBps: 500}, nil
}

func (stubPaymentsRepo) SavePlatformSetting(context.Context, *models.PlatformSetting) error {
	panic("unimplemented")
}

func (stubPaymentsRepo) AddBotIncome(context.Context, uint64, types.Amount) error {
	panic("unimplemented")
}

func (stubPaymentsRepo) SubBotIncome(context.Context, uint64, types.Amount) error {
	panic("unimplemented")
}

func (stubPaymentsRepo) CreateEvent(context.Context, *models.PaymentEvent) error {
	return nil
}

func (stubPaymentsRepo) ListEventsByWallet(context.Context, types.Address, int) ([]models.PaymentEvent, error) {
	return []models.PaymentEvent{}, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
		Platform: config.PlatformConfig{
			EscrowWallet:   "0x00000000000000000000000000000000000e5c00",
			TreasuryWallet: "0x00000000000000000000000000000000000f3e00",
			ChainID:        31337,
			DefaultFeeBps:  500,
		},
	}
}

type routerFixture struct {
	router       http.Handler
	registryRepo *stubRegistryRepo
	store        *memoryStore
}

func newTestRouter(t *testing.T, cfg *config.Config) *routerFixture {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})

	registryRepo := newStubRegistryRepo()
	registryService, err := registry.NewService(registry.ServiceParams{Repo: registryRepo})
	if err != nil {
		t.Fatalf("registry service: %v", err)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{Repo: stubSubscriptionRepo{}})
	if err != nil {
		t.Fatalf("subscription service: %v", err)
	}

	tokenLedger := ledger.New(cfg.Platform.ChainID)
	paymentService, err := payments.NewService(payments.ServiceParams{
		DB:            stubTxRunner{},
		Repo:          stubPaymentsRepo{},
		Catalog:       registryService,
		Subscriptions: subscriptionService,
		Ledger:        tokenLedger,
		EscrowAccount: cfg.Platform.EscrowAddress(),
		Treasury:      cfg.Platform.TreasuryAddress(),
		DefaultFeeBps: cfg.Platform.DefaultFeeBps,
	})
	if err != nil {
		t.Fatalf("payment service: %v", err)
	}

	store := newMemoryStore()
	router := NewRouter(RouterParams{
		Config:        cfg,
		Logger:        logg,
		DB:            stubPinger{},
		Redis:         store,
		Registry:      registryService,
		Subscriptions: subscriptionService,
		Payments:      paymentService,
		Ledger:        tokenLedger,
	})

	return &routerFixture{router: router, registryRepo: registryRepo, store: store}
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		Wallet: testWallet,
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestCatalogReadsNeedNoToken(t *testing.T) {
	fix := newTestRouter(t, testConfig())

	for _, path := range []string{"/api/v1/bots", "/api/v1/tokens", "/api/v1/platform/fee"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		fix.router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestPlatformFeeRead(t *testing.T) {
	fix := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platform/fee", nil)
	resp := httptest.NewRecorder()
	fix.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"fee_bps":500`) {
		t.Fatalf("expected fee in response, got %s", resp.Body.String())
	}
}

func TestPrivateRoutesRejectMissingJWT(t *testing.T) {
	fix := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/developers/me", nil)
	resp := httptest.NewRecorder()
	fix.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateRoutesAcceptJWT(t *testing.T) {
	cfg := testConfig()
	fix := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/developers/me", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	resp := httptest.NewRecorder()
	fix.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"is_developer":false`) {
		t.Fatalf("expected developer flag in response, got %s", resp.Body.String())
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	fix := newTestRouter(t, cfg)
	path := "/api/admin/v1/platform/fees/" + testToken.String()

	nonAdmin := httptest.NewRequest(http.MethodGet, path, nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	resp := httptest.NewRecorder()
	fix.router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, path, nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleAdmin))
	resp = httptest.NewRecorder()
	fix.router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestDevRoutesHiddenInProd(t *testing.T) {
	cfg := testConfig()
	cfg.App.Env = "prod"
	fix := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/dev/v1/token", strings.NewReader(`{"wallet":"0x1111111111111111111111111111111111111111","role":"user"}`))
	resp := httptest.NewRecorder()
	fix.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 in prod got %d", resp.Code)
	}
}

func TestDevTokenIssueOutsideProd(t *testing.T) {
	fix := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/dev/v1/token", strings.NewReader(`{"wallet":"0x1111111111111111111111111111111111111111","role":"developer"}`))
	resp := httptest.NewRecorder()
	fix.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "access_token") {
		t.Fatalf("expected access token in response, got %s", resp.Body.String())
	}
}

func TestPaymentPostRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	fix := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	resp := httptest.NewRecorder()
	fix.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}
}

func TestBotRegistrationReplaysIdempotently(t *testing.T) {
	cfg := testConfig()
	fix := newTestRouter(t, cfg)
	body := `{"ipfs_hash":"QmBotSpec","name":"signal-bot","price":"10000000","trial_seconds":604800}`

	first := httptest.NewRequest(http.MethodPost, "/api/v1/bots", strings.NewReader(body))
	first.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleDeveloper))
	first.Header.Set("Idempotency-Key", "reg-1")
	resp := httptest.NewRecorder()
	fix.router.ServeHTTP(resp, first)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/bots", strings.NewReader(body))
	second.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleDeveloper))
	second.Header.Set("Idempotency-Key", "reg-1")
	replay := httptest.NewRecorder()
	fix.router.ServeHTTP(replay, second)
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", replay.Code)
	}

	if fix.registryRepo.creates != 1 {
		t.Fatalf("expected exactly one create, got %d", fix.registryRepo.creates)
	}

	reused := httptest.NewRequest(http.MethodPost, "/api/v1/bots", strings.NewReader(`{"ipfs_hash":"QmOther","name":"other-bot","price":"1","trial_seconds":0}`))
	reused.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleDeveloper))
	reused.Header.Set("Idempotency-Key", "reg-1")
	conflict := httptest.NewRecorder()
	fix.router.ServeHTTP(conflict, reused)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key with new body got %d", conflict.Code)
	}
}
