package pools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/VSyncglobal/gruppy-backend-sub000/internal/poolfinance"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/settings"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/mpesa"
)

func setupPoolTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  full_name TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'buyer',
  balance_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  hs_code TEXT NOT NULL DEFAULT '',
  unit_weight_kg TEXT NOT NULL DEFAULT '0',
  unit_volume_m3 TEXT NOT NULL DEFAULT '0',
  base_cost_cents INTEGER NOT NULL DEFAULT 0,
  benchmark_price_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE pools (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  route_id TEXT NOT NULL,
  pricing_request_id TEXT,
  shipment_id TEXT,
  status TEXT NOT NULL DEFAULT 'filling',
  target_quantity INTEGER NOT NULL,
  current_quantity INTEGER NOT NULL DEFAULT 0,
  unit_price_cents INTEGER NOT NULL,
  base_cost_per_unit_cents INTEGER NOT NULL,
  fixed_cost_per_unit_cents INTEGER NOT NULL,
  progress_percent TEXT NOT NULL DEFAULT '0',
  cumulative_value_cents INTEGER NOT NULL DEFAULT 0,
  deadline DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE pool_members (
  id TEXT PRIMARY KEY,
  pool_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  balance_applied_cents INTEGER NOT NULL DEFAULT 0,
  joined_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE payments (
  id TEXT PRIMARY KEY,
  member_id TEXT,
  pool_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  method TEXT NOT NULL,
  checkout_request_id TEXT UNIQUE,
  merchant_request_id TEXT,
  receipt_number TEXT,
  raw_metadata TEXT,
  failure_reason TEXT,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE pool_finances (
  id TEXT PRIMARY KEY,
  pool_id TEXT NOT NULL UNIQUE,
  base_cost_per_unit_cents INTEGER NOT NULL DEFAULT 0,
  fixed_costs_cents INTEGER NOT NULL DEFAULT 0,
  variable_cost_per_unit_cents INTEGER NOT NULL DEFAULT 0,
  benchmark_price_cents INTEGER NOT NULL DEFAULT 0,
  total_revenue_cents INTEGER NOT NULL DEFAULT 0,
  total_cost_cents INTEGER NOT NULL DEFAULT 0,
  gross_profit_cents INTEGER NOT NULL DEFAULT 0,
  platform_earning_cents INTEGER NOT NULL DEFAULT 0,
  member_savings_cents INTEGER NOT NULL DEFAULT 0,
  is_finalized INTEGER NOT NULL DEFAULT 0,
  finalized_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at DATETIME
);`,
		`CREATE TABLE pricing_requests (
  id TEXT PRIMARY KEY,
  input_payload TEXT NOT NULL,
  output_payload TEXT NOT NULL,
  pool_id TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE audit_logs (
  id TEXT PRIMARY KEY,
  action TEXT NOT NULL,
  entity_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  detail TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE bulk_orders (
  id TEXT PRIMARY KEY,
  pool_id TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'created',
  logistics_cost_cents INTEGER NOT NULL DEFAULT 0,
  total_order_cost_cents INTEGER NOT NULL DEFAULT 0,
  per_item_cost_source TEXT NOT NULL DEFAULT '0',
  exchange_rate TEXT NOT NULL DEFAULT '0',
  taxes_cents INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

type fakeGateway struct {
	calls    []mpesa.STKPushRequest
	fail     bool
	checkout string
}

func (f *fakeGateway) STKPush(ctx context.Context, req mpesa.STKPushRequest) (*mpesa.STKPushResponse, error) {
	f.calls = append(f.calls, req)
	if f.fail {
		return nil, errors.New("gateway timeout")
	}
	checkout := f.checkout
	if checkout == "" {
		checkout = "ws_CO_" + uuid.NewString()
	}
	return &mpesa.STKPushResponse{
		MerchantRequestID: "merchant-" + uuid.NewString(),
		CheckoutRequestID: checkout,
		ResponseCode:      "0",
	}, nil
}

type poolFixture struct {
	db      *gorm.DB
	svc     Service
	gateway *fakeGateway
	product *models.Product
}

func newPoolFixture(t *testing.T) *poolFixture {
	t.Helper()
	db := setupPoolTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "test"})
	settingsSvc, err := settings.NewService(settings.NewRepository(db), logg)
	require.NoError(t, err)
	aggregator, err := poolfinance.NewAggregator(poolfinance.NewRepository(db), settingsSvc, logg)
	require.NoError(t, err)

	gateway := &fakeGateway{}
	svc, err := NewService(NewRepository(db), testTxRunner{db: db}, aggregator, gateway, logg)
	require.NoError(t, err)

	product := &models.Product{
		ID:                  uuid.New(),
		Name:                "solar inverter",
		HSCode:              "8501.10",
		UnitWeightKG:        decimal.NewFromInt(10),
		UnitVolumeM3:        decimal.NewFromFloat(0.1),
		BaseCostCents:       100000,
		BenchmarkPriceCents: 250000,
	}
	require.NoError(t, db.Create(product).Error)

	return &poolFixture{db: db, svc: svc, gateway: gateway, product: product}
}

func (f *poolFixture) seedPool(t *testing.T, target int) *models.Pool {
	t.Helper()
	pool := &models.Pool{
		ID:                    uuid.New(),
		ProductID:             f.product.ID,
		RouteID:               uuid.New(),
		Status:                enums.PoolStatusFilling,
		TargetQuantity:        target,
		UnitPriceCents:        200000,
		BaseCostPerUnitCents:  150000,
		FixedCostPerUnitCents: 10000,
		ProgressPercent:       decimal.Zero,
		Deadline:              time.Now().Add(48 * time.Hour),
	}
	require.NoError(t, f.db.Create(pool).Error)
	return pool
}

func (f *poolFixture) seedUser(t *testing.T, balanceCents int64) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		FullName:     "Test Buyer",
		Phone:        "254700000001",
		Role:         enums.MemberRoleBuyer,
		BalanceCents: balanceCents,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *poolFixture) reloadPool(t *testing.T, id uuid.UUID) *models.Pool {
	t.Helper()
	var pool models.Pool
	require.NoError(t, f.db.First(&pool, "id = ?", id).Error)
	return &pool
}

func (f *poolFixture) reloadUser(t *testing.T, id uuid.UUID) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, f.db.First(&user, "id = ?", id).Error)
	return &user
}

func (f *poolFixture) reloadPayment(t *testing.T, id uuid.UUID) *models.Payment {
	t.Helper()
	var payment models.Payment
	require.NoError(t, f.db.First(&payment, "id = ?", id).Error)
	return &payment
}
