package payments

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db/models"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/enums"
	pkgerrors "github.com/VSyncglobal/gruppy-backend-sub000/pkg/errors"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/mpesa"
)

func setupPaymentTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE payments (
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
);`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE audit_logs (
  id TEXT PRIMARY KEY,
  action TEXT NOT NULL,
  entity_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  detail TEXT,
  created_at DATETIME
);`).Error)
	return db
}

type paymentTxRunner struct {
	db *gorm.DB
}

func (r paymentTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

type fakeSettler struct {
	settled []uuid.UUID
	err     error
}

func (f *fakeSettler) Settle(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.settled = append(f.settled, memberID)
	return nil
}

type paymentFixture struct {
	db      *gorm.DB
	svc     Service
	settler *fakeSettler
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	db := setupPaymentTestDB(t)
	settler := &fakeSettler{}
	svc, err := NewService(NewRepository(db), paymentTxRunner{db: db}, settler, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return &paymentFixture{db: db, svc: svc, settler: settler}
}

func (f *paymentFixture) seedPendingPayment(t *testing.T, checkoutID string) *models.Payment {
	t.Helper()
	memberID := uuid.New()
	payment := &models.Payment{
		ID:                uuid.New(),
		MemberID:          &memberID,
		PoolID:            uuid.New(),
		UserID:            uuid.New(),
		AmountCents:       300000,
		Status:            enums.PaymentStatusPending,
		Method:            enums.PaymentMethodMpesa,
		CheckoutRequestID: &checkoutID,
	}
	require.NoError(t, f.db.Create(payment).Error)
	return payment
}

func metadataItem(t *testing.T, name string, value any) mpesa.MetadataItem {
	t.Helper()
	raw, err := json.Marshal(value)
	require.NoError(t, err)
	return mpesa.MetadataItem{Name: name, Value: raw}
}

func successEnvelope(t *testing.T, checkoutID string) mpesa.CallbackEnvelope {
	t.Helper()
	return mpesa.CallbackEnvelope{Body: mpesa.CallbackBody{STKCallback: mpesa.STKCallback{
		MerchantRequestID: "merchant-1",
		CheckoutRequestID: checkoutID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		CallbackMetadata: &mpesa.CallbackMetadata{Item: []mpesa.MetadataItem{
			metadataItem(t, "Amount", 3000),
			metadataItem(t, "MpesaReceiptNumber", "RKT123XYZ"),
			metadataItem(t, "TransactionDate", "20260830143000"),
			metadataItem(t, "PhoneNumber", "254700000001"),
		}},
	}}}
}

func TestCallbackSuccessSettles(t *testing.T) {
	f := newPaymentFixture(t)
	payment := f.seedPendingPayment(t, "ws_CO_1")

	require.NoError(t, f.svc.HandleSTKCallback(context.Background(), successEnvelope(t, "ws_CO_1")))

	var reloaded models.Payment
	require.NoError(t, f.db.First(&reloaded, "id = ?", payment.ID).Error)
	assert.Equal(t, enums.PaymentStatusSuccess, reloaded.Status)
	require.NotNil(t, reloaded.ReceiptNumber)
	assert.Equal(t, "RKT123XYZ", *reloaded.ReceiptNumber)
	require.NotNil(t, reloaded.PaidAt)
	expected, err := mpesa.ParseTransactionTime("20260830143000")
	require.NoError(t, err)
	assert.Equal(t, expected.UTC().Unix(), reloaded.PaidAt.Unix())
	assert.NotEmpty(t, reloaded.RawMetadata)

	require.Len(t, f.settler.settled, 1)
	assert.Equal(t, *payment.MemberID, f.settler.settled[0])
}

func TestCallbackDuplicateIsAcknowledged(t *testing.T) {
	f := newPaymentFixture(t)
	f.seedPendingPayment(t, "ws_CO_1")

	require.NoError(t, f.svc.HandleSTKCallback(context.Background(), successEnvelope(t, "ws_CO_1")))
	require.NoError(t, f.svc.HandleSTKCallback(context.Background(), successEnvelope(t, "ws_CO_1")))

	assert.Len(t, f.settler.settled, 1, "a duplicate callback must not settle twice")
}

func TestCallbackUnknownCheckoutAcknowledged(t *testing.T) {
	f := newPaymentFixture(t)
	require.NoError(t, f.svc.HandleSTKCallback(context.Background(), successEnvelope(t, "ws_CO_unknown")))
	assert.Empty(t, f.settler.settled)
}

func TestCallbackFailureMarksFailed(t *testing.T) {
	f := newPaymentFixture(t)
	payment := f.seedPendingPayment(t, "ws_CO_1")

	envelope := mpesa.CallbackEnvelope{Body: mpesa.CallbackBody{STKCallback: mpesa.STKCallback{
		CheckoutRequestID: "ws_CO_1",
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	}}}
	require.NoError(t, f.svc.HandleSTKCallback(context.Background(), envelope))

	var reloaded models.Payment
	require.NoError(t, f.db.First(&reloaded, "id = ?", payment.ID).Error)
	assert.Equal(t, enums.PaymentStatusFailed, reloaded.Status)
	require.NotNil(t, reloaded.FailureReason)
	assert.Equal(t, "Request cancelled by user", *reloaded.FailureReason)
	assert.Empty(t, f.settler.settled, "failed payments never touch the pool")
}

func TestCallbackMalformedTransactionDateFallsBack(t *testing.T) {
	f := newPaymentFixture(t)
	payment := f.seedPendingPayment(t, "ws_CO_1")

	envelope := successEnvelope(t, "ws_CO_1")
	envelope.Body.STKCallback.CallbackMetadata.Item[2] = metadataItem(t, "TransactionDate", "not-a-date")

	before := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, f.svc.HandleSTKCallback(context.Background(), envelope))

	var reloaded models.Payment
	require.NoError(t, f.db.First(&reloaded, "id = ?", payment.ID).Error)
	assert.Equal(t, enums.PaymentStatusSuccess, reloaded.Status)
	require.NotNil(t, reloaded.PaidAt)
	assert.True(t, reloaded.PaidAt.After(before), "unparseable timestamps fall back to the current time")
}

func TestCallbackSettlerFailureRollsBack(t *testing.T) {
	f := newPaymentFixture(t)
	payment := f.seedPendingPayment(t, "ws_CO_1")
	f.settler.err = errors.New("pool closed underneath us")

	err := f.svc.HandleSTKCallback(context.Background(), successEnvelope(t, "ws_CO_1"))
	require.Error(t, err)

	var reloaded models.Payment
	require.NoError(t, f.db.First(&reloaded, "id = ?", payment.ID).Error)
	assert.Equal(t, enums.PaymentStatusPending, reloaded.Status, "failed settlement must leave the payment pending")
}

func TestCallbackMissingCheckoutID(t *testing.T) {
	f := newPaymentFixture(t)
	err := f.svc.HandleSTKCallback(context.Background(), mpesa.CallbackEnvelope{})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestGetPaymentOwnerOnly(t *testing.T) {
	f := newPaymentFixture(t)
	payment := f.seedPendingPayment(t, "ws_CO_1")

	loaded, err := f.svc.GetPayment(context.Background(), payment.ID, payment.UserID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, loaded.ID)

	_, err = f.svc.GetPayment(context.Background(), payment.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	_, err = f.svc.GetPayment(context.Background(), uuid.New(), payment.UserID)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

// staleReadRepo hands out a pre-captured pending snapshot on correlation,
// standing in for a second delivery that read the row before the first one
// committed. Everything transactional goes to the real repository.
type staleReadRepo struct {
	PaymentRepository
	snapshot models.Payment
}

func (r *staleReadRepo) FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Payment, error) {
	stale := r.snapshot
	return &stale, nil
}

func TestCallbackConcurrentDeliverySettlesOnce(t *testing.T) {
	f := newPaymentFixture(t)
	payment := f.seedPendingPayment(t, "ws_CO_1")

	require.NoError(t, f.db.Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Update("status", enums.PaymentStatusSuccess).Error)

	repo := &staleReadRepo{PaymentRepository: NewRepository(f.db), snapshot: *payment}
	svc, err := NewService(repo, paymentTxRunner{db: f.db}, f.settler, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)

	require.NoError(t, svc.HandleSTKCallback(context.Background(), successEnvelope(t, "ws_CO_1")))

	assert.Empty(t, f.settler.settled, "the locked re-read must stop a second settlement")
}

func TestCallbackLateFailureKeepsSettlement(t *testing.T) {
	f := newPaymentFixture(t)
	payment := f.seedPendingPayment(t, "ws_CO_1")

	require.NoError(t, f.db.Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Update("status", enums.PaymentStatusSuccess).Error)

	repo := &staleReadRepo{PaymentRepository: NewRepository(f.db), snapshot: *payment}
	svc, err := NewService(repo, paymentTxRunner{db: f.db}, f.settler, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)

	envelope := mpesa.CallbackEnvelope{Body: mpesa.CallbackBody{STKCallback: mpesa.STKCallback{
		CheckoutRequestID: "ws_CO_1",
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	}}}
	require.NoError(t, svc.HandleSTKCallback(context.Background(), envelope))

	var reloaded models.Payment
	require.NoError(t, f.db.First(&reloaded, "id = ?", payment.ID).Error)
	assert.Equal(t, enums.PaymentStatusSuccess, reloaded.Status, "a stale failure delivery must not undo a settlement")
	assert.Nil(t, reloaded.FailureReason)
}

func TestCallbackAfterPoolCloseRecordsLateCollection(t *testing.T) {
	f := newPaymentFixture(t)
	payment := f.seedPendingPayment(t, "ws_CO_1")
	f.settler.err = pkgerrors.New(pkgerrors.CodeStateConflict, "pool is no longer filling")

	require.NoError(t, f.svc.HandleSTKCallback(context.Background(), successEnvelope(t, "ws_CO_1")))

	var reloaded models.Payment
	require.NoError(t, f.db.First(&reloaded, "id = ?", payment.ID).Error)
	assert.Equal(t, enums.PaymentStatusFailed, reloaded.Status)
	require.NotNil(t, reloaded.FailureReason)
	assert.Equal(t, "payment confirmed after the pool closed", *reloaded.FailureReason)
	require.NotNil(t, reloaded.ReceiptNumber)
	assert.Equal(t, "RKT123XYZ", *reloaded.ReceiptNumber)
	assert.Empty(t, f.settler.settled)

	var entry models.AuditLog
	require.NoError(t, f.db.First(&entry, "entity_id = ?", payment.ID).Error)
	assert.Equal(t, enums.AuditActionPaymentAfterClose, entry.Action)
}
