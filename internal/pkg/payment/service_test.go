package payment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/careerforge/careerforge/app/models"
)

const testWebhookSecret = "whsec_service_test"

type fakeGateway struct {
	orderID     string
	createErr   error
	createCalls int
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	g.createCalls++
	if g.createErr != nil {
		return "", g.createErr
	}
	if g.orderID != "" {
		return g.orderID, nil
	}
	return fmt.Sprintf("order_test_%d", g.createCalls), nil
}

func (g *fakeGateway) PublicKey() string { return "rzp_test_fakekey" }
func (g *fakeGateway) IsTestMode() bool  { return true }

type creditCall struct {
	userID uint
	amount int64
}

type fakeLedger struct {
	credits   []creditCall
	creditErr error
}

func (l *fakeLedger) GetOrCreateAccount(userID uint) (*models.CreditAccount, error) {
	return &models.CreditAccount{UserID: userID}, nil
}

func (l *fakeLedger) Credit(userID uint, amount int64) (int64, error) {
	if l.creditErr != nil {
		return 0, l.creditErr
	}
	l.credits = append(l.credits, creditCall{userID: userID, amount: amount})
	return amount, nil
}

// fakeRepo is an in-memory Repository with the same compare-and-set
// semantics as the GORM implementation.
type fakeRepo struct {
	payments    map[uint]*models.Payment
	events      map[string]*models.WebhookEvent
	nextPayID   uint
	nextEventID uint
	calls       int

	// transitionFailures makes the next N TransitionStatus calls error.
	transitionFailures int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		payments: make(map[uint]*models.Payment),
		events:   make(map[string]*models.WebhookEvent),
	}
}

func (r *fakeRepo) seed(p *models.Payment) *models.Payment {
	r.nextPayID++
	p.ID = r.nextPayID
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	cp := *p
	r.payments[p.ID] = &cp
	return p
}

func (r *fakeRepo) CreatePayment(p *models.Payment) error {
	r.calls++
	r.nextPayID++
	p.ID = r.nextPayID
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(id uint) (*models.Payment, error) {
	r.calls++
	p, ok := r.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) GetByExternalOrderID(orderID string) (*models.Payment, error) {
	r.calls++
	for _, p := range r.payments {
		if p.ExternalOrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) ListByUser(userID uint, offset, limit int) ([]models.Payment, error) {
	r.calls++
	var out []models.Payment
	for _, p := range r.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) CancelPendingByUser(userID uint, reason string) (int64, error) {
	r.calls++
	var n int64
	for _, p := range r.payments {
		if p.UserID == userID && p.Status == models.PaymentStatusPending {
			p.Status = models.PaymentStatusCancelled
			p.FailureReason = reason
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) TransitionStatus(id uint, from, to string, updates map[string]interface{}) (bool, error) {
	r.calls++
	if r.transitionFailures > 0 {
		r.transitionFailures--
		return false, errors.New("connection reset")
	}
	p, ok := r.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	if v, ok := updates["external_payment_id"].(string); ok {
		p.ExternalPaymentID = v
	}
	if v, ok := updates["failure_reason"].(string); ok {
		p.FailureReason = v
	}
	if v, ok := updates["verified_at"].(*time.Time); ok {
		p.VerifiedAt = v
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeRepo) ExpirePending(now time.Time) (int64, error) {
	r.calls++
	var n int64
	for _, p := range r.payments {
		if p.Status == models.PaymentStatusPending && p.ExpiresAt.Before(now) {
			p.Status = models.PaymentStatusExpired
			p.FailureReason = "order expired"
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) ListUnappliedSuccess(olderThan time.Time, limit int) ([]models.Payment, error) {
	r.calls++
	var out []models.Payment
	for _, p := range r.payments {
		if p.Status == models.PaymentStatusSuccess && !p.CreditsApplied && p.UpdatedAt.Before(olderThan) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) ClaimCreditsApplied(id uint) (bool, error) {
	r.calls++
	p, ok := r.payments[id]
	if !ok || p.CreditsApplied {
		return false, nil
	}
	p.CreditsApplied = true
	return true, nil
}

func (r *fakeRepo) ReleaseCreditsApplied(id uint) (bool, error) {
	r.calls++
	p, ok := r.payments[id]
	if !ok || !p.CreditsApplied {
		return false, nil
	}
	p.CreditsApplied = false
	return true, nil
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	r.calls++
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		cp := *stored
		return false, &cp, nil
	}
	r.nextEventID++
	event.ID = r.nextEventID
	cp := *event
	r.events[key] = &cp
	return true, &cp, nil
}

func (r *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	r.calls++
	now := time.Now()
	for _, e := range r.events {
		if e.ID == id {
			e.ProcessedAt = &now
			e.ProcessingError = processingError
		}
	}
	return nil
}

func newTestService(repo *fakeRepo, ledger *fakeLedger, gateway *fakeGateway) *Service {
	return NewService(repo, ledger, gateway, testWebhookSecret)
}

func capturedBody(orderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q}}}}`,
		paymentID, orderID))
}

func failedBody(orderID, reason string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_f1","order_id":%q,"error_description":%q}}}}`,
		orderID, reason))
}

func TestCreateOrderDefaultsCreditsToAmount(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLedger{}, &fakeGateway{orderID: "order_new"})

	details, err := svc.CreateOrder(context.Background(), 7, 500, 0)
	require.NoError(t, err)

	assert.Equal(t, "order_new", details.OrderID)
	assert.Equal(t, int64(500), details.Amount)
	assert.Equal(t, "INR", details.Currency)
	assert.True(t, details.IsTestMode)

	p, err := repo.GetByID(details.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), p.CreditsToAdd)
	assert.Equal(t, models.PaymentStatusPending, p.Status)
	assert.WithinDuration(t, time.Now().Add(PendingOrderTTL), p.ExpiresAt, 5*time.Second)
}

func TestCreateOrderCancelsPriorPending(t *testing.T) {
	repo := newFakeRepo()
	stale := repo.seed(&models.Payment{
		UserID:          7,
		Amount:          100,
		ExternalOrderID: "order_stale",
		Status:          models.PaymentStatusPending,
		CreditsToAdd:    100,
		ExpiresAt:       time.Now().Add(10 * time.Minute),
	})
	svc := newTestService(repo, &fakeLedger{}, &fakeGateway{orderID: "order_fresh"})

	_, err := svc.CreateOrder(context.Background(), 7, 200, 300)
	require.NoError(t, err)

	old, err := repo.GetByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCancelled, old.Status)
	assert.Equal(t, "superseded by new order", old.FailureReason)
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name    string
		userID  uint
		amount  int64
		credits int64
	}{
		{name: "missing user", userID: 0, amount: 100, credits: 0},
		{name: "zero amount", userID: 1, amount: 0, credits: 0},
		{name: "negative amount", userID: 1, amount: -50, credits: 0},
		{name: "negative credits", userID: 1, amount: 100, credits: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &fakeGateway{}
			svc := newTestService(newFakeRepo(), &fakeLedger{}, gateway)
			_, err := svc.CreateOrder(context.Background(), tt.userID, tt.amount, tt.credits)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Zero(t, gateway.createCalls)
		})
	}
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{}
	svc := newTestService(repo, ledger, &fakeGateway{})

	result, err := svc.HandleWebhook(context.Background(), capturedBody("order_x", "pay_x"), "deadbeef", "evt_1")

	assert.ErrorIs(t, err, ErrSignatureVerification)
	assert.Nil(t, result)
	assert.Zero(t, repo.calls)
	assert.Empty(t, ledger.credits)
}

func TestHandleWebhookSettlesAndCreditsOnce(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{}
	svc := newTestService(repo, ledger, &fakeGateway{})

	p := repo.seed(&models.Payment{
		UserID:          11,
		Amount:          1000,
		ExternalOrderID: "order_ok",
		Status:          models.PaymentStatusPending,
		CreditsToAdd:    1000,
		ExpiresAt:       time.Now().Add(10 * time.Minute),
	})

	body := capturedBody("order_ok", "pay_ok")
	sig := hmacHex(testWebhookSecret, body)

	result, err := svc.HandleWebhook(context.Background(), body, sig, "evt_settle_1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, result.Outcome)
	assert.Equal(t, p.ID, result.PaymentID)

	stored, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, stored.Status)
	assert.Equal(t, "pay_ok", stored.ExternalPaymentID)
	assert.True(t, stored.CreditsApplied)
	require.NotNil(t, stored.VerifiedAt)

	require.Len(t, ledger.credits, 1)
	assert.Equal(t, uint(11), ledger.credits[0].userID)
	assert.Equal(t, int64(1000), ledger.credits[0].amount)

	// Redelivery of the same event id is a no-op.
	result, err = svc.HandleWebhook(context.Background(), body, sig, "evt_settle_1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, result.Outcome)
	assert.Len(t, ledger.credits, 1)

	// A fresh event id against the already-settled payment still credits nothing.
	result, err = svc.HandleWebhook(context.Background(), body, sig, "evt_settle_2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, result.Outcome)
	assert.Len(t, ledger.credits, 1)
}

func TestHandleWebhookDedupesOnPayloadHashWithoutEventID(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{}
	svc := newTestService(repo, ledger, &fakeGateway{})

	repo.seed(&models.Payment{
		UserID:          3,
		Amount:          250,
		ExternalOrderID: "order_noid",
		Status:          models.PaymentStatusPending,
		CreditsToAdd:    250,
		ExpiresAt:       time.Now().Add(10 * time.Minute),
	})

	body := capturedBody("order_noid", "pay_noid")
	sig := hmacHex(testWebhookSecret, body)

	result, err := svc.HandleWebhook(context.Background(), body, sig, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, result.Outcome)

	result, err = svc.HandleWebhook(context.Background(), body, sig, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, result.Outcome)
	assert.Len(t, ledger.credits, 1)
}

func TestHandleWebhookSuccessInNonPendingState(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{}
	svc := newTestService(repo, ledger, &fakeGateway{})

	repo.seed(&models.Payment{
		UserID:          5,
		Amount:          100,
		ExternalOrderID: "order_expired",
		Status:          models.PaymentStatusExpired,
		CreditsToAdd:    100,
		ExpiresAt:       time.Now().Add(-time.Hour),
	})

	body := capturedBody("order_expired", "pay_late")
	result, err := svc.HandleWebhook(context.Background(), body, hmacHex(testWebhookSecret, body), "evt_late")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalidState, result.Outcome)
	assert.Empty(t, ledger.credits)
}

func TestHandleWebhookFailureEvent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLedger{}, &fakeGateway{})

	p := repo.seed(&models.Payment{
		UserID:          9,
		Amount:          100,
		ExternalOrderID: "order_fail",
		Status:          models.PaymentStatusPending,
		CreditsToAdd:    100,
		ExpiresAt:       time.Now().Add(10 * time.Minute),
	})

	body := failedBody("order_fail", "card declined")
	result, err := svc.HandleWebhook(context.Background(), body, hmacHex(testWebhookSecret, body), "evt_fail")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, result.Outcome)

	stored, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, stored.Status)
	assert.Equal(t, "card declined", stored.FailureReason)
}

func TestHandleWebhookUnknownOrder(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeLedger{}, &fakeGateway{})

	body := capturedBody("order_missing", "pay_1")
	_, err := svc.HandleWebhook(context.Background(), body, hmacHex(testWebhookSecret, body), "evt_missing")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestHandleWebhookIgnoresUnknownEventType(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLedger{}, &fakeGateway{})

	body := []byte(`{"event":"refund.created","payload":{}}`)
	result, err := svc.HandleWebhook(context.Background(), body, hmacHex(testWebhookSecret, body), "evt_refund")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, result.Outcome)
}

func TestReconcileCreditsAppliesMissedCredit(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{}
	svc := newTestService(repo, ledger, &fakeGateway{})

	// Settled long ago but never credited: the crash-between-writes case.
	missed := repo.seed(&models.Payment{
		UserID:          21,
		Amount:          400,
		ExternalOrderID: "order_missed",
		Status:          models.PaymentStatusSuccess,
		CreditsToAdd:    400,
		CreditsApplied:  false,
		ExpiresAt:       time.Now().Add(-time.Hour),
		UpdatedAt:       time.Now().Add(-time.Hour),
	})
	// Already credited, must not be touched.
	repo.seed(&models.Payment{
		UserID:          21,
		Amount:          100,
		ExternalOrderID: "order_done",
		Status:          models.PaymentStatusSuccess,
		CreditsToAdd:    100,
		CreditsApplied:  true,
		ExpiresAt:       time.Now().Add(-time.Hour),
		UpdatedAt:       time.Now().Add(-time.Hour),
	})
	// Settled seconds ago, inside the grace period.
	repo.seed(&models.Payment{
		UserID:          22,
		Amount:          50,
		ExternalOrderID: "order_recent",
		Status:          models.PaymentStatusSuccess,
		CreditsToAdd:    50,
		CreditsApplied:  false,
		ExpiresAt:       time.Now().Add(-time.Hour),
		UpdatedAt:       time.Now(),
	})

	applied, err := svc.ReconcileCredits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	require.Len(t, ledger.credits, 1)
	assert.Equal(t, uint(21), ledger.credits[0].userID)
	assert.Equal(t, int64(400), ledger.credits[0].amount)

	stored, err := repo.GetByID(missed.ID)
	require.NoError(t, err)
	assert.True(t, stored.CreditsApplied)

	// A second sweep finds nothing left to claim.
	applied, err = svc.ReconcileCredits(context.Background())
	require.NoError(t, err)
	assert.Zero(t, applied)
	assert.Len(t, ledger.credits, 1)
}

func TestReconcileCreditsRetriesAfterLedgerError(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{creditErr: errors.New("deadlock")}
	svc := newTestService(repo, ledger, &fakeGateway{})

	missed := repo.seed(&models.Payment{
		UserID:          31,
		Amount:          600,
		ExternalOrderID: "order_retry",
		Status:          models.PaymentStatusSuccess,
		CreditsToAdd:    600,
		CreditsApplied:  false,
		ExpiresAt:       time.Now().Add(-time.Hour),
		UpdatedAt:       time.Now().Add(-time.Hour),
	})

	// The failing credit must hand the claim back, not consume it.
	applied, err := svc.ReconcileCredits(context.Background())
	require.NoError(t, err)
	assert.Zero(t, applied)
	stored, _ := repo.GetByID(missed.ID)
	assert.False(t, stored.CreditsApplied)

	// Ledger recovers; the next sweep applies the credit.
	ledger.creditErr = nil
	applied, err = svc.ReconcileCredits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	require.Len(t, ledger.credits, 1)
	assert.Equal(t, uint(31), ledger.credits[0].userID)
	assert.Equal(t, int64(600), ledger.credits[0].amount)
	stored, _ = repo.GetByID(missed.ID)
	assert.True(t, stored.CreditsApplied)
}

func TestHandleWebhookRedeliveryAfterTransientErrorSettles(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{}
	svc := newTestService(repo, ledger, &fakeGateway{})

	p := repo.seed(&models.Payment{
		UserID:          13,
		Amount:          800,
		ExternalOrderID: "order_flaky",
		Status:          models.PaymentStatusPending,
		CreditsToAdd:    800,
		ExpiresAt:       time.Now().Add(10 * time.Minute),
	})

	body := capturedBody("order_flaky", "pay_flaky")
	sig := hmacHex(testWebhookSecret, body)

	// First delivery fails mid-settlement on a transient DB error.
	repo.transitionFailures = 1
	_, err := svc.HandleWebhook(context.Background(), body, sig, "evt_flaky")
	require.Error(t, err)
	stored, _ := repo.GetByID(p.ID)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
	assert.Empty(t, ledger.credits)

	// The gateway redelivers the same event id; the recorded failure must not
	// dedupe it away.
	result, err := svc.HandleWebhook(context.Background(), body, sig, "evt_flaky")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, result.Outcome)

	stored, _ = repo.GetByID(p.ID)
	assert.Equal(t, models.PaymentStatusSuccess, stored.Status)
	require.Len(t, ledger.credits, 1)
	assert.Equal(t, int64(800), ledger.credits[0].amount)

	// A third delivery after the clean settle is a plain duplicate.
	result, err = svc.HandleWebhook(context.Background(), body, sig, "evt_flaky")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, result.Outcome)
	assert.Len(t, ledger.credits, 1)
}

func TestExpirePendingSweep(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLedger{}, &fakeGateway{})

	stale := repo.seed(&models.Payment{
		UserID:          1,
		Amount:          100,
		ExternalOrderID: "order_old",
		Status:          models.PaymentStatusPending,
		CreditsToAdd:    100,
		ExpiresAt:       time.Now().Add(-time.Minute),
	})
	fresh := repo.seed(&models.Payment{
		UserID:          1,
		Amount:          100,
		ExternalOrderID: "order_young",
		Status:          models.PaymentStatusPending,
		CreditsToAdd:    100,
		ExpiresAt:       time.Now().Add(20 * time.Minute),
	})

	n, err := svc.ExpirePending(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	expired, _ := repo.GetByID(stale.ID)
	assert.Equal(t, models.PaymentStatusExpired, expired.Status)
	still, _ := repo.GetByID(fresh.ID)
	assert.Equal(t, models.PaymentStatusPending, still.Status)
}

func TestVerifyCallbackReportsStatusOnly(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLedger{}, &fakeGateway{})

	repo.seed(&models.Payment{
		UserID:          4,
		Amount:          100,
		ExternalOrderID: "order_cb",
		Status:          models.PaymentStatusSuccess,
		CreditsToAdd:    100,
		ExpiresAt:       time.Now().Add(10 * time.Minute),
	})

	keySecret := "key_secret_cb"
	sig := hmacHex(keySecret, []byte("order_cb|pay_cb"))

	status, err := svc.VerifyCallback("order_cb", "pay_cb", sig, keySecret)
	require.NoError(t, err)
	assert.True(t, status.SignatureValid)
	assert.Equal(t, models.PaymentStatusSuccess, status.PaymentStatus)

	status, err = svc.VerifyCallback("order_cb", "pay_cb", "deadbeef", keySecret)
	require.NoError(t, err)
	assert.False(t, status.SignatureValid)

	_, err = svc.VerifyCallback("order_absent", "pay_cb", sig, keySecret)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}
