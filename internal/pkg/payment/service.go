package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careerforge/careerforge/app/models"
)

var (
	// ErrSignatureVerification is returned for webhooks whose signature does
	// not verify. No payment lookup or mutation happens in that case; the
	// endpoint still acknowledges the delivery at the transport level.
	ErrSignatureVerification = errors.New("webhook signature verification failed")
	// ErrPaymentNotFound is returned when a webhook references an order id
	// with no local payment record.
	ErrPaymentNotFound = errors.New("payment not found for order")
	// ErrValidation is returned for bad caller input on synchronous entry points.
	ErrValidation = errors.New("invalid payment request")
)

// CreditLedger is the slice of the ledger the payment service needs.
type CreditLedger interface {
	GetOrCreateAccount(userID uint) (*models.CreditAccount, error)
	Credit(userID uint, amount int64) (int64, error)
}

// Service owns the payment order lifecycle: creation, webhook-driven
// settlement and the idempotent state machine around it. Crediting happens
// only on verified settlement, never at order creation.
type Service struct {
	repo          Repository
	ledger        CreditLedger
	gateway       GatewayClient
	webhookSecret string
}

func NewService(repo Repository, ledger CreditLedger, gateway GatewayClient, webhookSecret string) *Service {
	return &Service{
		repo:          repo,
		ledger:        ledger,
		gateway:       gateway,
		webhookSecret: webhookSecret,
	}
}

// NewServiceFromDB wires the service with a GORM-backed repository.
func NewServiceFromDB(db *gorm.DB, ledger CreditLedger, gateway GatewayClient, webhookSecret string) *Service {
	return NewService(NewRepository(db), ledger, gateway, webhookSecret)
}

// CreateOrder cancels any prior pending order for the user, mints a gateway
// order and persists a pending payment with a 30-minute expiry. When
// creditsToAdd is zero the order credits 1:1 with the amount.
func (s *Service) CreateOrder(ctx context.Context, userID uint, amount, creditsToAdd int64) (*OrderDetails, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if creditsToAdd < 0 {
		return nil, fmt.Errorf("%w: credits_to_add must not be negative", ErrValidation)
	}
	if creditsToAdd == 0 {
		creditsToAdd = amount
	}

	if _, err := s.ledger.GetOrCreateAccount(userID); err != nil {
		return nil, err
	}

	// Only one pending order per user; stale ones are cancelled, not reused.
	if n, err := s.repo.CancelPendingByUser(userID, "superseded by new order"); err != nil {
		return nil, err
	} else if n > 0 {
		log.Infof("[Payment] Cancelled %d pending order(s) for user %d", n, userID)
	}

	currency := "INR"
	receipt := uuid.New().String()
	orderID, err := s.gateway.CreateOrder(ctx, amount, currency, receipt)
	if err != nil {
		return nil, fmt.Errorf("gateway order creation failed: %w", err)
	}

	p := &models.Payment{
		UserID:          userID,
		Amount:          amount,
		Currency:        currency,
		ExternalOrderID: orderID,
		Status:          models.PaymentStatusPending,
		CreditsToAdd:    creditsToAdd,
		ExpiresAt:       time.Now().Add(PendingOrderTTL),
	}
	if err := s.repo.CreatePayment(p); err != nil {
		return nil, err
	}

	return &OrderDetails{
		OrderID:    orderID,
		Amount:     amount,
		Currency:   currency,
		PublicKey:  s.gateway.PublicKey(),
		PaymentID:  p.ID,
		ExpiresAt:  p.ExpiresAt,
		IsTestMode: s.gateway.IsTestMode(),
	}, nil
}

// webhookPayload is the subset of the gateway webhook body the service
// consumes. The raw body is kept verbatim on the event record.
type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func (p *webhookPayload) orderID() string {
	if id := strings.TrimSpace(p.Payload.Payment.Entity.OrderID); id != "" {
		return id
	}
	return strings.TrimSpace(p.Payload.Order.Entity.ID)
}

// HandleWebhook verifies the signature over the raw body, records the event
// idempotently and drives the payment state machine. Duplicate deliveries of
// a settled event return already_processed without side effects.
func (s *Service) HandleWebhook(ctx context.Context, rawBody []byte, signature, eventID string) (*WebhookResult, error) {
	if !VerifyWebhookSignature(rawBody, signature, s.webhookSecret) {
		return nil, ErrSignatureVerification
	}

	var body webhookPayload
	if err := json.Unmarshal(rawBody, &body); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	eventType := strings.TrimSpace(body.Event)

	// Dedupe on the gateway event id when provided, otherwise on a payload hash.
	dedupeID := strings.TrimSpace(eventID)
	if dedupeID == "" {
		sum := sha256.Sum256(rawBody)
		dedupeID = "hash:" + hex.EncodeToString(sum[:])
	}
	created, stored, err := s.repo.CreateWebhookEventIfNotExists(&models.WebhookEvent{
		Provider:        ProviderRazorpay,
		ProviderEventID: dedupeID,
		EventType:       eventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		// Only a delivery that finished cleanly counts as a duplicate. One
		// that recorded an error, or never got marked at all, is reprocessed;
		// the status CAS keeps settlement and crediting exactly-once.
		if stored.ProcessedAt != nil && stored.ProcessingError == "" {
			return &WebhookResult{Outcome: OutcomeAlreadyProcessed}, nil
		}
		log.Warnf("[Payment] Reprocessing webhook event %d after incomplete earlier attempt", stored.ID)
	}

	result, procErr := s.applyWebhook(ctx, eventType, &body)
	errMsg := ""
	if procErr != nil {
		errMsg = procErr.Error()
	}
	if markErr := s.repo.MarkWebhookProcessed(stored.ID, errMsg); markErr != nil {
		log.Errorf("[Payment] Failed to mark webhook %d processed: %v", stored.ID, markErr)
	}
	return result, procErr
}

func (s *Service) applyWebhook(ctx context.Context, eventType string, body *webhookPayload) (*WebhookResult, error) {
	switch eventType {
	case EventPaymentCaptured, EventOrderPaid:
		return s.settleSuccess(ctx, body)
	case EventPaymentFailed:
		return s.settleFailure(body)
	default:
		log.Infof("[Payment] Ignoring webhook event type %q", eventType)
		return &WebhookResult{Outcome: OutcomeIgnored}, nil
	}
}

func (s *Service) settleSuccess(ctx context.Context, body *webhookPayload) (*WebhookResult, error) {
	_ = ctx
	orderID := body.orderID()
	if orderID == "" {
		return nil, errors.New("webhook payload missing order id")
	}

	p, err := s.repo.GetByExternalOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, orderID)
		}
		return nil, err
	}

	if p.Status == models.PaymentStatusSuccess {
		return &WebhookResult{Outcome: OutcomeAlreadyProcessed, PaymentID: p.ID}, nil
	}
	if p.Status != models.PaymentStatusPending {
		log.Warnf("[Payment] Success webhook for payment %d in state %s, ignoring", p.ID, p.Status)
		return &WebhookResult{Outcome: OutcomeInvalidState, PaymentID: p.ID}, nil
	}

	now := time.Now()
	ok, err := s.repo.TransitionStatus(p.ID, models.PaymentStatusPending, models.PaymentStatusSuccess, map[string]interface{}{
		"external_payment_id": strings.TrimSpace(body.Payload.Payment.Entity.ID),
		"verified_at":         &now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the CAS to a concurrent delivery or sweep; no side effects here.
		return &WebhookResult{Outcome: OutcomeAlreadyProcessed, PaymentID: p.ID}, nil
	}

	// Credit after the status write. A crash between the two is found by the
	// reconciliation sweep via the credits_applied marker.
	if _, err := s.ledger.Credit(p.UserID, p.CreditsToAdd); err != nil {
		log.Errorf("[Payment] Credit of %d for payment %d failed, left for reconciliation: %v", p.CreditsToAdd, p.ID, err)
		return &WebhookResult{Outcome: OutcomeProcessed, PaymentID: p.ID}, nil
	}
	if _, err := s.repo.ClaimCreditsApplied(p.ID); err != nil {
		log.Errorf("[Payment] Failed to mark credits applied for payment %d: %v", p.ID, err)
	}

	log.Infof("[Payment] Settled payment %d, credited %d to user %d", p.ID, p.CreditsToAdd, p.UserID)
	return &WebhookResult{Outcome: OutcomeProcessed, PaymentID: p.ID}, nil
}

func (s *Service) settleFailure(body *webhookPayload) (*WebhookResult, error) {
	orderID := body.orderID()
	if orderID == "" {
		return nil, errors.New("webhook payload missing order id")
	}

	p, err := s.repo.GetByExternalOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, orderID)
		}
		return nil, err
	}

	if p.IsTerminal() {
		return &WebhookResult{Outcome: OutcomeAlreadyProcessed, PaymentID: p.ID}, nil
	}

	reason := strings.TrimSpace(body.Payload.Payment.Entity.ErrorDescription)
	if reason == "" {
		reason = "payment failed"
	}
	ok, err := s.repo.TransitionStatus(p.ID, models.PaymentStatusPending, models.PaymentStatusFailed, map[string]interface{}{
		"external_payment_id": strings.TrimSpace(body.Payload.Payment.Entity.ID),
		"failure_reason":      reason,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return &WebhookResult{Outcome: OutcomeAlreadyProcessed, PaymentID: p.ID}, nil
	}
	return &WebhookResult{Outcome: OutcomeProcessed, PaymentID: p.ID}, nil
}

// VerifyCallback is the secondary check behind the browser return leg. It
// only reports status for display and never mutates state or grants credit.
func (s *Service) VerifyCallback(orderID, externalPaymentID, signature, keySecret string) (*CallbackStatus, error) {
	p, err := s.repo.GetByExternalOrderID(strings.TrimSpace(orderID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, orderID)
		}
		return nil, err
	}

	return &CallbackStatus{
		SignatureValid: VerifyCallbackSignature(orderID, externalPaymentID, signature, keySecret),
		PaymentStatus:  p.Status,
	}, nil
}

// ListPayments returns the user's payment history, newest first.
func (s *Service) ListPayments(userID uint, offset, limit int) ([]models.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(userID, offset, limit)
}

// GetPaymentStatus loads a single payment for status display, enforcing
// ownership.
func (s *Service) GetPaymentStatus(userID, paymentID uint) (*models.Payment, error) {
	p, err := s.repo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

// ExpirePending sweeps stale pending payments to expired. Idempotent and
// safe to run concurrently; terminal rows are never touched.
func (s *Service) ExpirePending(now time.Time) (int64, error) {
	n, err := s.repo.ExpirePending(now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Infof("[Payment] Expired %d stale pending payment(s)", n)
	}
	return n, nil
}

// ReconcileCredits finds settled payments whose credit was never applied
// (crash between the status write and the ledger credit) and applies it.
// The claim is a compare-and-set on credits_applied, so repeated or
// concurrent sweeps apply each credit at most once. A short grace period
// keeps the sweep from racing a webhook that is still mid-settlement.
func (s *Service) ReconcileCredits(ctx context.Context) (int, error) {
	_ = ctx
	payments, err := s.repo.ListUnappliedSuccess(time.Now().Add(-5*time.Minute), 100)
	if err != nil {
		return 0, err
	}

	applied := 0
	for i := range payments {
		p := &payments[i]
		claimed, err := s.repo.ClaimCreditsApplied(p.ID)
		if err != nil {
			log.Errorf("[Payment] Reconcile claim failed for payment %d: %v", p.ID, err)
			continue
		}
		if !claimed {
			continue
		}
		if _, err := s.ledger.Credit(p.UserID, p.CreditsToAdd); err != nil {
			log.Errorf("[Payment] Reconcile credit failed for payment %d: %v", p.ID, err)
			// Hand the claim back so the next sweep retries this payment.
			if _, relErr := s.repo.ReleaseCreditsApplied(p.ID); relErr != nil {
				log.Errorf("[Payment] Failed to release claim for payment %d: %v", p.ID, relErr)
			}
			continue
		}
		log.Warnf("[Payment] Reconciled missing credit of %d for payment %d (user %d)", p.CreditsToAdd, p.ID, p.UserID)
		applied++
	}
	return applied, nil
}
