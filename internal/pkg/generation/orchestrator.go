package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/careerforge/careerforge/app/models"
	"github.com/careerforge/careerforge/app/repository"
	"github.com/careerforge/careerforge/internal/pkg/ledger"
	"github.com/careerforge/careerforge/internal/pkg/notify"
	"github.com/careerforge/careerforge/internal/pkg/provider"
)

// CreditLedger is the slice of the ledger the orchestrator needs.
type CreditLedger interface {
	Balance(userID uint) (int64, error)
	Debit(userID uint, amount int64) (int64, error)
}

// Generator abstracts the provider router.
type Generator interface {
	Generate(ctx context.Context, req *provider.Request) (*provider.Result, error)
}

// Notifier abstracts the notification bus.
type Notifier interface {
	Notify(resourceID, event string, payload interface{}, opts notify.Options)
}

// UsageRecorder records per-user token and job counters. Best-effort.
type UsageRecorder interface {
	AddTokens(userID uint, tokens int) error
	AddJobCompleted(userID uint) error
}

// Orchestrator runs the generation pipeline for every kind: credit
// precondition, provider call, result persistence, ledger debit,
// notification. Triggers are delivered at-least-once; the entity's pending
// status is the guard that makes redelivery harmless.
type Orchestrator struct {
	repos  *repository.Repositories
	ledger CreditLedger
	router Generator
	bus    Notifier
	usage  UsageRecorder
	costs  Costs
}

func NewOrchestrator(repos *repository.Repositories, l CreditLedger, router Generator, bus Notifier, usage UsageRecorder, costs Costs) *Orchestrator {
	return &Orchestrator{
		repos:  repos,
		ledger: l,
		router: router,
		bus:    bus,
		usage:  usage,
		costs:  costs,
	}
}

// Process dispatches a job trigger to the pipeline for its kind. It returns
// an error only for infrastructure failures worth a queue retry; domain
// outcomes (insufficient credits, provider exhaustion, missing entity) are
// terminal states on the entity, not errors.
func (o *Orchestrator) Process(ctx context.Context, t Trigger) error {
	switch t.Kind {
	case KindChatMessage:
		return o.processChatMessage(ctx, t)
	case KindCoverLetter:
		return o.processCoverLetter(ctx, t)
	case KindRoadmap:
		return o.processRoadmap(ctx, t)
	case KindCapstoneReview:
		return o.processCapstoneReview(ctx, t)
	default:
		return fmt.Errorf("unknown generation kind: %s", t.Kind)
	}
}

// target adapts one entity kind to the shared pipeline.
type target struct {
	kind    Kind
	uuid    string
	userID  uint
	cost    int64
	request func() (*provider.Request, error)

	// complete and fail are compare-and-set writes on the pending status.
	complete func(res *provider.Result) (bool, error)
	fail     func(reason string) (bool, error)
}

func (o *Orchestrator) processChatMessage(ctx context.Context, t Trigger) error {
	msg, err := o.repos.Chat.GetMessageByID(t.ResourceID)
	if err != nil {
		return o.missingEntity(t, err)
	}
	if msg.Status != models.GenerationStatusPending {
		log.Infof("[Generation] Chat message %d already %s, skipping redelivery", msg.ID, msg.Status)
		return nil
	}

	return o.run(ctx, target{
		kind:   t.Kind,
		uuid:   msg.UUID,
		userID: msg.UserID,
		cost:   o.entityCost(msg.CreditCost, t.Kind),
		request: func() (*provider.Request, error) {
			history, err := o.repos.Chat.ListSessionMessages(msg.SessionID, 50)
			if err != nil {
				return nil, err
			}
			return buildChatRequest(history), nil
		},
		complete: func(res *provider.Result) (bool, error) {
			return o.repos.Chat.CompleteMessage(msg.ID, res.Text, res.ProviderID, res.TokensUsed)
		},
		fail: func(reason string) (bool, error) {
			return o.repos.Chat.FailMessage(msg.ID, reason)
		},
	})
}

func (o *Orchestrator) processCoverLetter(ctx context.Context, t Trigger) error {
	letter, err := o.repos.CoverLetter.GetByID(t.ResourceID)
	if err != nil {
		return o.missingEntity(t, err)
	}
	if letter.Status != models.GenerationStatusPending {
		log.Infof("[Generation] Cover letter %d already %s, skipping redelivery", letter.ID, letter.Status)
		return nil
	}

	return o.run(ctx, target{
		kind:   t.Kind,
		uuid:   letter.UUID,
		userID: letter.UserID,
		cost:   o.entityCost(letter.CreditCost, t.Kind),
		request: func() (*provider.Request, error) {
			return buildCoverLetterRequest(letter), nil
		},
		complete: func(res *provider.Result) (bool, error) {
			return o.repos.CoverLetter.Complete(letter.ID, res.Text, res.ProviderID, res.TokensUsed)
		},
		fail: func(reason string) (bool, error) {
			return o.repos.CoverLetter.Fail(letter.ID, reason)
		},
	})
}

func (o *Orchestrator) processRoadmap(ctx context.Context, t Trigger) error {
	roadmap, err := o.repos.Roadmap.GetByID(t.ResourceID)
	if err != nil {
		return o.missingEntity(t, err)
	}
	if roadmap.Status != models.GenerationStatusPending {
		log.Infof("[Generation] Roadmap %d already %s, skipping redelivery", roadmap.ID, roadmap.Status)
		return nil
	}

	return o.run(ctx, target{
		kind:   t.Kind,
		uuid:   roadmap.UUID,
		userID: roadmap.UserID,
		cost:   o.entityCost(roadmap.CreditCost, t.Kind),
		request: func() (*provider.Request, error) {
			return buildRoadmapRequest(roadmap), nil
		},
		complete: func(res *provider.Result) (bool, error) {
			return o.repos.Roadmap.Complete(roadmap.ID, res.Text, res.ProviderID, res.TokensUsed)
		},
		fail: func(reason string) (bool, error) {
			return o.repos.Roadmap.Fail(roadmap.ID, reason)
		},
	})
}

func (o *Orchestrator) processCapstoneReview(ctx context.Context, t Trigger) error {
	review, err := o.repos.CapstoneReview.GetByID(t.ResourceID)
	if err != nil {
		return o.missingEntity(t, err)
	}
	if review.Status != models.GenerationStatusPending {
		log.Infof("[Generation] Capstone review %d already %s, skipping redelivery", review.ID, review.Status)
		return nil
	}

	return o.run(ctx, target{
		kind:   t.Kind,
		uuid:   review.UUID,
		userID: review.UserID,
		cost:   o.entityCost(review.CreditCost, t.Kind),
		request: func() (*provider.Request, error) {
			return buildCapstoneRequest(review), nil
		},
		complete: func(res *provider.Result) (bool, error) {
			return o.repos.CapstoneReview.Complete(review.ID, res.Text, extractScore(res.Text), res.ProviderID, res.TokensUsed)
		},
		fail: func(reason string) (bool, error) {
			return o.repos.CapstoneReview.Fail(review.ID, reason)
		},
	})
}

// run is the shared pipeline. Ordering is deliberate: the result is
// persisted before the debit, so a crash in between delivers unbilled work
// instead of billing for undelivered work.
func (o *Orchestrator) run(ctx context.Context, t target) error {
	balance, err := o.ledger.Balance(t.userID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			balance = 0
		} else {
			return err
		}
	}
	if balance < t.cost {
		log.Infof("[Generation] User %d has %d credits, needs %d for %s", t.userID, balance, t.cost, t.kind)
		return o.finishFailed(t, models.FailureReasonInsufficientCredits)
	}

	req, err := t.request()
	if err != nil {
		return err
	}

	res, err := o.router.Generate(ctx, req)
	if err != nil {
		log.Errorf("[Generation] Provider call for %s %s failed: %v", t.kind, t.uuid, err)
		return o.finishFailed(t, models.FailureReasonProviderError)
	}

	ok, err := t.complete(res)
	if err != nil {
		return err
	}
	if !ok {
		// A concurrent redelivery settled the entity first; it also owns the
		// debit, so nothing more to do here.
		log.Warnf("[Generation] Lost completion race for %s %s", t.kind, t.uuid)
		return nil
	}

	if _, err := o.ledger.Debit(t.userID, t.cost); err != nil {
		// The result is already delivered; an unbillable debit is logged and
		// accepted, never retried against a delivered result.
		log.Errorf("[Generation] Debit of %d for %s %s failed: %v", t.cost, t.kind, t.uuid, err)
	}

	if o.usage != nil {
		if err := o.usage.AddTokens(t.userID, res.TokensUsed); err != nil {
			log.Debugf("[Generation] Token counter update failed: %v", err)
		}
		if err := o.usage.AddJobCompleted(t.userID); err != nil {
			log.Debugf("[Generation] Job counter update failed: %v", err)
		}
	}

	o.bus.Notify(t.uuid, notify.EventCompleted, map[string]interface{}{
		"resource_id": t.uuid,
		"kind":        t.kind,
		"status":      models.GenerationStatusCompleted,
	}, notify.DefaultOptions())

	log.Infof("[Generation] Completed %s %s (provider=%s, tokens=%d, cost=%d)", t.kind, t.uuid, res.ProviderID, res.TokensUsed, t.cost)
	return nil
}

func (o *Orchestrator) finishFailed(t target, reason string) error {
	ok, err := t.fail(reason)
	if err != nil {
		return err
	}
	if !ok {
		log.Warnf("[Generation] Lost failure race for %s %s", t.kind, t.uuid)
		return nil
	}

	o.bus.Notify(t.uuid, notify.EventFailed, map[string]interface{}{
		"resource_id": t.uuid,
		"kind":        t.kind,
		"status":      models.GenerationStatusFailed,
		"reason":      reason,
	}, notify.DefaultOptions())
	return nil
}

func (o *Orchestrator) entityCost(stored int64, kind Kind) int64 {
	if stored > 0 {
		return stored
	}
	return o.costs.For(kind)
}

// missingEntity handles a trigger whose entity cannot be loaded. A missing
// row is terminal (nothing to mark failed, nothing to bill); other errors
// are infrastructure and bubble up for a retry.
func (o *Orchestrator) missingEntity(t Trigger, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Generation] %s %d not found (reason=%s), dropping trigger", t.Kind, t.ResourceID, models.FailureReasonNotFound)
		return nil
	}
	return err
}
