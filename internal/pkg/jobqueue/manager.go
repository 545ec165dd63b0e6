package jobqueue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/careerforge/careerforge/internal/pkg/env"
	metrics "github.com/careerforge/careerforge/internal/pkg/metrics/counter"
)

// PaymentSweeper covers the background payment maintenance tasks.
// Satisfied by payment.Service.
type PaymentSweeper interface {
	ExpirePending(now time.Time) (int64, error)
	ReconcileCredits(ctx context.Context) (int, error)
}

// Manager manages the global job queue and background tasks
type Manager struct {
	queue              *Queue
	payments           PaymentSweeper
	expiryTicker       *time.Ticker
	reconcileTicker    *time.Ticker
	counterFlushTicker *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// Initialize sets up the global manager with its dependencies. Must be called
// once at application startup before GetManager.
func Initialize(processor Processor, payments PaymentSweeper) *Manager {
	managerOnce.Do(func() {
		workerCount := 5
		if v := env.GetEnv("JOB_QUEUE_WORKERS", ""); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				workerCount = n
			}
		}

		globalManager = &Manager{
			queue:    NewQueue(workerCount, processor),
			payments: payments,
			stopCh:   make(chan struct{}),
		}
	})
	return globalManager
}

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	// Expire stale pending payment orders every minute
	m.expiryTicker = time.NewTicker(1 * time.Minute)
	m.wg.Add(1)
	go m.paymentExpiryWorker()

	// Reconcile settled payments that never got credited
	m.reconcileTicker = time.NewTicker(5 * time.Minute)
	m.wg.Add(1)
	go m.reconcileWorker()

	// Start counter flush worker (Redis -> DB) every 5 seconds
	m.counterFlushTicker = time.NewTicker(5 * time.Second)
	m.wg.Add(1)
	go m.counterFlushWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.expiryTicker != nil {
		m.expiryTicker.Stop()
	}
	if m.reconcileTicker != nil {
		m.reconcileTicker.Stop()
	}
	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}

	// Signal workers to stop. The channel stays closed until the next Start
	// recreates it; workers re-read the field and must never see nil.
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// paymentExpiryWorker runs periodically to expire stale pending payment orders
func (m *Manager) paymentExpiryWorker() {
	defer m.wg.Done()
	log.Info("[JobQueue Manager] Started payment expiry worker (interval: 1 minute)")

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Payment expiry worker stopping")
			return
		case <-m.expiryTicker.C:
			if m.payments == nil {
				continue
			}
			expired, err := m.payments.ExpirePending(time.Now())
			if err != nil {
				log.Errorf("[JobQueue Manager] Error expiring pending payments: %v", err)
				continue
			}
			if expired > 0 {
				log.Infof("[JobQueue Manager] Expired %d stale pending payments", expired)
			}
		}
	}
}

// reconcileWorker runs periodically to credit settled payments that missed their ledger credit
func (m *Manager) reconcileWorker() {
	defer m.wg.Done()
	log.Info("[JobQueue Manager] Started payment reconcile worker (interval: 5 minutes)")

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Payment reconcile worker stopping")
			return
		case <-m.reconcileTicker.C:
			if m.payments == nil {
				continue
			}
			credited, err := m.payments.ReconcileCredits(context.Background())
			if err != nil {
				log.Errorf("[JobQueue Manager] Error reconciling payment credits: %v", err)
				continue
			}
			if credited > 0 {
				log.Infof("[JobQueue Manager] Reconciled %d uncredited payments", credited)
			}
		}
	}
}

// counterFlushWorker periodically flushes usage counters from Redis to DB
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Counter flush worker stopping")
			return
		case <-m.counterFlushTicker.C:
			if err := metrics.FlushAll(); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush error: %v", err)
			}
		}
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// EnqueueGeneration enqueues a generation job for the given trigger payload
func (m *Manager) EnqueueGeneration(payload GenerationJobPayload) (*Job, error) {
	return m.queue.EnqueueJob(JobTypeGeneration, payload.ToMap())
}
