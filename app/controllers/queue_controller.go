package controllers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/careerforge/careerforge/internal/pkg/cache"
	"github.com/careerforge/careerforge/internal/pkg/jobqueue"
)

const (
	queueDepthCacheKey = "queue:health:depth"
	queueStatsCacheKey = "queue:stats:snapshot"
	queueSnapshotTTL   = 5 * time.Second
)

// HandleGetJob returns the queue status of one job. Jobs are only visible to
// the user who enqueued them (admins see all). Completed jobs are removed
// from Redis, so a 404 after a 202 usually means the work already settled on
// the entity itself.
func HandleGetJob(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	mgr := jobqueue.GetManager()
	if mgr == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "queue_unavailable", "message": "Job queue is not running"})
	}

	jobID := c.Params("id")
	job, err := mgr.GetQueue().GetJob(context.Background(), jobID)
	if err != nil {
		if err == redis.Nil {
			return jsonNotFound(c, "Job not found")
		}
		log.Errorf("[API] Failed to load job %s: %v", jobID, err)
		return jsonInternalError(c, "Failed to load job")
	}

	payload, err := jobqueue.GenerationJobPayloadFromMap(job.Payload)
	if err != nil || (payload.UserID != userCtx.UserID && !userCtx.IsAdmin) {
		return jsonNotFound(c, "Job not found")
	}

	return c.JSON(fiber.Map{
		"id":          job.ID,
		"type":        job.Type,
		"status":      job.Status,
		"kind":        payload.Kind,
		"retry_count": job.RetryCount,
		"error":       job.ErrorMsg,
		"created_at":  job.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// HandleGetQueueStats returns queue counters for the admin monitor. The
// snapshot is cached briefly so a polling dashboard does not hammer Redis.
func HandleGetQueueStats(c *fiber.Ctx) error {
	if _, ok := requireAdmin(c); !ok {
		return nil
	}

	mgr := jobqueue.GetManager()
	if mgr == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "queue_unavailable", "message": "Job queue is not running"})
	}

	if cached, err := cache.Get(queueStatsCacheKey); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	ctx := context.Background()
	queue := mgr.GetQueue()

	stats, err := queue.GetJobStats(ctx)
	if err != nil {
		log.Errorf("[API] Failed to load queue stats: %v", err)
		return jsonInternalError(c, "Failed to load queue stats")
	}
	pending, err := queue.GetQueueSize(ctx)
	if err != nil {
		return jsonInternalError(c, "Failed to load queue size")
	}
	processing, err := queue.GetProcessingSize(ctx)
	if err != nil {
		return jsonInternalError(c, "Failed to load processing size")
	}

	body, err := json.Marshal(fiber.Map{
		"running":         mgr.IsRunning(),
		"pending_size":    pending,
		"processing_size": processing,
		"totals":          stats,
	})
	if err != nil {
		return jsonInternalError(c, "Failed to encode queue stats")
	}

	if err := cache.Set(queueStatsCacheKey, string(body), queueSnapshotTTL); err != nil {
		log.Debugf("[API] Failed to cache queue stats snapshot: %v", err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// HandleResetQueueStats clears the accumulated job counters and the cached
// snapshot. Queue contents are untouched.
func HandleResetQueueStats(c *fiber.Ctx) error {
	if _, ok := requireAdmin(c); !ok {
		return nil
	}

	if err := cache.Delete(jobqueue.JobStatsKey); err != nil {
		log.Errorf("[API] Failed to reset queue stats: %v", err)
		return jsonInternalError(c, "Failed to reset queue stats")
	}
	if err := cache.Delete(queueStatsCacheKey); err != nil {
		log.Debugf("[API] Failed to drop stats snapshot: %v", err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

// queueDepth reports the number of pending jobs, cached briefly for the
// health endpoint.
func queueDepth() int {
	if depth, err := cache.GetInt(queueDepthCacheKey); err == nil {
		return depth
	}

	mgr := jobqueue.GetManager()
	if mgr == nil {
		return 0
	}
	size, err := mgr.GetQueue().GetQueueSize(context.Background())
	if err != nil {
		return 0
	}
	if err := cache.Set(queueDepthCacheKey, size, queueSnapshotTTL); err != nil {
		log.Debugf("[API] Failed to cache queue depth: %v", err)
	}
	return int(size)
}

// HandleHealth is the liveness endpoint: process up, queue running, current
// backlog depth.
func HandleHealth(c *fiber.Ctx) error {
	running := false
	if mgr := jobqueue.GetManager(); mgr != nil {
		running = mgr.IsRunning()
	}
	return c.JSON(fiber.Map{
		"status":        "ok",
		"queue_running": running,
		"queue_depth":   queueDepth(),
	})
}
