package controllers

import (
	"bufio"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/careerforge/careerforge/app/repository"
	"github.com/careerforge/careerforge/internal/pkg/generation"
	"github.com/careerforge/careerforge/internal/pkg/notify"
)

const sseHeartbeatInterval = 15 * time.Second

// resourceState is what the stream endpoint needs to know about the entity
// before it starts relaying events.
type resourceState struct {
	status        string
	failureReason string
}

// HandleEventStream opens a server-sent-event stream for one generation
// resource. The client receives a connected event immediately, then the
// completed or failed event when the job settles. If the job already
// settled before the client connected, the terminal event is sent at once.
func HandleEventStream(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	kind := generation.Kind(c.Params("kind"))
	resourceUUID := c.Params("uuid")

	state, err := loadResourceState(kind, resourceUUID, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonNotFound(c, "Resource not found")
		}
		if errors.Is(err, errUnknownKind) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "Unknown resource kind"})
		}
		return jsonInternalError(c, "Failed to load resource")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	bus := notify.GetGlobalBus()
	transport := notify.NewSSETransport()

	terminal := state.status != "pending"
	if !terminal {
		bus.Register(resourceUUID, transport)
	}

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer func() {
			bus.Unregister(resourceUUID)
			transport.Close()
		}()

		if err := writeSSEFrame(w, fmt.Sprintf("event: %s\ndata: {\"resource_id\":%q}\n\n", notify.EventConnected, resourceUUID)); err != nil {
			return
		}

		// Job already settled; replay the terminal event and end the stream.
		if terminal {
			event := notify.EventCompleted
			payload := fmt.Sprintf("{\"resource_id\":%q,\"status\":%q}", resourceUUID, state.status)
			if state.status == "failed" {
				event = notify.EventFailed
				payload = fmt.Sprintf("{\"resource_id\":%q,\"status\":%q,\"reason\":%q}", resourceUUID, state.status, state.failureReason)
			}
			_ = writeSSEFrame(w, fmt.Sprintf("event: %s\ndata: %s\n\n", event, payload))
			return
		}

		heartbeat := time.NewTicker(sseHeartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case frame, open := <-transport.Frames():
				if !open {
					return
				}
				if err := writeSSEFrame(w, frame); err != nil {
					log.Debugf("[Events] Stream for %s closed: %v", resourceUUID, err)
					return
				}
			case <-heartbeat.C:
				if err := writeSSEFrame(w, ": ping\n\n"); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

func writeSSEFrame(w *bufio.Writer, frame string) error {
	if _, err := w.WriteString(frame); err != nil {
		return err
	}
	return w.Flush()
}

var errUnknownKind = errors.New("unknown resource kind")

// loadResourceState resolves the entity behind a stream request and enforces
// ownership. Unknown resources and foreign resources are indistinguishable
// to the caller.
func loadResourceState(kind generation.Kind, resourceUUID string, userID uint) (*resourceState, error) {
	repos := repository.GetGlobalFactory().GetRepositories()

	switch kind {
	case generation.KindChatMessage:
		msg, err := repos.Chat.GetMessageByUUID(resourceUUID)
		if err != nil {
			return nil, err
		}
		if msg.UserID != userID {
			return nil, gorm.ErrRecordNotFound
		}
		return &resourceState{status: msg.Status, failureReason: msg.FailureReason}, nil
	case generation.KindCoverLetter:
		letter, err := repos.CoverLetter.GetByUUID(resourceUUID)
		if err != nil {
			return nil, err
		}
		if letter.UserID != userID {
			return nil, gorm.ErrRecordNotFound
		}
		return &resourceState{status: letter.Status, failureReason: letter.FailureReason}, nil
	case generation.KindRoadmap:
		roadmap, err := repos.Roadmap.GetByUUID(resourceUUID)
		if err != nil {
			return nil, err
		}
		if roadmap.UserID != userID {
			return nil, gorm.ErrRecordNotFound
		}
		return &resourceState{status: roadmap.Status, failureReason: roadmap.FailureReason}, nil
	case generation.KindCapstoneReview:
		review, err := repos.CapstoneReview.GetByUUID(resourceUUID)
		if err != nil {
			return nil, err
		}
		if review.UserID != userID {
			return nil, gorm.ErrRecordNotFound
		}
		return &resourceState{status: review.Status, failureReason: review.FailureReason}, nil
	default:
		return nil, errUnknownKind
	}
}
