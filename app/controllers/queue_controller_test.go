package controllers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerforge/careerforge/internal/pkg/usercontext"
)

func newQueueTestApp(userCtx *usercontext.UserContext) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userCtx != nil {
			c.Locals("USER_CONTEXT", *userCtx)
		}
		return c.Next()
	})
	app.Get("/jobs/:id", HandleGetJob)
	app.Get("/admin/queue/stats", HandleGetQueueStats)
	app.Delete("/admin/queue/stats", HandleResetQueueStats)
	return app
}

func TestHandleGetJobRequiresAuth(t *testing.T) {
	app := newQueueTestApp(nil)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/jobs/some-id", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestHandleGetJobWithoutQueue(t *testing.T) {
	app := newQueueTestApp(&usercontext.UserContext{UserID: 1, IsLoggedIn: true})

	// No manager initialized in unit tests.
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/jobs/some-id", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestQueueStatsRequireAdmin(t *testing.T) {
	tests := []struct {
		name     string
		userCtx  *usercontext.UserContext
		expected int
	}{
		{
			name:     "anonymous",
			userCtx:  nil,
			expected: fiber.StatusUnauthorized,
		},
		{
			name:     "regular user",
			userCtx:  &usercontext.UserContext{UserID: 1, IsLoggedIn: true},
			expected: fiber.StatusForbidden,
		},
		{
			name:     "admin without running queue",
			userCtx:  &usercontext.UserContext{UserID: 2, IsLoggedIn: true, IsAdmin: true},
			expected: fiber.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newQueueTestApp(tt.userCtx)
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/admin/queue/stats", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, resp.StatusCode)
		})
	}
}
