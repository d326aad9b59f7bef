package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/finances-api/finances/internal/access"
	"github.com/finances-api/finances/internal/logging"
)

func setupTestApp(t *testing.T, required bool) (*fiber.App, *int64, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New()
	logger := logging.Discard()
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-Test-User"); id != "" {
			c.Locals(principalKey, access.Principal{UserID: id, Roles: []access.Role{access.RoleUser}})
		}
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, required, logger))

	var calls int64
	app.Post("/resource", func(c *fiber.Ctx) error {
		n := atomic.AddInt64(&calls, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "call": n})
	})
	app.Post("/slow", func(c *fiber.Ctx) error {
		n := atomic.AddInt64(&calls, 1)
		time.Sleep(200 * time.Millisecond)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "call": n})
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}

	return app, &calls, cleanup
}

func post(t *testing.T, app *fiber.App, key, user string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyRequiresHeaderWhenConfigured(t *testing.T) {
	app, _, cleanup := setupTestApp(t, true)
	defer cleanup()

	status, _ := post(t, app, "", "")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	app, calls, cleanup := setupTestApp(t, false)
	defer cleanup()

	post(t, app, "", "u1")
	post(t, app, "", "u1")
	if got := atomic.LoadInt64(calls); got != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", got)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls, cleanup := setupTestApp(t, false)
	defer cleanup()

	status, payload := post(t, app, "abc123", "u1")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	// Second request should return the cached response without invoking handler again.
	status, cachedPayload := post(t, app, "abc123", "u1")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if cachedPayload != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cachedPayload)
	}
	if got := atomic.LoadInt64(calls); got != 1 {
		t.Fatalf("expected handler to run once, ran %d times", got)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cachedPayload), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyKeysAreScopedPerPrincipal(t *testing.T) {
	app, calls, cleanup := setupTestApp(t, false)
	defer cleanup()

	post(t, app, "shared", "u1")
	post(t, app, "shared", "u2")
	if got := atomic.LoadInt64(calls); got != 2 {
		t.Fatalf("expected each principal to reach the handler, ran %d times", got)
	}
}

func TestIdempotencyConcurrentDuplicatesRunHandlerOnce(t *testing.T) {
	app, calls, cleanup := setupTestApp(t, false)
	defer cleanup()

	const requests = 20
	var (
		wg       sync.WaitGroup
		created  int64
		conflict int64
	)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(fiber.MethodPost, "/slow", strings.NewReader("{}"))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			req.Header.Set(idempotencyKeyHeader, "k1")
			req.Header.Set("X-Test-User", "u1")
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Errorf("app.Test: %v", err)
				return
			}
			resp.Body.Close()
			switch resp.StatusCode {
			case fiber.StatusCreated:
				atomic.AddInt64(&created, 1)
			case fiber.StatusConflict:
				atomic.AddInt64(&conflict, 1)
			default:
				t.Errorf("unexpected status %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(calls); got != 1 {
		t.Fatalf("expected handler to run once for one key, ran %d times", got)
	}
	if created+conflict != requests || created < 1 {
		t.Fatalf("unexpected outcome: %d created, %d conflicts", created, conflict)
	}
}
