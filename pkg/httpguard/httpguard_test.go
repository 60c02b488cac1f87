package httpguard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
	"github.com/Goden-Gun/resilience-lib/pkg/boundary"
	"github.com/Goden-Gun/resilience-lib/pkg/logger"
	"github.com/Goden-Gun/resilience-lib/pkg/notify"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, dev bool) (*gin.Engine, *notify.Center, *test.Hook) {
	t.Helper()
	base, hook := test.NewNullLogger()
	center := notify.NewCenter(notify.Options{Logger: logger.Nop()})
	t.Cleanup(center.Close)

	r := gin.New()
	r.Use(RequestID(), Recovery(Options{
		Center:      center,
		Logger:      logger.FromEntry(logrus.NewEntry(base)),
		Development: dev,
	}))
	return r, center, hook
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRecoveryPanic(t *testing.T) {
	r, center, hook := newRouter(t, true)
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := do(r, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Something went wrong")
	assert.Contains(t, w.Body.String(), "kaboom")
	assert.Contains(t, w.Body.String(), `class="error-stack"`)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	require.Len(t, center.Errors(), 1)
	assert.Equal(t, "UNKNOWN_ERROR", center.Errors()[0].Code)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "request failed", entry.Message)
	assert.Equal(t, "/boom", entry.Data["path"])
	assert.Equal(t, true, entry.Data["panicked"])
	assert.Equal(t, w.Header().Get(requestIDHeader), entry.Data["request_id"])
}

func TestRecoveryProductionHidesStack(t *testing.T) {
	r, _, _ := newRouter(t, false)
	r.GET("/boom", func(*gin.Context) { panic(errors.New("kaboom")) })

	w := do(r, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), `class="error-stack"`)
}

func TestRecoveryAttachedError(t *testing.T) {
	r, center, _ := newRouter(t, false)
	r.GET("/missing", func(c *gin.Context) {
		_ = c.Error(&apperr.StatusError{StatusCode: http.StatusNotFound})
	})
	r.GET("/invalid", func(c *gin.Context) {
		_ = c.Error(apperr.Validation("title required"))
	})

	w := do(r, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Something went wrong")

	w = do(r, http.MethodGet, "/invalid")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "title required")
	assert.Len(t, center.Errors(), 2)
}

func TestRecoveryPassThrough(t *testing.T) {
	r, center, hook := newRouter(t, false)
	r.GET("/ok", func(c *gin.Context) {
		_, err := notify.HandlerFromContext(c.Request.Context(), notify.HandlerOptions{})
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.String(http.StatusOK, "fine")
	})
	r.GET("/written", func(c *gin.Context) {
		c.String(http.StatusAccepted, "partial")
		_ = c.Error(errors.New("late"))
	})

	w := do(r, http.MethodGet, "/ok")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fine", w.Body.String())
	assert.Empty(t, center.Errors())
	assert.Empty(t, hook.AllEntries())

	w = do(r, http.MethodGet, "/written")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "partial", w.Body.String())
}

func TestPage(t *testing.T) {
	r, _, _ := newRouter(t, false)
	posts := boundary.NewAsync(boundary.RenderFunc(func(context.Context) (string, error) {
		return "", errors.New("posts unavailable")
	}), boundary.AsyncOptions{Name: "posts", Logger: logger.Nop()})
	t.Cleanup(posts.Close)

	r.GET("/home", Page(boundary.Static("<h1>home</h1>")))
	r.GET("/posts", Page(posts))
	r.GET("/broken", Page(boundary.RenderFunc(func(context.Context) (string, error) {
		return "", errors.New("template missing")
	})))

	w := do(r, http.MethodGet, "/home")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<h1>home</h1>", w.Body.String())

	w = do(r, http.MethodGet, "/posts")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "posts unavailable")

	w = do(r, http.MethodGet, "/broken")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "template missing")
}

func TestNotificationRoutes(t *testing.T) {
	r, center, _ := newRouter(t, false)
	RegisterNotifications(r, center)
	ctx := context.Background()
	first := center.Add(ctx, errors.New("<i>first</i>"))
	center.Add(ctx, errors.New("second"))

	w := do(r, http.MethodGet, "/errors")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Errors []notify.Entry `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Errors, 2)
	assert.Equal(t, first.ID, body.Errors[0].ID)

	w = do(r, http.MethodGet, "/errors?format=html")
	assert.Contains(t, w.Body.String(), `class="error-notifications"`)
	assert.Contains(t, w.Body.String(), "&lt;i&gt;first&lt;/i&gt;")

	w = do(r, http.MethodDelete, "/errors/"+first.ID)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(r, http.MethodDelete, "/errors/"+first.ID)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"NOT_FOUND"`)

	w = do(r, http.MethodDelete, "/errors")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(r, http.MethodGet, "/errors")
	assert.JSONEq(t, `{"errors":[]}`, w.Body.String())
}

func TestLogging(t *testing.T) {
	base, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(RequestID(), Logging(logger.FromEntry(logrus.NewEntry(base))))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get(requestIDHeader))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "request completed", entry.Message)
	assert.Equal(t, http.StatusNoContent, entry.Data["status"])
	assert.Equal(t, "req-1", entry.Data["request_id"])
}
