// Package httpguard puts a global boundary in front of gin handlers and
// exposes the notification queue over HTTP.
package httpguard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
	"github.com/Goden-Gun/resilience-lib/pkg/boundary"
	"github.com/Goden-Gun/resilience-lib/pkg/logger"
	"github.com/Goden-Gun/resilience-lib/pkg/notify"
	"github.com/Goden-Gun/resilience-lib/pkg/tracing"
	"github.com/Goden-Gun/resilience-lib/pkg/view"
)

const (
	requestIDHeader = "X-Request-ID"
	htmlContentType = "text/html; charset=utf-8"
)

// Options configures Recovery.
type Options struct {
	// Center receives every recovered failure. Optional.
	Center      *notify.Center
	Presenter   view.Presenter
	Logger      logger.Logger
	Observer    boundary.Observer
	Development bool
}

// Recovery runs the rest of the chain inside a GlobalBoundary. Panics and
// errors attached with c.Error that left the response unwritten are
// classified, logged, reported to the Center and answered with the page panel.
func Recovery(opts Options) gin.HandlerFunc {
	lg := opts.Logger
	if lg == nil {
		lg = logger.Named("httpguard")
	}
	lg = logger.Safe(lg)

	return func(c *gin.Context) {
		ctx := tracing.ExtractHTTP(c.Request.Context(), c.Request.Header)
		if opts.Center != nil {
			ctx = notify.NewContext(ctx, opts.Center)
		}
		c.Request = c.Request.WithContext(ctx)

		g := boundary.NewGlobal(boundary.RenderFunc(func(context.Context) (string, error) {
			c.Next()
			if !c.Writer.Written() && len(c.Errors) > 0 {
				return "", c.Errors.Last().Err
			}
			return "", nil
		}), boundary.GlobalOptions{
			Name:        "http",
			Presenter:   opts.Presenter,
			Logger:      logger.Nop(),
			Observer:    opts.Observer,
			Development: opts.Development,
		})

		page, err := g.Render(ctx)
		snap := g.Snapshot()
		if !snap.HasError {
			return
		}

		fields := apperr.Fields(snap.Err)
		fields["method"] = c.Request.Method
		fields["path"] = c.Request.URL.Path
		fields["component_stack"] = snap.Info.ComponentStack
		fields["panicked"] = snap.Info.Panicked
		if id, ok := c.Get("request_id"); ok {
			fields["request_id"] = id
		}

		if snap.Info.Panicked && errors.Is(snap.Err, http.ErrAbortHandler) {
			lg.Warn("request aborted", fields)
			panic(http.ErrAbortHandler)
		}

		lg.Error("request failed", fields)
		if opts.Center != nil {
			opts.Center.Add(ctx, snap.Err)
		}

		if c.Writer.Written() {
			c.Abort()
			return
		}
		status := statusFor(snap.Err, snap.Info.Panicked)
		if err != nil {
			lg.Error("render error page failed", logger.Fields{"error": err.Error()})
			c.AbortWithStatus(status)
			return
		}
		c.Data(status, htmlContentType, []byte(page))
		c.Abort()
	}
}

func statusFor(err error, panicked bool) int {
	if panicked {
		return http.StatusInternalServerError
	}
	ae := apperr.CreateAppError(err)
	if s := ae.Status(); s >= 400 && s < 600 {
		return s
	}
	return ae.Code().HTTPStatus()
}

// Page serves component as HTML. A failure escaping every boundary inside
// component is handed to Recovery through c.Error.
func Page(component boundary.Component) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := component.Render(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.Data(http.StatusOK, htmlContentType, []byte(out))
	}
}

// RegisterNotifications mounts the notification queue routes.
func RegisterNotifications(r gin.IRoutes, center *notify.Center) {
	r.GET("/errors", func(c *gin.Context) {
		if c.Query("format") == "html" {
			out, err := center.Render(c.Request.Context())
			if err != nil {
				_ = c.Error(err)
				return
			}
			c.Data(http.StatusOK, htmlContentType, []byte(out))
			return
		}
		entries := center.Errors()
		if entries == nil {
			entries = []notify.Entry{}
		}
		c.JSON(http.StatusOK, gin.H{"errors": entries})
	})
	r.DELETE("/errors/:id", func(c *gin.Context) {
		if !center.Remove(c.Param("id")) {
			c.JSON(http.StatusNotFound, apperr.FormatError(apperr.ErrNotFound))
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.DELETE("/errors", func(c *gin.Context) {
		center.Clear()
		c.Status(http.StatusNoContent)
	})
}

// RequestID ensures each request has an id, echoed in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set("request_id", id)
		c.Next()
	}
}

// Logging logs one line per completed request.
func Logging(lg logger.Logger) gin.HandlerFunc {
	if lg == nil {
		lg = logger.Named("httpguard")
	}
	lg = logger.Safe(lg)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := logger.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"duration":  time.Since(start).String(),
			"client_ip": c.ClientIP(),
		}
		if id, ok := c.Get("request_id"); ok {
			fields["request_id"] = id
		}
		lg.Info("request completed", fields)
	}
}
