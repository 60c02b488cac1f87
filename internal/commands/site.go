package commands

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
	"github.com/Goden-Gun/resilience-lib/pkg/boundary"
	"github.com/Goden-Gun/resilience-lib/pkg/config"
	"github.com/Goden-Gun/resilience-lib/pkg/httpguard"
	"github.com/Goden-Gun/resilience-lib/pkg/logger"
	"github.com/Goden-Gun/resilience-lib/pkg/notify"
	"github.com/Goden-Gun/resilience-lib/pkg/probe"
)

// post is the demo content shape rendered by the blog page.
type post struct {
	Slug  string
	Title string
	Body  string
}

var demoPosts = []post{
	{Slug: "boundaries", Title: "Containing failures", Body: "A failing widget should never take the page down with it."},
	{Slug: "backoff", Title: "Retrying politely", Body: "Each retry waits twice as long as the one before."},
}

type service struct {
	Name  string
	Price string
}

var demoServices = []service{
	{Name: "Audit", Price: "$400"},
	{Name: "Migration", Price: "$1200"},
}

// flaky fails its first failures renders with err, then delegates to render.
type flaky struct {
	mu       sync.Mutex
	failures int
	err      error
	render   func(ctx context.Context) (string, error)
}

func (f *flaky) Render(ctx context.Context) (string, error) {
	f.mu.Lock()
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return "", f.err
	}
	return f.render(ctx)
}

// warmingProbe reports the content service unreachable for its first
// pending checks. It stands in for the Redis ping when Redis is disabled.
func warmingProbe(pending int) probe.Probe {
	var mu sync.Mutex
	return probe.Func(func(context.Context) (probe.Status, error) {
		mu.Lock()
		defer mu.Unlock()
		if pending > 0 {
			pending--
			return probe.Status{Target: "content", Detail: "content service warming up"}, nil
		}
		return probe.Status{Target: "content", Connected: true}, nil
	})
}

// layout renders the navigation, a page body and the notification toasts.
type layout struct {
	title  string
	center *notify.Center
	body   boundary.Component
}

func (l layout) Render(ctx context.Context) (string, error) {
	body, err := l.body.Render(ctx)
	if err != nil {
		return "", err
	}
	toasts, err := l.center.Render(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<!doctype html><html><head><title>%s</title></head><body>", html.EscapeString(l.title))
	b.WriteString(`<nav><a href="/">Home</a> <a href="/services">Services</a> <a href="/blog">Blog</a></nav>`)
	b.WriteString("<main>")
	b.WriteString(body)
	b.WriteString("</main>")
	b.WriteString(toasts)
	b.WriteString("</body></html>")
	return b.String(), nil
}

func renderPosts(context.Context) (string, error) {
	var b strings.Builder
	b.WriteString(`<section class="posts">`)
	for _, p := range demoPosts {
		fmt.Fprintf(&b, `<article id="%s"><h2>%s</h2><p>%s</p></article>`,
			html.EscapeString(p.Slug), html.EscapeString(p.Title), html.EscapeString(p.Body))
	}
	b.WriteString("</section>")
	return b.String(), nil
}

func renderServices(context.Context) (string, error) {
	var b strings.Builder
	b.WriteString(`<ul class="services">`)
	for _, s := range demoServices {
		fmt.Fprintf(&b, "<li>%s <span>%s</span></li>", html.EscapeString(s.Name), html.EscapeString(s.Price))
	}
	b.WriteString("</ul>")
	return b.String(), nil
}

// siteDeps carries everything the demo site needs from serve.
type siteDeps struct {
	Config   *config.Config
	Logger   logger.Logger
	Center   *notify.Center
	Observer boundary.Observer
	Probe    probe.Probe
	Clock    clockwork.Clock
}

// site owns the long-lived boundaries of the demo pages.
type site struct {
	deps     siteDeps
	blog     *boundary.BlogBoundary
	services *boundary.AsyncBoundary
	pages    map[string]boundary.Component
}

func newSite(deps siteDeps) *site {
	bc := deps.Config.Boundary
	if deps.Probe == nil {
		deps.Probe = warmingProbe(1)
	}
	s := &site{deps: deps}

	s.blog = boundary.NewBlog(&flaky{
		failures: 2,
		err:      errors.New("Network request failed"),
		render:   renderPosts,
	}, boundary.BlogOptions{
		AsyncOptions: boundary.AsyncOptions{
			MaxRetries: bc.BlogMaxRetries,
			RetryDelay: bc.BlogRetryDelay.Duration(),
			Logger:     deps.Logger,
			Observer:   deps.Observer,
			Clock:      deps.Clock,
			OnError: func(err error, _ boundary.ErrorInfo) {
				deps.Center.Add(context.Background(), err, notify.AddOptions{Title: "Blog unavailable"})
			},
		},
		Probe:        deps.Probe,
		ProbeTimeout: bc.ProbeTimeout.Duration(),
	})

	s.services = boundary.WithAsync(&flaky{
		failures: 1,
		err:      &apperr.StatusError{Method: http.MethodGet, URL: "/api/services", StatusCode: http.StatusServiceUnavailable},
		render:   renderServices,
	}, boundary.AsyncOptions{
		Name:       "services",
		MaxRetries: bc.MaxRetries,
		RetryDelay: bc.RetryDelay.Duration(),
		Logger:     deps.Logger,
		Observer:   deps.Observer,
		Clock:      deps.Clock,
	})

	page := func(title string, body boundary.Component) boundary.Component {
		return boundary.NewGlobal(layout{title: title, center: deps.Center, body: body}, boundary.GlobalOptions{
			Logger:      deps.Logger,
			Observer:    deps.Observer,
			Development: bc.Development,
		})
	}
	s.pages = map[string]boundary.Component{
		"home":     page("Home", boundary.Static(`<h1>Welcome</h1><form method="post" action="/subscribe"><input name="email"><button>Subscribe</button></form>`)),
		"services": page("Services", s.services),
		"blog":     page("Blog", s.blog),
	}
	return s
}

func (s *site) register(r gin.IRoutes) {
	r.GET("/", httpguard.Page(s.pages["home"]))
	r.GET("/services", httpguard.Page(s.pages["services"]))
	r.GET("/blog", httpguard.Page(s.pages["blog"]))
	r.POST("/services/retry", s.action(func() { s.services.Retry() }, "/services"))
	r.POST("/blog/retry", s.action(func() { s.blog.Retry() }, "/blog"))
	r.POST("/blog/reset", s.action(s.blog.Reset, "/blog"))
	r.POST("/subscribe", s.subscribe)
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func (s *site) action(fn func(), redirect string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fn()
		c.Redirect(http.StatusSeeOther, redirect)
	}
}

// subscribe reports validation failures through the notification queue
// instead of a boundary, as event handlers do.
func (s *site) subscribe(c *gin.Context) {
	h, err := notify.HandlerFromContext(c.Request.Context(), notify.HandlerOptions{})
	if err != nil {
		_ = c.Error(err)
		return
	}
	email := strings.TrimSpace(c.PostForm("email"))
	if !strings.Contains(email, "@") {
		d := h.HandleError(c.Request.Context(), apperr.Validation("Please enter a valid email address."))
		c.JSON(http.StatusUnprocessableEntity, d)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *site) close() {
	s.blog.Close()
	s.services.Close()
}
