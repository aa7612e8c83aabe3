// Package web serves the browser front end: login, the file dashboard and
// the admin console, backed by the same views as the command line.
package web

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
	"github.com/sorynturda/link-sharing/config"
	"github.com/sorynturda/link-sharing/internal/api"
	"github.com/sorynturda/link-sharing/internal/views"
)

const requestTimeout = 60 * time.Second

// Options configures a Server. Client is used anonymously; each request
// gets a copy bound to the token in its cookie.
type Options struct {
	Config config.Config
	Client *api.Client
	Events views.Publisher
	Logger zerolog.Logger
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	client     *api.Client
	sessions   sessions.Store
	cookieName string
	verify     bool
	events     views.Publisher
	pages      pages
	logger     zerolog.Logger
}

// New constructs a Server with its middleware and routes.
func New(opts Options) (*Server, error) {
	if opts.Client == nil {
		return nil, errors.New("api client is required")
	}
	cfg := opts.Config

	secret := []byte(cfg.Session.CookieSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate cookie secret: %w", err)
		}
		opts.Logger.Warn().Msg("no cookie secret configured, sessions will not survive a restart")
	}
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.CookieMaxAge,
		HttpOnly: true,
		Secure:   cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	cookieName := cfg.Session.CookieName
	if cookieName == "" {
		cookieName = "linkshare"
	}

	s := &Server{
		client:     opts.Client,
		sessions:   store,
		cookieName: cookieName,
		verify:     cfg.API.VerifySession,
		events:     opts.Events,
		pages:      pages,
		logger:     opts.Logger,
	}
	s.router = s.routes()

	port := cfg.Web.Port
	if port == 0 {
		port = 3000
	}
	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Web.Host, strconv.Itoa(port)),
		Handler:      s.router,
		ReadTimeout:  orDefault(cfg.Web.ReadTimeout, 15*time.Second),
		WriteTimeout: orDefault(cfg.Web.WriteTimeout, 60*time.Second),
		IdleTimeout:  orDefault(cfg.Web.IdleTimeout, 60*time.Second),
	}
	return s, nil
}

func (s *Server) routes() *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger(s.logger),
		middleware.Timeout(requestTimeout),
	)

	router.Get("/healthz", healthz)
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})
	router.Get("/login", s.loginPage)
	router.Post("/login", s.login)
	router.Get("/register", s.registerPage)
	router.Post("/register", s.register)
	router.Post("/logout", s.logout)

	router.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/dashboard", s.dashboard)
		r.Post("/files/upload", s.upload)
		r.Get("/files/{fileID}/download", s.download)
		r.Post("/files/{fileID}/delete", s.deleteFile)
		r.Post("/files/{fileID}/share", s.shareFile)
		r.Get("/share/qr", s.shareQR)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Get("/admin", s.admin)
			r.Route("/admin/users/{userID}/files/{fileID}", func(r chi.Router) {
				r.Get("/download", s.adminDownload)
				r.Post("/delete", s.adminDelete)
				r.Post("/share", s.adminShare)
			})
		})
	})
	return router
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
