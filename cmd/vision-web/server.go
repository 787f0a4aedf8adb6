package main

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/fpang/ai-vision-studio/internal/config"
	"github.com/fpang/ai-vision-studio/internal/filehandler"
	"github.com/fpang/ai-vision-studio/internal/store"
	"github.com/fpang/ai-vision-studio/internal/studio"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

//go:embed all:frontend_dist
var frontendFS embed.FS

// filePicker opens a native dialog and returns the chosen path.
type filePicker func() (string, error)

// server holds the dependencies shared by all handlers.
type server struct {
	sessions       store.SessionStore
	maxUploadBytes int64
	pick           filePicker
}

func newServer(sessions store.SessionStore, cfg *config.Config, pick filePicker) *server {
	s := &server{
		sessions:       sessions,
		maxUploadBytes: cfg.MaxUploadBytes,
		pick:           pick,
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = filehandler.DefaultMaxBytes
	}
	return s
}

// controllerFactory builds session controllers that apply cfg's upload limits
// and share one rate limit.
func controllerFactory(svc studio.Orchestrator, cfg *config.Config) func() *studio.Controller {
	opts := []studio.ControllerOption{studio.WithUploadOptions(cfg.UploadOptions())}
	if admit := newAdmission(cfg.RateLimitPerMinute); admit != nil {
		opts = append(opts, studio.WithAdmission(admit))
	}
	return func() *studio.Controller {
		return studio.NewController(svc, opts...)
	}
}

// newAdmission returns the process-wide limit on remote operations, shared by
// every session controller. Zero or negative perMinute disables it.
func newAdmission(perMinute int) func() error {
	if perMinute <= 0 {
		return nil
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	return func() error {
		if !limiter.Allow() {
			return studio.ErrRateLimited
		}
		return nil
	}
}

// routes builds the full handler: API, embedded page, and middleware.
func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/sessions", s.handleCreateSession)
	mux.HandleFunc("/api/sessions/{id}", s.handleSession)
	mux.HandleFunc("/api/sessions/{id}/{action}", s.handleSessionAction)

	frontendSub, err := fs.Sub(frontendFS, "frontend_dist")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to access embedded frontend")
	}
	fileServer := http.FileServer(http.FS(frontendSub))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// SPA fallback: unknown paths serve index.html
		path := r.URL.Path
		if path != "/" {
			f, err := frontendSub.Open(strings.TrimPrefix(path, "/"))
			if err != nil {
				r.URL.Path = "/"
			} else {
				f.Close()
			}
		}
		fileServer.ServeHTTP(w, r)
	})

	return withMetrics(withLogging(withSecurityHeaders(withCORS(gzhttp.GzipHandler(mux)))))
}
