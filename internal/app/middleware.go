package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/batiprix/batiprix/internal/apikeys"
	"github.com/batiprix/batiprix/internal/observability"
	"github.com/batiprix/batiprix/internal/platform/httpx"
	"github.com/batiprix/batiprix/internal/shared"
)

// KeyVerifier resolves a presented API key secret to an acting identity.
type KeyVerifier interface {
	Verify(ctx context.Context, secret string) (string, error)
}

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Keys    KeyVerifier
	Metrics *observability.Metrics
}

// MiddlewareStack installs the batiprix middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(120, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		actorMiddleware(cfg),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, func(next http.Handler) http.Handler {
			return cfg.Metrics.Middleware(next)
		})
	}
	return middlewares
}

// actorMiddleware resolves the acting identity recorded on writes. A valid
// API key binds the key's name as the actor; otherwise the X-Acteur header
// is honoured and blank falls back to the system actor. A presented but
// invalid key is rejected outright.
func actorMiddleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if secret := apiKeyFromRequest(r); secret != "" {
				if cfg.Keys == nil {
					httpx.Problem(w, http.StatusUnauthorized, "invalid_api_key", "Unauthorized", "api keys are not enabled")
					return
				}
				actor, err := cfg.Keys.Verify(ctx, secret)
				if errors.Is(err, apikeys.ErrInvalidKey) {
					cfg.Logger.Warn("api key rejected", slog.String("path", r.URL.Path))
					httpx.Problem(w, http.StatusUnauthorized, "invalid_api_key", "Unauthorized", "invalid or expired api key")
					return
				}
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						cfg.Logger.Error("api key verification failed", slog.Any("error", err))
					}
					httpx.Problem(w, http.StatusInternalServerError, httpx.CodeStorage, "Internal Error", "")
					return
				}
				next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(ctx, actor)))
				return
			}

			next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(ctx, r.Header.Get("X-Acteur"))))
		})
	}
}

func apiKeyFromRequest(r *http.Request) string {
	if key := r.Header.Get("X-Api-Key"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
