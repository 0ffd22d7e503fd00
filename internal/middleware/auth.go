package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/curiouscoder/blogcms/internal/auth"
	"github.com/curiouscoder/blogcms/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const (
	AuthTokenHeader = "X-BLOG-TOKEN"
	// PostPasswordHeader carries the password of a password-protected post.
	PostPasswordHeader = "X-Post-Password"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=middleware_test

type loginChecker interface {
	IsLogged(ctx context.Context, token string) (bool, error)
}

type publicRoute struct {
	method  string
	path    string
	prefix  bool
	pattern *regexp.Regexp
}

func (pr publicRoute) matches(method, path string) bool {
	if pr.method != method {
		return false
	}
	switch {
	case pr.pattern != nil:
		return pr.pattern.MatchString(path)
	case pr.prefix:
		return strings.HasPrefix(path, pr.path)
	default:
		return pr.path == path
	}
}

type AuthMiddlewareHandler struct {
	loginChecker loginChecker
	publicRoutes []publicRoute
}

func NewAuthMiddlewareHandler(loginChecker loginChecker) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		loginChecker: loginChecker,
		publicRoutes: []publicRoute{
			// misc:
			{method: http.MethodGet, path: "/"},
			{method: http.MethodGet, path: "/version"},

			// login-logout:
			{method: http.MethodPost, path: "/a/login"},
			{method: http.MethodGet, path: "/a/logout"},

			// blog reads:
			{method: http.MethodGet, path: "/blog/posts/page/", prefix: true},
			{method: http.MethodGet, path: "/blog/posts/slug/", prefix: true},
			{method: http.MethodGet, path: "/blog/search"},
			{method: http.MethodGet, path: "/blog/categories"},
			{method: http.MethodGet, path: "/blog/tags"},
			{method: http.MethodGet, pattern: regexp.MustCompile(`^/blog/posts/\d+/related$`)},
			{method: http.MethodPatch, pattern: regexp.MustCompile(`^/blog/posts/\d+/like$`)},

			// uploaded images
			{method: http.MethodGet, path: "/assets/", prefix: true},
		},
	}
}

func (h *AuthMiddlewareHandler) pathIsAlwaysAllowed(method, path string) bool {
	for _, route := range h.publicRoutes {
		if route.matches(method, path) {
			return true
		}
	}
	return false
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			authToken := r.Header.Get(AuthTokenHeader)

			if h.pathIsAlwaysAllowed(r.Method, r.URL.Path) {
				// public routes still get to know about a logged admin (private posts)
				if authToken != "" {
					if isLogged, err := h.loginChecker.IsLogged(ctx, authToken); err == nil && isLogged {
						r = r.WithContext(auth.ContextWithAdmin(r.Context()))
					}
				}
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			if authToken == "" {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			isLogged, err := h.loginChecker.IsLogged(ctx, authToken)
			if err != nil {
				log.Errorf("[failed login check] => %s: %s", r.URL.Path, err)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "check-logged-err")
				span.RecordError(err)
				return
			}
			if !isLogged {
				log.Tracef("[invalid token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "not-logged")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.ContextWithAdmin(r.Context())))
		})
	}
}
