package rest

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/lexify-app/lexify-server/internal/common"
	"github.com/lexify-app/lexify-server/internal/server/auth"
	"github.com/lexify-app/lexify-server/internal/server/models"
)

type ctxKey struct{}

var userKey ctxKey

// UserFromContext returns the authenticated account stored by withAuth.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

func (api *API) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(sw, r)

		api.logger.Info(r.Context(), "request handled",
			"method", r.Method,
			"url", r.URL.String(),
			"status", sw.status,
			"duration", time.Since(start).String(),
			"ip", r.RemoteAddr)
	})
}

func (api *API) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				api.logger.Error(r.Context(), "panic in handler",
					"panic", p,
					"method", r.Method,
					"url", r.URL.String(),
					"stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// withAuth verifies the bearer token and loads the account fresh from the
// store: suspension and role changes take effect on the next request, not at
// token expiry. The account lands in the request context.
func (api *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			api.writeError(w, r, common.ErrUnauthorized)
			return
		}

		userID, err := auth.GetUserIDFromToken(tokenString, api.jwtSecret)
		if err != nil {
			api.writeError(w, r, err)
			return
		}

		user, err := api.userSvc.FreshUser(r.Context(), userID)
		if err != nil {
			api.writeError(w, r, err)
			return
		}
		if user.Status == models.StatusSuspended {
			api.writeError(w, r, common.ErrSuspended)
			return
		}

		if api.activity != nil {
			if err := api.activity.Touch(r.Context(), user.ID); err != nil {
				api.logger.Warn(r.Context(), "activity touch failed", "error", err)
			}
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withAdmin is withAuth plus the role gate.
func (api *API) withAdmin(next http.Handler) http.Handler {
	return api.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || !user.IsAdmin() {
			api.writeError(w, r, common.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
