// Package rest is the HTTP surface of the Lexify server: a thin JSON layer
// over the services. Handlers decode, delegate, and encode; matching and
// dedup semantics live below.
package rest

import (
	"context"
	"net/http"

	"github.com/lexify-app/lexify-server/internal/logging"
	"github.com/lexify-app/lexify-server/internal/server/models"
	"github.com/lexify-app/lexify-server/internal/server/repositories/senses"
	"github.com/lexify-app/lexify-server/internal/server/repositories/users"
	"github.com/lexify-app/lexify-server/internal/server/services"
)

type historyService interface {
	SaveOccurrence(ctx context.Context, userID string, occ services.Occurrence) (*services.SaveResult, error)
	UserHistory(ctx context.Context, userID string) ([]*models.HistoryEntry, error)
}

type userService interface {
	SignIn(ctx context.Context, email, name string) (*models.User, string, error)
	AdminLogin(ctx context.Context, email, password string) (string, error)
	FreshUser(ctx context.Context, userID string) (*models.User, error)
	SetSuspended(ctx context.Context, userID string, suspended bool) (*models.User, error)
}

type preferenceService interface {
	Get(ctx context.Context, userID string) (*models.Preference, error)
	Update(ctx context.Context, userID string, upd services.PreferenceUpdate) (*models.Preference, error)
}

type adminService interface {
	Overview(ctx context.Context) (*services.OverviewStats, error)
	Users(ctx context.Context) ([]*users.UserWithStats, error)
	UserDetail(ctx context.Context, userID string) (*services.UserDetail, error)
	TopWords(ctx context.Context, limit int) ([]senses.WordCount, error)
}

type exportService interface {
	Export(ctx context.Context, userID string) (string, error)
}

// activityToucher marks a user active; failures are swallowed, activity
// tracking never blocks a request.
type activityToucher interface {
	Touch(ctx context.Context, userID string) error
}

type API struct {
	history     historyService
	userSvc     userService
	preferences preferenceService
	admin       adminService
	export      exportService
	activity    activityToucher
	jwtSecret   []byte
	logger      logging.Logger
	mux         *http.ServeMux
}

type Deps struct {
	History     historyService
	Users       userService
	Preferences preferenceService
	Admin       adminService
	Export      exportService
	Activity    activityToucher
	JWTSecret   []byte
	Logger      logging.Logger
}

func NewAPI(d Deps) *API {
	api := &API{
		history:     d.History,
		userSvc:     d.Users,
		preferences: d.Preferences,
		admin:       d.Admin,
		export:      d.Export,
		activity:    d.Activity,
		jwtSecret:   d.JWTSecret,
		logger:      d.Logger.With("module", "rest"),
		mux:         http.NewServeMux(),
	}

	api.mount()
	return api
}

func (api *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := api.withRecover(api.withLogging(api.mux))
	h.ServeHTTP(w, r)
}

func (api *API) mount() {
	api.mux.HandleFunc("GET /healthz", api.handleHealth)

	api.mux.HandleFunc("POST /auth/google", api.handleSignIn)
	api.mux.HandleFunc("POST /auth/login", api.handleAdminLogin)

	api.mux.Handle("POST /words/save", api.withAuth(http.HandlerFunc(api.handleSaveWord)))
	api.mux.Handle("GET /words", api.withAuth(http.HandlerFunc(api.handleGetWords)))
	api.mux.Handle("POST /words/export", api.withAuth(http.HandlerFunc(api.handleExport)))

	api.mux.Handle("GET /preferences", api.withAuth(http.HandlerFunc(api.handleGetPreferences)))
	api.mux.Handle("PUT /preferences", api.withAuth(http.HandlerFunc(api.handleUpdatePreferences)))

	api.mux.Handle("GET /admin/stats", api.withAdmin(http.HandlerFunc(api.handleAdminStats)))
	api.mux.Handle("GET /admin/users", api.withAdmin(http.HandlerFunc(api.handleAdminUsers)))
	api.mux.Handle("GET /admin/users/{id}", api.withAdmin(http.HandlerFunc(api.handleAdminUserDetail)))
	api.mux.Handle("POST /admin/users/{id}/suspend", api.withAdmin(http.HandlerFunc(api.handleAdminSuspend)))
	api.mux.Handle("GET /admin/words/top", api.withAdmin(http.HandlerFunc(api.handleAdminTopWords)))
}

func (api *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
