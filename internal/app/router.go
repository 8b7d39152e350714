package app

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/homefind/usersvc/internal/auth"
	"github.com/homefind/usersvc/internal/platform/httpx"
	"github.com/homefind/usersvc/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	AuthHandler  *auth.Handler
	UsersHandler *users.Handler
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/health", handleHealth)
	r.Get("/health/{pathEcho}", handleHealth)

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)

	return r
}

// healthDoc mirrors the health envelope served to probes: status, host
// address, and optional echo strings from query and path.
type healthDoc struct {
	Status    int    `json:"status"`
	Message   string `json:"status_message"`
	Timestamp string `json:"timestamp"`
	IPAddress string `json:"ip_address"`
	Echo      string `json:"echo,omitempty"`
	PathEcho  string `json:"path_echo,omitempty"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, healthDoc{
		Status:    http.StatusOK,
		Message:   "OK",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		IPAddress: hostIP(),
		Echo:      r.URL.Query().Get("echo"),
		PathEcho:  chi.URLParam(r, "pathEcho"),
	})
}

func hostIP() string {
	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}
	addrs, err := net.LookupHost(hostname)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}
