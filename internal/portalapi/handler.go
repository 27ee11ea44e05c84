// Package portalapi serves the iframe application's endpoints. Every route
// expects RequireAccount to have attached the caller's account.
package portalapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"portalgate/pkg/accounts"
	"portalgate/pkg/middleware"
)

type InstallationSaver interface {
	SaveInstallation(ctx context.Context, inst accounts.Installation) error
}

type TokenIssuer interface {
	Issue(a accounts.Account) (string, error)
}

type handlers struct {
	log    *zap.SugaredLogger
	store  InstallationSaver
	tokens TokenIssuer
	now    func() time.Time
}

// RegisterRoutes mounts the application endpoints on r.
func RegisterRoutes(r chi.Router, log *zap.SugaredLogger, store InstallationSaver, tokens TokenIssuer) {
	h := &handlers{log: log, store: store, tokens: tokens, now: time.Now}
	h.mount(r)
}

func (h *handlers) mount(r chi.Router) {
	r.Get("/", h.root)
	r.Get("/health", h.health)
	r.Get("/enum", h.enum)
	r.Get("/list", h.list)
	r.Post("/install", h.install)
	r.Post("/token", h.token)
}

func (h *handlers) root(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, map[string]string{"message": "Backend is running"}, http.StatusOK)
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	now := h.now()
	middleware.WriteJSON(w, map[string]any{
		"status":    "healthy",
		"backend":   "go",
		"timestamp": float64(now.UnixNano()) / float64(time.Second),
	}, http.StatusOK)
}

func (h *handlers) enum(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, []string{"option 1", "option 2", "option 3"}, http.StatusOK)
}

func (h *handlers) list(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, []string{"element 1", "element 2", "element 3"}, http.StatusOK)
}

func (h *handlers) install(w http.ResponseWriter, r *http.Request) {
	a, ok := middleware.AccountFrom(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "account required")
		return
	}
	err := h.store.SaveInstallation(r.Context(), accounts.Installation{
		AccountID:        a.ID,
		Status:           a.Status,
		ApplicationToken: a.ApplicationToken,
	})
	if err != nil {
		h.log.Errorw("save installation", "err", err, "account", a.ID, "request_id", middleware.RequestIDFrom(r.Context()))
		middleware.WriteError(w, http.StatusInternalServerError, "installation failed")
		return
	}
	h.log.Infow("application installed", "account", a.ID, "domain", a.Domain)
	middleware.WriteJSON(w, map[string]string{"message": "Installation successful"}, http.StatusOK)
}

func (h *handlers) token(w http.ResponseWriter, r *http.Request) {
	a, ok := middleware.AccountFrom(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "account required")
		return
	}
	raw, err := h.tokens.Issue(a)
	if err != nil {
		h.log.Errorw("issue token", "err", err, "account", a.ID)
		middleware.WriteError(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	middleware.WriteJSON(w, map[string]string{"token": raw}, http.StatusOK)
}
