package handlers

import (
	"net/http"
	"strconv"

	"github.com/hzerradi/formatrack/internal/apperr"
	"github.com/hzerradi/formatrack/internal/auth"
	"github.com/hzerradi/formatrack/internal/gate"
	"github.com/hzerradi/formatrack/internal/httpx"
	"github.com/hzerradi/formatrack/internal/i18n"
	"github.com/hzerradi/formatrack/internal/models"
)

// translator returns the message localizer for the request's language.
func translator(r *http.Request) func(code string) string {
	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	return func(code string) string { return i18n.T(lang, code) }
}

// writeErr renders a typed application error with a localized message.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	httpx.AppError(w, err, translator(r))
}

// actingActor resolves the authenticated user to the role capability they
// act under. The acting role comes from the X-Acting-Role header (or ?role=)
// for users holding several roles; otherwise the highest-precedence role.
func actingActor(r *http.Request, resolver gate.Resolver) (*gate.Actor, error) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, apperr.Authorization("unauthorized", "")
	}
	profile, err := resolver.Resolve(r.Context(), uid)
	if err != nil {
		return nil, err
	}
	role := r.Header.Get("X-Acting-Role")
	if role == "" {
		role = r.URL.Query().Get("role")
	}
	if role == "" {
		return profile.Default()
	}
	return profile.Actor(models.RoleKind(role))
}

// idParam lit un identifiant entier positif depuis la query string.
func idParam(r *http.Request, name string) (uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, apperr.Validation("invalid_id", map[string]string{name: "required"})
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid_id", map[string]string{name: "invalid"})
	}
	return uint(id), nil
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
