package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hzerradi/formatrack/internal/auth"
	"github.com/hzerradi/formatrack/internal/gate"
	"github.com/hzerradi/formatrack/internal/handlers"
	"github.com/hzerradi/formatrack/internal/httpx"
	"github.com/hzerradi/formatrack/internal/models"
	"github.com/hzerradi/formatrack/internal/services"
)

// roleCacheTTL borne la durée pendant laquelle un changement d'affectation
// de rôle peut rester invisible (hors invalidation explicite).
const roleCacheTTL = 5 * time.Minute

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// RequireAuth vérifie que l'utilisateur de la session existe toujours.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	resolver := gate.NewCachedResolver(gate.NewDBResolver(db), roleCacheTTL)
	cascades := services.NewCascadeService(db)

	// Auth endpoints (public)
	ah := handlers.NewAuthHandler(db)
	mux.HandleFunc("/signup", ah.Signup)
	mux.HandleFunc("/login", ah.Login)
	mux.HandleFunc("/logout", ah.Logout)

	// Formation endpoints
	fh := handlers.NewFormationHandler(
		services.NewFormationService(db),
		services.NewRosterService(db),
		services.NewScopeService(db),
		cascades,
		resolver,
	)
	protect := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireAuth(h))
	}
	mux.Handle("/formations", protect(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fh.List(w, r)
		case http.MethodPost:
			fh.Create(w, r)
		default:
			w.Header().Set("Allow", "GET, POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	}))
	mux.Handle("/formations/get", protect(fh.Get))
	mux.Handle("/formations/update", protect(fh.Update))
	mux.Handle("/formations/promote", protect(fh.Promote))
	mux.Handle("/formations/approve", protect(fh.Approve))
	mux.Handle("/formations/revert", protect(fh.Revert))
	mux.Handle("/formations/delete", protect(fh.Delete))
	mux.Handle("/formations/roster", protect(fh.Roster))
	mux.Handle("/formations/roster.csv", protect(fh.RosterCSV))
	mux.Handle("/formations/by-region", protect(fh.ByRegion))

	// Participant endpoints
	ph := handlers.NewParticipantHandler(db, cascades, resolver)
	mux.Handle("/participants", protect(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ph.List(w, r)
		case http.MethodPost:
			ph.Create(w, r)
		default:
			w.Header().Set("Allow", "GET, POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	}))
	mux.Handle("/participants/assign", protect(ph.Assign))
	mux.Handle("/participants/delete", protect(ph.Delete))

	// Référentiel
	lh := handlers.NewLookupHandler(db, cascades, resolver)
	listOrCreate := func(list, create http.HandlerFunc) http.Handler {
		return protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				list(w, r)
			case http.MethodPost:
				create(w, r)
			default:
				w.Header().Set("Allow", "GET, POST")
				httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			}
		})
	}
	mux.Handle("/lookups/regions", listOrCreate(lh.ListRegions, lh.CreateRegion))
	mux.Handle("/lookups/regions/delete", protect(lh.DeleteRegion))
	mux.Handle("/lookups/villes", listOrCreate(lh.ListVilles, lh.CreateVille))
	mux.Handle("/lookups/villes/delete", protect(lh.DeleteVille))
	mux.Handle("/lookups/sites", listOrCreate(lh.ListSites, lh.CreateSite))
	mux.Handle("/lookups/sites/delete", protect(lh.DeleteSite))
	mux.Handle("/lookups/istas", listOrCreate(lh.ListIstas, lh.CreateIsta))
	mux.Handle("/lookups/istas/delete", protect(lh.DeleteIsta))
	mux.Handle("/lookups/branches", listOrCreate(lh.ListBranches, lh.CreateBranche))
	mux.Handle("/lookups/branches/delete", protect(lh.DeleteBranche))
	mux.Handle("/lookups/filieres", listOrCreate(lh.ListFilieres, lh.CreateFiliere))
	mux.Handle("/lookups/filieres/delete", protect(lh.DeleteFiliere))

	// Administration des utilisateurs et des rôles
	uh := handlers.NewUserHandler(db, cascades, resolver, resolver)
	mux.Handle("/users", listOrCreate(uh.List, uh.Create))
	mux.Handle("/users/get", protect(uh.Get))
	mux.Handle("/users/delete", protect(uh.Delete))
	mux.Handle("/users/roles/grant", protect(uh.GrantRole))
	mux.Handle("/users/roles/revoke", protect(uh.RevokeRole))

	return withRequestID(withRecover(withLogging(mux)))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s (%s)", r.Method, r.URL.Path, requestIDFrom(r), time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic on %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

const requestIDHeader = "X-Request-ID"

// withRequestID attache un identifiant de corrélation à chaque requête,
// réutilisant celui fourni par un éventuel proxy amont.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func requestIDFrom(r *http.Request) string {
	if id := r.Header.Get(requestIDHeader); id != "" {
		return id
	}
	return "-"
}
