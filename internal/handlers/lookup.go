package handlers

import (
	"encoding/json"
	"net/http"

	"gorm.io/gorm"

	"github.com/hzerradi/formatrack/internal/apperr"
	"github.com/hzerradi/formatrack/internal/gate"
	"github.com/hzerradi/formatrack/internal/httpx"
	"github.com/hzerradi/formatrack/internal/models"
	"github.com/hzerradi/formatrack/internal/services"
	"github.com/hzerradi/formatrack/internal/validation"
)

// LookupHandler sert le référentiel géographique (region, ville, site, ista)
// et pédagogique (branche, filiere). La lecture est ouverte à tous les rôles,
// l'écriture passe par la permission "lookup:create" / "lookup:delete".
type LookupHandler struct {
	db       *gorm.DB
	cascades *services.CascadeService
	resolver gate.Resolver
}

func NewLookupHandler(db *gorm.DB, cascades *services.CascadeService, resolver gate.Resolver) *LookupHandler {
	return &LookupHandler{db: db, cascades: cascades, resolver: resolver}
}

func (h *LookupHandler) authorize(w http.ResponseWriter, r *http.Request, action gate.Action) bool {
	actor, err := actingActor(r, h.resolver)
	if err != nil {
		writeErr(w, r, err)
		return false
	}
	if !gate.Can(actor.Kind, action, "lookup") {
		writeErr(w, r, apperr.Authorization("forbidden", string(actor.Kind)))
		return false
	}
	return true
}

func (h *LookupHandler) list(w http.ResponseWriter, r *http.Request, dest any, order string, preloads ...string) {
	if !h.authorize(w, r, gate.ActionList) {
		return
	}
	q := h.db.WithContext(r.Context()).Order(order)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	if err := q.Find(dest).Error; err != nil {
		writeErr(w, r, apperr.Storage(err))
		return
	}
	httpx.JSON(w, http.StatusOK, dest)
}

func (h *LookupHandler) create(w http.ResponseWriter, r *http.Request, in any, build func() (any, error)) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !h.authorize(w, r, gate.ActionCreate) {
		return
	}
	if err := json.NewDecoder(r.Body).Decode(in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	record, err := build()
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := h.db.WithContext(r.Context()).Create(record).Error; err != nil {
		writeErr(w, r, apperr.Storage(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *LookupHandler) remove(w http.ResponseWriter, r *http.Request, del func(id uint) error) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		methodNotAllowed(w, "POST, DELETE")
		return
	}
	if !h.authorize(w, r, gate.ActionDelete) {
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := del(id); err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

type nomInput struct {
	Nom      string `json:"nom"`
	ParentID uint   `json:"parent_id"`
}

func (in nomInput) validate(needParent bool) error {
	v := validation.Violations{}
	validation.Required("nom", in.Nom, v)
	if needParent {
		validation.RequiredID("parent_id", in.ParentID, v)
	}
	if !v.Empty() {
		return apperr.Validation("validation_failed", v)
	}
	return nil
}

func (h *LookupHandler) ListRegions(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, &[]models.Region{}, "nom")
}

func (h *LookupHandler) CreateRegion(w http.ResponseWriter, r *http.Request) {
	var in nomInput
	h.create(w, r, &in, func() (any, error) {
		if err := in.validate(false); err != nil {
			return nil, err
		}
		return &models.Region{Nom: in.Nom}, nil
	})
}

func (h *LookupHandler) DeleteRegion(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, func(id uint) error { return h.cascades.DeleteRegion(r.Context(), id) })
}

func (h *LookupHandler) ListVilles(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, &[]models.Ville{}, "nom", "Region")
}

func (h *LookupHandler) CreateVille(w http.ResponseWriter, r *http.Request) {
	var in nomInput
	h.create(w, r, &in, func() (any, error) {
		if err := in.validate(true); err != nil {
			return nil, err
		}
		return &models.Ville{Nom: in.Nom, RegionID: in.ParentID}, nil
	})
}

func (h *LookupHandler) DeleteVille(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, func(id uint) error { return h.cascades.DeleteVille(r.Context(), id) })
}

func (h *LookupHandler) ListSites(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, &[]models.Site{}, "nom", "Ville")
}

func (h *LookupHandler) CreateSite(w http.ResponseWriter, r *http.Request) {
	var in nomInput
	h.create(w, r, &in, func() (any, error) {
		if err := in.validate(true); err != nil {
			return nil, err
		}
		return &models.Site{Nom: in.Nom, VilleID: in.ParentID}, nil
	})
}

func (h *LookupHandler) DeleteSite(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, func(id uint) error { return h.cascades.DeleteSite(r.Context(), id) })
}

func (h *LookupHandler) ListIstas(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, &[]models.Ista{}, "nom", "Ville")
}

func (h *LookupHandler) CreateIsta(w http.ResponseWriter, r *http.Request) {
	var in nomInput
	h.create(w, r, &in, func() (any, error) {
		if err := in.validate(true); err != nil {
			return nil, err
		}
		return &models.Ista{Nom: in.Nom, VilleID: in.ParentID}, nil
	})
}

func (h *LookupHandler) DeleteIsta(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, func(id uint) error { return h.cascades.DeleteIsta(r.Context(), id) })
}

func (h *LookupHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, &[]models.Branche{}, "nom", "Filieres")
}

func (h *LookupHandler) CreateBranche(w http.ResponseWriter, r *http.Request) {
	var in nomInput
	h.create(w, r, &in, func() (any, error) {
		if err := in.validate(false); err != nil {
			return nil, err
		}
		return &models.Branche{Nom: in.Nom}, nil
	})
}

func (h *LookupHandler) DeleteBranche(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, func(id uint) error { return h.cascades.DeleteBranche(r.Context(), id) })
}

func (h *LookupHandler) ListFilieres(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, &[]models.Filiere{}, "nom", "Branche")
}

func (h *LookupHandler) CreateFiliere(w http.ResponseWriter, r *http.Request) {
	var in nomInput
	h.create(w, r, &in, func() (any, error) {
		if err := in.validate(true); err != nil {
			return nil, err
		}
		return &models.Filiere{Nom: in.Nom, BrancheID: in.ParentID}, nil
	})
}

func (h *LookupHandler) DeleteFiliere(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, func(id uint) error { return h.cascades.DeleteFiliere(r.Context(), id) })
}
