package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hzerradi/formatrack/internal/apperr"
	"github.com/hzerradi/formatrack/internal/gate"
	"github.com/hzerradi/formatrack/internal/httpx"
	"github.com/hzerradi/formatrack/internal/models"
	"github.com/hzerradi/formatrack/internal/services"
	"github.com/hzerradi/formatrack/internal/workflow"
)

type FormationHandler struct {
	formations *services.FormationService
	roster     *services.RosterService
	scope      *services.ScopeService
	cascades   *services.CascadeService
	resolver   gate.Resolver
}

func NewFormationHandler(formations *services.FormationService, roster *services.RosterService, scope *services.ScopeService, cascades *services.CascadeService, resolver gate.Resolver) *FormationHandler {
	return &FormationHandler{formations: formations, roster: roster, scope: scope, cascades: cascades, resolver: resolver}
}

type formationInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DateDebut   time.Time `json:"date_debut"`
	DateFin     time.Time `json:"date_fin"`
	AnimateurID uint      `json:"animateur_id"`
	VilleID     uint      `json:"ville_id"`
	SiteID      uint      `json:"site_id"`
	BrancheID   uint      `json:"branche_id"`
}

func (in formationInput) toModel() *models.Formation {
	return &models.Formation{
		Title:       in.Title,
		Description: in.Description,
		DateDebut:   in.DateDebut,
		DateFin:     in.DateFin,
		AnimateurID: in.AnimateurID,
		VilleID:     in.VilleID,
		SiteID:      in.SiteID,
		BrancheID:   in.BrancheID,
	}
}

// List renvoie les formations visibles pour le rôle actif du demandeur.
func (h *FormationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := actingActor(r, h.resolver)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	formations, err := h.scope.VisibleFormations(r.Context(), actor)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, formations)
}

func (h *FormationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	actor, err := actingActor(r, h.resolver)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var in formationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	created, err := h.formations.Create(r.Context(), actor, in.toModel())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *FormationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	f, err := h.formations.Get(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

func (h *FormationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		methodNotAllowed(w, "POST, PUT")
		return
	}
	actor, err := actingActor(r, h.resolver)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var in formationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	updated, err := h.formations.Update(r.Context(), actor, id, in.toModel())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *FormationHandler) Promote(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor *gate.Actor, id uint) (*models.Formation, error) {
		return h.formations.Promote(r.Context(), actor, id)
	})
}

func (h *FormationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor *gate.Actor, id uint) (*models.Formation, error) {
		return h.formations.Approve(r.Context(), actor, id)
	})
}

// Revert attend un corps {"target": "draft"|"written"}.
func (h *FormationHandler) Revert(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor *gate.Actor, id uint) (*models.Formation, error) {
		var in struct {
			Target string `json:"target"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return nil, apperr.Validation("invalid_json", nil)
		}
		target := workflow.Status(in.Target)
		if !target.Valid() {
			return nil, apperr.Validation("invalid_status", map[string]string{"target": in.Target})
		}
		return h.formations.Revert(r.Context(), actor, id, target)
	})
}

func (h *FormationHandler) transition(w http.ResponseWriter, r *http.Request, op func(*gate.Actor, uint) (*models.Formation, error)) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	actor, err := actingActor(r, h.resolver)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	f, err := op(actor, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

func (h *FormationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		methodNotAllowed(w, "POST, DELETE")
		return
	}
	actor, err := actingActor(r, h.resolver)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if !gate.Can(actor.Kind, gate.ActionDelete, "formation") {
		writeErr(w, r, apperr.Authorization("forbidden", string(actor.Kind)))
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := h.cascades.DeleteFormation(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// Roster renvoie les participants groupés par centre.
func (h *FormationHandler) Roster(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	groups, err := h.roster.ParticipantsByCenter(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, groups)
}

// RosterCSV exporte la même liste en CSV (une ligne par participant).
func (h *FormationHandler) RosterCSV(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	groups, err := h.roster.ParticipantsByCenter(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=formation-%d-participants.csv", id))
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"ista", "nom", "prenom", "email", "filiere"})
	for _, g := range groups {
		for _, p := range g.Participants {
			filiere := ""
			if p.Filiere != nil {
				filiere = p.Filiere.Nom
			}
			_ = cw.Write([]string{g.Ista.Nom, p.User.Nom, p.User.Prenom, p.User.Email, filiere})
		}
	}
	cw.Flush()
}

// ByRegion liste les formations d'une région (vue direction).
func (h *FormationHandler) ByRegion(w http.ResponseWriter, r *http.Request) {
	actor, err := actingActor(r, h.resolver)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	regionID, err := idParam(r, "region_id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	// un dr ne consulte que sa propre région
	if actor.Kind == models.RoleDr && (actor.RegionID == nil || *actor.RegionID != regionID) {
		writeErr(w, r, apperr.Authorization("region_mismatch", string(actor.Kind)))
		return
	}
	if !gate.Can(actor.Kind, gate.ActionList, "formation") {
		writeErr(w, r, apperr.Authorization("forbidden", string(actor.Kind)))
		return
	}
	formations, err := h.scope.ListByRegion(r.Context(), regionID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, formations)
}
