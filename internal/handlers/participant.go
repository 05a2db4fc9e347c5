package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/hzerradi/formatrack/internal/apperr"
	"github.com/hzerradi/formatrack/internal/gate"
	"github.com/hzerradi/formatrack/internal/httpx"
	"github.com/hzerradi/formatrack/internal/models"
	"github.com/hzerradi/formatrack/internal/services"
)

type ParticipantHandler struct {
	db       *gorm.DB
	cascades *services.CascadeService
	resolver gate.Resolver
}

func NewParticipantHandler(db *gorm.DB, cascades *services.CascadeService, resolver gate.Resolver) *ParticipantHandler {
	return &ParticipantHandler{db: db, cascades: cascades, resolver: resolver}
}

// List renvoie les inscriptions, filtrables par centre (?ista_id=) ou par
// formation (?formation_id=).
func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := actingActor(r, h.resolver)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if !gate.Can(actor.Kind, gate.ActionList, "participant") {
		writeErr(w, r, apperr.Authorization("forbidden", string(actor.Kind)))
		return
	}

	q := h.db.WithContext(r.Context()).
		Preload("User").Preload("Ista").Preload("Filiere")
	if raw := r.URL.Query().Get("ista_id"); raw != "" {
		id, err := idParam(r, "ista_id")
		if err != nil {
			writeErr(w, r, err)
			return
		}
		q = q.Where("ista_id = ?", id)
	}
	if raw := r.URL.Query().Get("formation_id"); raw != "" {
		id, err := idParam(r, "formation_id")
		if err != nil {
			writeErr(w, r, err)
			return
		}
		q = q.Where("formation_id = ?", id)
	}

	var participants []models.Participant
	if err := q.Order("id").Find(&participants).Error; err != nil {
		writeErr(w, r, apperr.Storage(err))
		return
	}
	httpx.JSON(w, http.StatusOK, participants)
}

type participantInput struct {
	UserID    uint  `json:"user_id"`
	IstaID    uint  `json:"ista_id"`
	FiliereID *uint `json:"filiere_id"`
}

// Create inscrit un stagiaire dans un centre. Une seule inscription active
// par utilisateur.
func (h *ParticipantHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	actor, err := actingActor(r, h.resolver)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if !gate.Can(actor.Kind, gate.ActionCreate, "participant") {
		writeErr(w, r, apperr.Authorization("forbidden", string(actor.Kind)))
		return
	}
	var in participantInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if in.UserID == 0 || in.IstaID == 0 {
		writeErr(w, r, apperr.Validation("validation_failed", map[string]string{"user_id": "required", "ista_id": "required"}))
		return
	}

	ctx := r.Context()
	if err := h.db.WithContext(ctx).First(&models.User{}, in.UserID).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		writeErr(w, r, apperr.NotFound("user"))
		return
	}
	if err := h.db.WithContext(ctx).First(&models.Ista{}, in.IstaID).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		writeErr(w, r, apperr.NotFound("ista"))
		return
	}

	var existing int64
	if err := h.db.WithContext(ctx).Model(&models.Participant{}).Where("user_id = ?", in.UserID).Count(&existing).Error; err != nil {
		writeErr(w, r, apperr.Storage(err))
		return
	}
	if existing > 0 {
		writeErr(w, r, apperr.Precondition("already_enrolled", map[string]string{"user_id": "already enrolled"}))
		return
	}

	p := models.Participant{UserID: in.UserID, IstaID: in.IstaID, FiliereID: in.FiliereID}
	if err := h.db.WithContext(ctx).Create(&p).Error; err != nil {
		writeErr(w, r, apperr.Storage(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

type assignInput struct {
	FormationID *uint `json:"formation_id"`
	FiliereID   *uint `json:"filiere_id"`
}

// Assign affecte (ou désaffecte avec null) une formation et/ou une filière.
func (h *ParticipantHandler) Assign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	actor, err := actingActor(r, h.resolver)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if !gate.Can(actor.Kind, gate.ActionUpdate, "participant") {
		writeErr(w, r, apperr.Authorization("forbidden", string(actor.Kind)))
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var in assignInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	ctx := r.Context()
	var p models.Participant
	if err := h.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeErr(w, r, apperr.NotFound("participant"))
			return
		}
		writeErr(w, r, apperr.Storage(err))
		return
	}
	if in.FormationID != nil {
		if err := h.db.WithContext(ctx).First(&models.Formation{}, *in.FormationID).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			writeErr(w, r, apperr.NotFound("formation"))
			return
		}
	}
	if in.FiliereID != nil {
		if err := h.db.WithContext(ctx).First(&models.Filiere{}, *in.FiliereID).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			writeErr(w, r, apperr.NotFound("filiere"))
			return
		}
	}

	p.FormationID = in.FormationID
	p.FiliereID = in.FiliereID
	if err := h.db.WithContext(ctx).Save(&p).Error; err != nil {
		writeErr(w, r, apperr.Storage(err))
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ParticipantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		methodNotAllowed(w, "POST, DELETE")
		return
	}
	actor, err := actingActor(r, h.resolver)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if !gate.Can(actor.Kind, gate.ActionDelete, "participant") {
		writeErr(w, r, apperr.Authorization("forbidden", string(actor.Kind)))
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := h.cascades.DeleteParticipant(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}
