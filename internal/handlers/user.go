package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hzerradi/formatrack/internal/apperr"
	"github.com/hzerradi/formatrack/internal/gate"
	"github.com/hzerradi/formatrack/internal/httpx"
	"github.com/hzerradi/formatrack/internal/models"
	"github.com/hzerradi/formatrack/internal/services"
	"github.com/hzerradi/formatrack/internal/validation"
)

// RoleInvalidator purge le cache de rôles après un changement d'affectation.
type RoleInvalidator interface {
	Invalidate(userID uint)
}

type UserHandler struct {
	db          *gorm.DB
	cascades    *services.CascadeService
	resolver    gate.Resolver
	invalidator RoleInvalidator
}

func NewUserHandler(db *gorm.DB, cascades *services.CascadeService, resolver gate.Resolver, invalidator RoleInvalidator) *UserHandler {
	return &UserHandler{db: db, cascades: cascades, resolver: resolver, invalidator: invalidator}
}

func (h *UserHandler) authorize(w http.ResponseWriter, r *http.Request, action gate.Action) bool {
	actor, err := actingActor(r, h.resolver)
	if err != nil {
		writeErr(w, r, err)
		return false
	}
	if !gate.Can(actor.Kind, action, "user") {
		writeErr(w, r, apperr.Authorization("forbidden", string(actor.Kind)))
		return false
	}
	return true
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, gate.ActionList) {
		return
	}
	var users []models.User
	if err := h.db.WithContext(r.Context()).Preload("Roles").Order("nom, prenom").Find(&users).Error; err != nil {
		writeErr(w, r, apperr.Storage(err))
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, gate.ActionView) {
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var user models.User
	if err := h.db.WithContext(r.Context()).Preload("Roles").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeErr(w, r, apperr.NotFound("user"))
			return
		}
		writeErr(w, r, apperr.Storage(err))
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// Create : création directe par un admin (l'inscription self-service passe
// par /signup).
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !h.authorize(w, r, gate.ActionCreate) {
		return
	}
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("email", in.Email, v)
	validation.Required("password", in.Password, v)
	validation.Email("email", in.Email, v)
	if !v.Empty() {
		writeErr(w, r, apperr.Validation("validation_failed", v))
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		writeErr(w, r, apperr.Storage(err))
		return
	}
	user := models.User{Email: in.Email, Password: string(hashed), Nom: in.Nom, Prenom: in.Prenom}
	if err := h.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "email_taken", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.cascades.DeleteUser(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}
	h.invalidator.Invalidate(id)
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

type grantInput struct {
	UserID    uint            `json:"user_id"`
	Kind      models.RoleKind `json:"kind"`
	RegionID  *uint           `json:"region_id"`
	BrancheID *uint           `json:"branche_id"`
}

// GrantRole attache une capacité de rôle. Le scope obligatoire dépend du
// rôle : dr exige region_id, cdc exige branche_id. Ré-accorder un rôle déjà
// détenu met à jour son scope.
func (h *UserHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !h.authorize(w, r, gate.ActionUpdate) {
		return
	}
	var in grantInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if !in.Kind.Known() {
		writeErr(w, r, apperr.UnknownRole(string(in.Kind)))
		return
	}
	if in.Kind == models.RoleDr && in.RegionID == nil {
		writeErr(w, r, apperr.Validation("validation_failed", map[string]string{"region_id": "required"}))
		return
	}
	if in.Kind == models.RoleCdc && in.BrancheID == nil {
		writeErr(w, r, apperr.Validation("validation_failed", map[string]string{"branche_id": "required"}))
		return
	}

	ctx := r.Context()
	if err := h.db.WithContext(ctx).First(&models.User{}, in.UserID).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		writeErr(w, r, apperr.NotFound("user"))
		return
	}

	var assignment models.RoleAssignment
	err := h.db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", in.UserID, in.Kind).
		First(&assignment).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		assignment = models.RoleAssignment{UserID: in.UserID, Kind: in.Kind, RegionID: in.RegionID, BrancheID: in.BrancheID}
		err = h.db.WithContext(ctx).Create(&assignment).Error
	case err == nil:
		assignment.RegionID = in.RegionID
		assignment.BrancheID = in.BrancheID
		err = h.db.WithContext(ctx).Save(&assignment).Error
	}
	if err != nil {
		writeErr(w, r, apperr.Storage(err))
		return
	}

	h.invalidator.Invalidate(in.UserID)
	httpx.JSON(w, http.StatusOK, assignment)
}

type revokeInput struct {
	UserID uint            `json:"user_id"`
	Kind   models.RoleKind `json:"kind"`
}

func (h *UserHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !h.authorize(w, r, gate.ActionUpdate) {
		return
	}
	var in revokeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if !in.Kind.Known() {
		writeErr(w, r, apperr.UnknownRole(string(in.Kind)))
		return
	}

	res := h.db.WithContext(r.Context()).
		Where("user_id = ? AND kind = ?", in.UserID, in.Kind).
		Delete(&models.RoleAssignment{})
	if res.Error != nil {
		writeErr(w, r, apperr.Storage(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		writeErr(w, r, apperr.NotFound("role_assignment"))
		return
	}

	h.invalidator.Invalidate(in.UserID)
	httpx.JSON(w, http.StatusOK, map[string]any{"revoked": string(in.Kind)})
}
