package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hzerradi/formatrack/internal/apperr"
	"github.com/hzerradi/formatrack/internal/gate"
	"github.com/hzerradi/formatrack/internal/models"
	"github.com/hzerradi/formatrack/internal/validation"
	"github.com/hzerradi/formatrack/internal/workflow"
)

// FormationService relie la machine à états pure (internal/workflow) au
// store : chaque opération charge la formation, applique la transition et
// persiste le résultat dans une même transaction.
type FormationService struct{ DB *gorm.DB }

func NewFormationService(db *gorm.DB) *FormationService { return &FormationService{DB: db} }

// stateOf/fieldsOf convertissent le modèle persisté vers les enregistrements
// purs du workflow.
func stateOf(f *models.Formation) workflow.State {
	return workflow.State{
		Status: workflow.Status(f.Status),
		Approval: workflow.Approval{
			ByCdc:          f.ApprovedByCdc,
			ByDrif:         f.ApprovedByDrif,
			ReturnedByCdc:  f.ReturnedByCdc,
			ReturnedByDrif: f.ReturnedByDrif,
		},
	}
}

func fieldsOf(f *models.Formation) workflow.Fields {
	return workflow.Fields{
		Title:       f.Title,
		Description: f.Description,
		DateDebut:   f.DateDebut,
		DateFin:     f.DateFin,
		AnimateurID: f.AnimateurID,
		VilleID:     f.VilleID,
		SiteID:      f.SiteID,
		BrancheID:   f.BrancheID,
	}
}

func applyState(f *models.Formation, st workflow.State) {
	f.Status = string(st.Status)
	f.ApprovedByCdc = st.Approval.ByCdc
	f.ApprovedByDrif = st.Approval.ByDrif
	f.ReturnedByCdc = st.Approval.ReturnedByCdc
	f.ReturnedByDrif = st.Approval.ReturnedByDrif
}

// approverRole maps an actor role to its workflow approver role.
// Seuls cdc et drif possèdent un drapeau de validation, pas l'admin.
func approverRole(kind models.RoleKind) (workflow.Role, bool) {
	switch kind {
	case models.RoleCdc:
		return workflow.RoleCdc, true
	case models.RoleDrif:
		return workflow.RoleDrif, true
	}
	return "", false
}

// inBranchScope checks the cdc branch invariant: a center chief only acts on
// formations of their own branch. Other roles pass.
func inBranchScope(actor *gate.Actor, f *models.Formation) error {
	if actor.Kind != models.RoleCdc {
		return nil
	}
	if actor.BrancheID == nil || *actor.BrancheID != f.BrancheID {
		return apperr.Authorization("branch_mismatch", string(actor.Kind))
	}
	return nil
}

func (s *FormationService) Create(ctx context.Context, actor *gate.Actor, f *models.Formation) (*models.Formation, error) {
	if !gate.Can(actor.Kind, gate.ActionCreate, "formation") {
		return nil, apperr.Authorization("forbidden", string(actor.Kind))
	}
	v := validation.Violations{}
	validation.Required("title", f.Title, v)
	validation.Required("description", f.Description, v)
	validation.RequiredDate("date_debut", f.DateDebut, v)
	validation.RequiredDate("date_fin", f.DateFin, v)
	validation.DateOrder("date_fin", f.DateDebut, f.DateFin, v)
	validation.RequiredID("animateur_id", f.AnimateurID, v)
	validation.RequiredID("ville_id", f.VilleID, v)
	validation.RequiredID("site_id", f.SiteID, v)
	validation.RequiredID("branche_id", f.BrancheID, v)
	if !v.Empty() {
		return nil, apperr.Validation("validation_failed", v)
	}
	if err := inBranchScope(actor, f); err != nil {
		return nil, err
	}
	f.ID = 0
	f.Status = string(workflow.StatusDraft)
	f.ApprovedByCdc, f.ApprovedByDrif = false, false
	f.ReturnedByCdc, f.ReturnedByDrif = false, false
	if err := s.DB.WithContext(ctx).Create(f).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	return f, nil
}

// Update modifie les champs d'une formation encore au statut brouillon.
func (s *FormationService) Update(ctx context.Context, actor *gate.Actor, id uint, in *models.Formation) (*models.Formation, error) {
	if !gate.Can(actor.Kind, gate.ActionUpdate, "formation") {
		return nil, apperr.Authorization("forbidden", string(actor.Kind))
	}
	var out *models.Formation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := lockFormation(tx, id)
		if err != nil {
			return err
		}
		if err := inBranchScope(actor, f); err != nil {
			return err
		}
		if f.Status != string(workflow.StatusDraft) {
			return apperr.State("update_requires_draft", map[string]string{"status": f.Status})
		}
		f.Title = in.Title
		f.Description = in.Description
		f.DateDebut = in.DateDebut
		f.DateFin = in.DateFin
		f.AnimateurID = in.AnimateurID
		f.VilleID = in.VilleID
		f.SiteID = in.SiteID
		f.BrancheID = in.BrancheID
		if err := tx.Save(f).Error; err != nil {
			return apperr.Storage(err)
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get charge une formation avec ses relations d'affichage.
func (s *FormationService) Get(ctx context.Context, id uint) (*models.Formation, error) {
	var f models.Formation
	err := s.DB.WithContext(ctx).
		Preload("Ville.Region").Preload("Site").Preload("Branche").Preload("Animateur").
		First(&f, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("formation")
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &f, nil
}

// Promote advances the formation one step along draft -> written -> validated.
func (s *FormationService) Promote(ctx context.Context, actor *gate.Actor, id uint) (*models.Formation, error) {
	if !gate.Can(actor.Kind, gate.ActionPromote, "formation") {
		return nil, apperr.Authorization("forbidden", string(actor.Kind))
	}
	return s.transition(ctx, actor, id, func(st workflow.State, f *models.Formation) (workflow.State, error) {
		return workflow.Promote(st, fieldsOf(f))
	})
}

// Approve sets the approval flag owned by the actor's role.
func (s *FormationService) Approve(ctx context.Context, actor *gate.Actor, id uint) (*models.Formation, error) {
	role, ok := approverRole(actor.Kind)
	if !ok {
		return nil, apperr.Authorization("not_an_approver", string(actor.Kind))
	}
	return s.transition(ctx, actor, id, func(st workflow.State, _ *models.Formation) (workflow.State, error) {
		return workflow.Approve(st, role)
	})
}

// Revert sends the formation back to target, clearing only the acting role's
// own approval flag.
func (s *FormationService) Revert(ctx context.Context, actor *gate.Actor, id uint, target workflow.Status) (*models.Formation, error) {
	role, ok := approverRole(actor.Kind)
	if !ok {
		return nil, apperr.Authorization("not_an_approver", string(actor.Kind))
	}
	return s.transition(ctx, actor, id, func(st workflow.State, _ *models.Formation) (workflow.State, error) {
		return workflow.Revert(st, role, target)
	})
}

// transition est l'unité de travail commune : charger-verrouiller, appliquer
// la règle pure, persister. Tout ou rien : un rejet n'écrit jamais.
func (s *FormationService) transition(ctx context.Context, actor *gate.Actor, id uint, apply func(workflow.State, *models.Formation) (workflow.State, error)) (*models.Formation, error) {
	var out *models.Formation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := lockFormation(tx, id)
		if err != nil {
			return err
		}
		if err := inBranchScope(actor, f); err != nil {
			return err
		}
		next, err := apply(stateOf(f), f)
		if err != nil {
			return err
		}
		applyState(f, next)
		// Save stamps UpdatedAt on every committed transition.
		if err := tx.Save(f).Error; err != nil {
			return apperr.Storage(err)
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockFormation loads the row for update. Postgres takes a row lock so two
// concurrent approvals cannot lose each other's flag; sqlite (tests)
// serializes writers on its own and rejects FOR UPDATE syntax.
func lockFormation(tx *gorm.DB, id uint) (*models.Formation, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var f models.Formation
	err := q.First(&f, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("formation")
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &f, nil
}
