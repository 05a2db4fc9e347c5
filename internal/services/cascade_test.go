package services

import (
	"context"
	"testing"

	"github.com/hzerradi/formatrack/internal/apperr"
	"github.com/hzerradi/formatrack/internal/models"
)

func TestDeleteUserCascades(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	svc := NewCascadeService(db)
	ctx := context.Background()

	f := newFormation(t, db, fx, "Formation de l'animateur", fx.casa.ID, fx.siteCasa.ID, fx.brancheTIC.ID)
	stg := newUser(t, db, "stg@ofr.ma", "Naciri", "Sara", models.RoleStagiaire, nil, nil)
	mustCreate(t, db, &models.Participant{UserID: stg.ID, IstaID: fx.istaCasa1.ID, FormationID: &f.ID})

	// deleting the facilitator removes their formations; enrollments survive unassigned
	if err := svc.DeleteUser(ctx, fx.animateur.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	var formations int64
	db.Model(&models.Formation{}).Count(&formations)
	if formations != 0 {
		t.Fatalf("facilitator's formations must cascade, %d left", formations)
	}
	var p models.Participant
	if err := db.Where("user_id = ?", stg.ID).First(&p).Error; err != nil {
		t.Fatalf("participant must survive formation cascade: %v", err)
	}
	if p.FormationID != nil {
		t.Fatalf("participant should be unassigned, got %v", *p.FormationID)
	}

	// deleting the participant's user removes the enrollment
	if err := svc.DeleteUser(ctx, stg.ID); err != nil {
		t.Fatalf("delete stagiaire: %v", err)
	}
	var participants int64
	db.Model(&models.Participant{}).Count(&participants)
	if participants != 0 {
		t.Fatalf("user deletion must cascade to participant, %d left", participants)
	}
}

func TestDeleteIstaCascadesParticipants(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	svc := NewCascadeService(db)

	stg := newUser(t, db, "stg@ofr.ma", "Naciri", "Sara", models.RoleStagiaire, nil, nil)
	mustCreate(t, db, &models.Participant{UserID: stg.ID, IstaID: fx.istaCasa1.ID})

	if err := svc.DeleteIsta(context.Background(), fx.istaCasa1.ID); err != nil {
		t.Fatalf("delete ista: %v", err)
	}
	var participants int64
	db.Model(&models.Participant{}).Count(&participants)
	if participants != 0 {
		t.Fatalf("center deletion must cascade to participants, %d left", participants)
	}
	var user models.User
	if err := db.First(&user, stg.ID).Error; err != nil {
		t.Fatalf("the user behind the participant must survive: %v", err)
	}
}

func TestDeleteVilleCascadesFormations(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	svc := NewCascadeService(db)

	newFormation(t, db, fx, "Casa 1", fx.casa.ID, fx.siteCasa.ID, fx.brancheTIC.ID)
	keep := newFormation(t, db, fx, "Agadir", fx.agadir.ID, fx.siteAgadir.ID, fx.brancheTIC.ID)

	if err := svc.DeleteVille(context.Background(), fx.casa.ID); err != nil {
		t.Fatalf("delete ville: %v", err)
	}
	var remaining []models.Formation
	db.Find(&remaining)
	if len(remaining) != 1 || remaining[0].ID != keep.ID {
		t.Fatalf("only the other city's formation should remain: %v", remaining)
	}
	var sites, istas int64
	db.Model(&models.Site{}).Where("ville_id = ?", fx.casa.ID).Count(&sites)
	db.Model(&models.Ista{}).Where("ville_id = ?", fx.casa.ID).Count(&istas)
	if sites != 0 || istas != 0 {
		t.Fatalf("city children must cascade: sites=%d istas=%d", sites, istas)
	}
}

func TestDeleteFormationUnassignsParticipants(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	svc := NewCascadeService(db)

	f := newFormation(t, db, fx, "À supprimer", fx.casa.ID, fx.siteCasa.ID, fx.brancheTIC.ID)
	stg := newUser(t, db, "stg@ofr.ma", "Naciri", "Sara", models.RoleStagiaire, nil, nil)
	mustCreate(t, db, &models.Participant{UserID: stg.ID, IstaID: fx.istaCasa1.ID, FormationID: &f.ID})

	if err := svc.DeleteFormation(context.Background(), f.ID); err != nil {
		t.Fatalf("delete formation: %v", err)
	}
	var p models.Participant
	if err := db.Where("user_id = ?", stg.ID).First(&p).Error; err != nil {
		t.Fatalf("participant must survive: %v", err)
	}
	if p.FormationID != nil {
		t.Fatalf("participant must be unassigned")
	}
}

func TestDeleteBrancheInUse(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	svc := NewCascadeService(db)
	ctx := context.Background()

	newFormation(t, db, fx, "TIC en cours", fx.casa.ID, fx.siteCasa.ID, fx.brancheTIC.ID)
	if err := svc.DeleteBranche(ctx, fx.brancheTIC.ID); !apperr.IsKind(err, apperr.KindPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}

	// unused branch goes away with its filieres
	if err := svc.DeleteBranche(ctx, fx.brancheBTP.ID); err != nil {
		t.Fatalf("delete unused branche: %v", err)
	}
	var count int64
	db.Model(&models.Branche{}).Where("id = ?", fx.brancheBTP.ID).Count(&count)
	if count != 0 {
		t.Fatalf("branche should be gone")
	}
}

func TestDeleteMissingEntities(t *testing.T) {
	db := setupTestDB(t)
	seedFixtures(t, db)
	svc := NewCascadeService(db)
	ctx := context.Background()

	if err := svc.DeleteFormation(ctx, 999); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.DeleteRegion(ctx, 999); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
