package services

import (
	"context"
	"testing"

	"github.com/hzerradi/formatrack/internal/apperr"
	"github.com/hzerradi/formatrack/internal/gate"
	"github.com/hzerradi/formatrack/internal/models"
)

func formationIDs(fs []models.Formation) map[uint]bool {
	ids := map[uint]bool{}
	for _, f := range fs {
		ids[f.ID] = true
	}
	return ids
}

func TestVisibleFormationsPerRole(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	svc := NewScopeService(db)
	ctx := context.Background()

	fCasaTIC := newFormation(t, db, fx, "TIC Casa", fx.casa.ID, fx.siteCasa.ID, fx.brancheTIC.ID)
	fCasaBTP := newFormation(t, db, fx, "BTP Casa", fx.casa.ID, fx.siteCasa.ID, fx.brancheBTP.ID)
	fAgadirTIC := newFormation(t, db, fx, "TIC Agadir", fx.agadir.ID, fx.siteAgadir.ID, fx.brancheTIC.ID)

	admin := newUser(t, db, "admin@ofr.ma", "Admin", "Root", models.RoleAdmin, nil, nil)
	all, err := svc.VisibleFormations(ctx, &gate.Actor{UserID: admin.ID, Kind: models.RoleAdmin})
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("admin sees everything, got %d", len(all))
	}

	drif := newUser(t, db, "drif@ofr.ma", "Fassi", "Leila", models.RoleDrif, nil, nil)
	orgWide, err := svc.VisibleFormations(ctx, drifActor(drif))
	if err != nil {
		t.Fatalf("drif: %v", err)
	}
	if len(orgWide) != 3 {
		t.Fatalf("drif is organization-wide, got %d", len(orgWide))
	}

	// director scoped to the north region: exactly the Casablanca formations
	dr := newUser(t, db, "dr@ofr.ma", "Idrissi", "Nadia", models.RoleDr, &fx.regionNord.ID, nil)
	visible, err := svc.VisibleFormations(ctx, drActor(dr, fx.regionNord.ID))
	if err != nil {
		t.Fatalf("dr: %v", err)
	}
	got := formationIDs(visible)
	want := map[uint]bool{fCasaTIC.ID: true, fCasaBTP.ID: true}
	if len(got) != len(want) || !got[fCasaTIC.ID] || !got[fCasaBTP.ID] || got[fAgadirTIC.ID] {
		t.Fatalf("dr visibility mismatch: got %v want %v", got, want)
	}

	// cdc scoped to TIC: both TIC formations, whatever the region
	cdc := newUser(t, db, "cdc@ofr.ma", "Bennani", "Samir", models.RoleCdc, nil, &fx.brancheTIC.ID)
	visible, err = svc.VisibleFormations(ctx, cdcActor(cdc, fx.brancheTIC.ID))
	if err != nil {
		t.Fatalf("cdc: %v", err)
	}
	got = formationIDs(visible)
	if len(got) != 2 || !got[fCasaTIC.ID] || !got[fAgadirTIC.ID] {
		t.Fatalf("cdc visibility mismatch: %v", got)
	}

	// animateur: only his own formations
	visible, err = svc.VisibleFormations(ctx, &gate.Actor{UserID: fx.animateur.ID, Kind: models.RoleAnimateur})
	if err != nil {
		t.Fatalf("animateur: %v", err)
	}
	if len(visible) != 3 {
		t.Fatalf("fixture animateur leads all 3 formations, got %d", len(visible))
	}
	other := newUser(t, db, "anim2@ofr.ma", "Chraibi", "Hassan", models.RoleAnimateur, nil, nil)
	visible, err = svc.VisibleFormations(ctx, &gate.Actor{UserID: other.ID, Kind: models.RoleAnimateur})
	if err != nil {
		t.Fatalf("animateur 2: %v", err)
	}
	if len(visible) != 0 {
		t.Fatalf("unassigned animateur sees nothing, got %d", len(visible))
	}
}

func TestVisibleFormationsForParticipant(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	svc := NewScopeService(db)
	ctx := context.Background()

	f := newFormation(t, db, fx, "Session stagiaire", fx.casa.ID, fx.siteCasa.ID, fx.brancheTIC.ID)
	newFormation(t, db, fx, "Autre session", fx.casa.ID, fx.siteCasa.ID, fx.brancheTIC.ID)

	enrolled := newUser(t, db, "stg@ofr.ma", "Naciri", "Sara", models.RoleStagiaire, nil, nil)
	mustCreate(t, db, &models.Participant{UserID: enrolled.ID, IstaID: fx.istaCasa1.ID, FormationID: &f.ID})

	visible, err := svc.VisibleFormations(ctx, &gate.Actor{UserID: enrolled.ID, Kind: models.RoleStagiaire})
	if err != nil {
		t.Fatalf("stagiaire: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != f.ID {
		t.Fatalf("participant sees exactly their enrollment, got %v", formationIDs(visible))
	}

	// enrolled in a center but not assigned to any formation
	unassigned := newUser(t, db, "stg2@ofr.ma", "Alami", "Reda", models.RoleStagiaire, nil, nil)
	mustCreate(t, db, &models.Participant{UserID: unassigned.ID, IstaID: fx.istaCasa1.ID})
	visible, err = svc.VisibleFormations(ctx, &gate.Actor{UserID: unassigned.ID, Kind: models.RoleStagiaire})
	if err != nil {
		t.Fatalf("unassigned stagiaire: %v", err)
	}
	if len(visible) != 0 {
		t.Fatalf("unassigned participant sees nothing, got %d", len(visible))
	}
}

func TestVisibleFormationsUnknownRoleFailsLoud(t *testing.T) {
	db := setupTestDB(t)
	seedFixtures(t, db)
	svc := NewScopeService(db)

	_, err := svc.VisibleFormations(context.Background(), &gate.Actor{UserID: 1, Kind: models.RoleKind("directeur")})
	if !apperr.IsKind(err, apperr.KindUnknownRole) {
		t.Fatalf("unknown role must never read as empty visibility, got %v", err)
	}
}

func TestListByRegion(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	svc := NewScopeService(db)
	ctx := context.Background()

	fCasa := newFormation(t, db, fx, "Casa", fx.casa.ID, fx.siteCasa.ID, fx.brancheTIC.ID)
	newFormation(t, db, fx, "Agadir", fx.agadir.ID, fx.siteAgadir.ID, fx.brancheTIC.ID)

	fs, err := svc.ListByRegion(ctx, fx.regionNord.ID)
	if err != nil {
		t.Fatalf("list by region: %v", err)
	}
	if len(fs) != 1 || fs[0].ID != fCasa.ID {
		t.Fatalf("region listing mismatch: %v", formationIDs(fs))
	}

	if _, err := svc.ListByRegion(ctx, 31337); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
