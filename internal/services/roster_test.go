package services

import (
	"context"
	"testing"

	"github.com/hzerradi/formatrack/internal/apperr"
	"github.com/hzerradi/formatrack/internal/models"
)

func TestParticipantsByCenterGroupsAndOrders(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	svc := NewRosterService(db)
	ctx := context.Background()

	f := newFormation(t, db, fx, "Regroupement", fx.casa.ID, fx.siteCasa.ID, fx.brancheTIC.ID)

	// three participants in two centers; names chosen out of order
	zahra := newUser(t, db, "zahra@ofr.ma", "Zerouali", "Fatima", models.RoleStagiaire, nil, nil)
	amine := newUser(t, db, "amine@ofr.ma", "Amrani", "Mehdi", models.RoleStagiaire, nil, nil)
	brahim := newUser(t, db, "brahim@ofr.ma", "Berrada", "Youssef", models.RoleStagiaire, nil, nil)

	mustCreate(t, db, &models.Participant{UserID: zahra.ID, IstaID: fx.istaCasa1.ID, FormationID: &f.ID, FiliereID: &fx.filiereDev.ID})
	mustCreate(t, db, &models.Participant{UserID: amine.ID, IstaID: fx.istaCasa1.ID, FormationID: &f.ID})
	mustCreate(t, db, &models.Participant{UserID: brahim.ID, IstaID: fx.istaCasa2.ID, FormationID: &f.ID})

	groups, err := svc.ParticipantsByCenter(ctx, f.ID)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 centers got %d", len(groups))
	}
	// centers ordered by name: "ISTA Ain Sebaa" < "ISTA Hay Hassani"
	if groups[0].Ista.Nom != "ISTA Ain Sebaa" || groups[1].Ista.Nom != "ISTA Hay Hassani" {
		t.Fatalf("centers out of order: %s / %s", groups[0].Ista.Nom, groups[1].Ista.Nom)
	}
	// within Hay Hassani: Amrani before Zerouali
	hay := groups[1]
	if len(hay.Participants) != 2 {
		t.Fatalf("expected 2 participants got %d", len(hay.Participants))
	}
	if hay.Participants[0].User.Nom != "Amrani" || hay.Participants[1].User.Nom != "Zerouali" {
		t.Fatalf("participants out of order: %s / %s", hay.Participants[0].User.Nom, hay.Participants[1].User.Nom)
	}
	// filiere carried when assigned, omitted otherwise
	if hay.Participants[1].Filiere == nil || hay.Participants[1].Filiere.Nom != "Développement digital" {
		t.Fatalf("expected filiere on enrolled participant: %+v", hay.Participants[1])
	}
	if hay.Participants[0].Filiere != nil {
		t.Fatalf("unexpected filiere: %+v", hay.Participants[0].Filiere)
	}
}

func TestParticipantsByCenterEmptyIsNotAnError(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	svc := NewRosterService(db)

	f := newFormation(t, db, fx, "Sans inscrits", fx.casa.ID, fx.siteCasa.ID, fx.brancheTIC.ID)
	groups, err := svc.ParticipantsByCenter(context.Background(), f.ID)
	if err != nil {
		t.Fatalf("empty roster must not fail: %v", err)
	}
	if groups == nil || len(groups) != 0 {
		t.Fatalf("expected empty sequence, got %#v", groups)
	}
}

func TestParticipantsByCenterUnknownFormation(t *testing.T) {
	db := setupTestDB(t)
	seedFixtures(t, db)
	svc := NewRosterService(db)

	if _, err := svc.ParticipantsByCenter(context.Background(), 424242); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
