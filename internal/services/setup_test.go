package services

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hzerradi/formatrack/internal/gate"
	"github.com/hzerradi/formatrack/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Region{}, &models.Ville{}, &models.Site{}, &models.Ista{},
		&models.Branche{}, &models.Filiere{},
		&models.User{}, &models.RoleAssignment{},
		&models.Formation{}, &models.Participant{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixtures struct {
	regionNord, regionSud  models.Region
	casa, agadir           models.Ville
	siteCasa, siteAgadir   models.Site
	istaCasa1, istaCasa2   models.Ista
	istaAgadir             models.Ista
	brancheTIC, brancheBTP models.Branche
	filiereDev             models.Filiere

	animateur models.User
}

func mustCreate(t *testing.T, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func seedFixtures(t *testing.T, db *gorm.DB) *fixtures {
	t.Helper()
	fx := &fixtures{}
	fx.regionNord = models.Region{Nom: "Casablanca-Settat"}
	fx.regionSud = models.Region{Nom: "Souss-Massa"}
	mustCreate(t, db, &fx.regionNord)
	mustCreate(t, db, &fx.regionSud)

	fx.casa = models.Ville{Nom: "Casablanca", RegionID: fx.regionNord.ID}
	fx.agadir = models.Ville{Nom: "Agadir", RegionID: fx.regionSud.ID}
	mustCreate(t, db, &fx.casa)
	mustCreate(t, db, &fx.agadir)

	fx.siteCasa = models.Site{Nom: "Complexe Hay Hassani", VilleID: fx.casa.ID}
	fx.siteAgadir = models.Site{Nom: "Complexe Founty", VilleID: fx.agadir.ID}
	mustCreate(t, db, &fx.siteCasa)
	mustCreate(t, db, &fx.siteAgadir)

	fx.istaCasa1 = models.Ista{Nom: "ISTA Hay Hassani", VilleID: fx.casa.ID}
	fx.istaCasa2 = models.Ista{Nom: "ISTA Ain Sebaa", VilleID: fx.casa.ID}
	fx.istaAgadir = models.Ista{Nom: "ISTA Agadir", VilleID: fx.agadir.ID}
	mustCreate(t, db, &fx.istaCasa1)
	mustCreate(t, db, &fx.istaCasa2)
	mustCreate(t, db, &fx.istaAgadir)

	fx.brancheTIC = models.Branche{Nom: "TIC"}
	fx.brancheBTP = models.Branche{Nom: "BTP"}
	mustCreate(t, db, &fx.brancheTIC)
	mustCreate(t, db, &fx.brancheBTP)

	fx.filiereDev = models.Filiere{Nom: "Développement digital", BrancheID: fx.brancheTIC.ID}
	mustCreate(t, db, &fx.filiereDev)

	fx.animateur = newUser(t, db, "anim@ofr.ma", "Alaoui", "Karim", models.RoleAnimateur, nil, nil)
	return fx
}

func newUser(t *testing.T, db *gorm.DB, email, nom, prenom string, kind models.RoleKind, regionID, brancheID *uint) models.User {
	t.Helper()
	u := models.User{Email: email, Password: "x", Nom: nom, Prenom: prenom}
	mustCreate(t, db, &u)
	ra := models.RoleAssignment{UserID: u.ID, Kind: kind, RegionID: regionID, BrancheID: brancheID}
	mustCreate(t, db, &ra)
	u.Roles = []models.RoleAssignment{ra}
	return u
}

func newFormation(t *testing.T, db *gorm.DB, fx *fixtures, title string, villeID, siteID, brancheID uint) models.Formation {
	t.Helper()
	f := models.Formation{
		Title:       title,
		Description: "Session " + title,
		DateDebut:   time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC),
		DateFin:     time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		Status:      "draft",
		AnimateurID: fx.animateur.ID,
		VilleID:     villeID,
		SiteID:      siteID,
		BrancheID:   brancheID,
	}
	mustCreate(t, db, &f)
	return f
}

func cdcActor(user models.User, brancheID uint) *gate.Actor {
	return &gate.Actor{UserID: user.ID, Kind: models.RoleCdc, BrancheID: &brancheID}
}

func drifActor(user models.User) *gate.Actor {
	return &gate.Actor{UserID: user.ID, Kind: models.RoleDrif}
}

func drActor(user models.User, regionID uint) *gate.Actor {
	return &gate.Actor{UserID: user.ID, Kind: models.RoleDr, RegionID: &regionID}
}
