package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hzerradi/formatrack/internal/apperr"
	"github.com/hzerradi/formatrack/internal/gate"
	"github.com/hzerradi/formatrack/internal/models"
)

// ScopeService calcule le sous-ensemble de formations visibles pour un
// acteur selon son rôle et son rattachement (région, branche, affectation).
type ScopeService struct{ DB *gorm.DB }

func NewScopeService(db *gorm.DB) *ScopeService { return &ScopeService{DB: db} }

func (s *ScopeService) baseQuery(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Model(&models.Formation{}).
		Preload("Ville.Region").Preload("Site").Preload("Branche").Preload("Animateur").
		Order("formations.id")
}

// VisibleFormations returns the formations the actor may observe.
// An unrecognized role kind fails loud; an empty result is a legitimate
// answer for a scoped role with no assignments, a typo'd role tag is not.
func (s *ScopeService) VisibleFormations(ctx context.Context, actor *gate.Actor) ([]models.Formation, error) {
	var formations []models.Formation
	q := s.baseQuery(ctx)

	switch actor.Kind {
	case models.RoleAdmin, models.RoleDrif:
		// unrestricted: admin tout court, drif organisation entière
	case models.RoleDr:
		if actor.RegionID == nil {
			return []models.Formation{}, nil
		}
		q = q.Joins("JOIN villes ON villes.id = formations.ville_id").
			Where("villes.region_id = ?", *actor.RegionID)
	case models.RoleCdc:
		if actor.BrancheID == nil {
			return []models.Formation{}, nil
		}
		q = q.Where("formations.branche_id = ?", *actor.BrancheID)
	case models.RoleAnimateur:
		q = q.Where("formations.animateur_id = ?", actor.UserID)
	case models.RoleStagiaire:
		// au plus une inscription active par stagiaire
		var p models.Participant
		err := s.DB.WithContext(ctx).Where("user_id = ?", actor.UserID).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && p.FormationID == nil) {
			return []models.Formation{}, nil
		}
		if err != nil {
			return nil, apperr.Storage(err)
		}
		q = q.Where("formations.id = ?", *p.FormationID)
	default:
		return nil, apperr.UnknownRole(string(actor.Kind))
	}

	if err := q.Find(&formations).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	return formations, nil
}

// ListByRegion is the director's report: formations whose city belongs to
// the region.
func (s *ScopeService) ListByRegion(ctx context.Context, regionID uint) ([]models.Formation, error) {
	var region models.Region
	err := s.DB.WithContext(ctx).Select("id").First(&region, regionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("region")
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}

	var formations []models.Formation
	err = s.baseQuery(ctx).
		Joins("JOIN villes ON villes.id = formations.ville_id").
		Where("villes.region_id = ?", regionID).
		Find(&formations).Error
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return formations, nil
}
