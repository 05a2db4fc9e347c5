package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hzerradi/formatrack/internal/apperr"
	"github.com/hzerradi/formatrack/internal/models"
)

// CascadeService applique les règles de suppression en cascade du modèle :
// supprimer un animateur/une ville/un site supprime ses formations,
// supprimer un user/un centre supprime ses inscriptions. Les cascades sont
// explicites (transaction) pour rester identiques sous sqlite et postgres.
type CascadeService struct{ DB *gorm.DB }

func NewCascadeService(db *gorm.DB) *CascadeService { return &CascadeService{DB: db} }

func ensureExists[T any](tx *gorm.DB, id uint, entity string) error {
	var v T
	err := tx.Select("id").First(&v, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity)
	}
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Storage(err)
}

// deleteFormations removes formations matched by cond, unassigning their
// participants first (l'inscription survit à la formation).
func deleteFormations(tx *gorm.DB, cond string, args ...any) error {
	var ids []uint
	if err := tx.Model(&models.Formation{}).Where(cond, args...).Pluck("id", &ids).Error; err != nil {
		return wrapStorage(err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Model(&models.Participant{}).Where("formation_id IN ?", ids).Update("formation_id", nil).Error; err != nil {
		return wrapStorage(err)
	}
	return wrapStorage(tx.Delete(&models.Formation{}, ids).Error)
}

func (s *CascadeService) DeleteFormation(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists[models.Formation](tx, id, "formation"); err != nil {
			return err
		}
		return deleteFormations(tx, "id = ?", id)
	})
}

func (s *CascadeService) DeleteParticipant(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists[models.Participant](tx, id, "participant"); err != nil {
			return err
		}
		return wrapStorage(tx.Delete(&models.Participant{}, id).Error)
	})
}

// DeleteUser removes the user, their role assignments, their enrollment and
// the formations they facilitate.
func (s *CascadeService) DeleteUser(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists[models.User](tx, id, "user"); err != nil {
			return err
		}
		if err := deleteFormations(tx, "animateur_id = ?", id); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Participant{}).Error; err != nil {
			return wrapStorage(err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.RoleAssignment{}).Error; err != nil {
			return wrapStorage(err)
		}
		return wrapStorage(tx.Delete(&models.User{}, id).Error)
	})
}

func (s *CascadeService) DeleteIsta(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists[models.Ista](tx, id, "ista"); err != nil {
			return err
		}
		if err := tx.Where("ista_id = ?", id).Delete(&models.Participant{}).Error; err != nil {
			return wrapStorage(err)
		}
		return wrapStorage(tx.Delete(&models.Ista{}, id).Error)
	})
}

func (s *CascadeService) DeleteSite(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists[models.Site](tx, id, "site"); err != nil {
			return err
		}
		if err := deleteFormations(tx, "site_id = ?", id); err != nil {
			return err
		}
		return wrapStorage(tx.Delete(&models.Site{}, id).Error)
	})
}

func deleteVille(tx *gorm.DB, id uint) error {
	if err := deleteFormations(tx, "ville_id = ?", id); err != nil {
		return err
	}
	var istaIDs []uint
	if err := tx.Model(&models.Ista{}).Where("ville_id = ?", id).Pluck("id", &istaIDs).Error; err != nil {
		return wrapStorage(err)
	}
	if len(istaIDs) > 0 {
		if err := tx.Where("ista_id IN ?", istaIDs).Delete(&models.Participant{}).Error; err != nil {
			return wrapStorage(err)
		}
		if err := tx.Delete(&models.Ista{}, istaIDs).Error; err != nil {
			return wrapStorage(err)
		}
	}
	if err := tx.Where("ville_id = ?", id).Delete(&models.Site{}).Error; err != nil {
		return wrapStorage(err)
	}
	return wrapStorage(tx.Delete(&models.Ville{}, id).Error)
}

func (s *CascadeService) DeleteVille(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists[models.Ville](tx, id, "ville"); err != nil {
			return err
		}
		return deleteVille(tx, id)
	})
}

func (s *CascadeService) DeleteRegion(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists[models.Region](tx, id, "region"); err != nil {
			return err
		}
		var villeIDs []uint
		if err := tx.Model(&models.Ville{}).Where("region_id = ?", id).Pluck("id", &villeIDs).Error; err != nil {
			return wrapStorage(err)
		}
		for _, vid := range villeIDs {
			if err := deleteVille(tx, vid); err != nil {
				return err
			}
		}
		// les dr rattachés perdent leur périmètre, pas leur rôle
		if err := tx.Model(&models.RoleAssignment{}).Where("region_id = ?", id).Update("region_id", nil).Error; err != nil {
			return wrapStorage(err)
		}
		return wrapStorage(tx.Delete(&models.Region{}, id).Error)
	})
}

func (s *CascadeService) DeleteFiliere(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists[models.Filiere](tx, id, "filiere"); err != nil {
			return err
		}
		if err := tx.Model(&models.Participant{}).Where("filiere_id = ?", id).Update("filiere_id", nil).Error; err != nil {
			return wrapStorage(err)
		}
		return wrapStorage(tx.Delete(&models.Filiere{}, id).Error)
	})
}

// DeleteBranche refuse de supprimer une branche encore référencée par des
// formations : la formation n'est en cascade que sur animateur/ville/site.
func (s *CascadeService) DeleteBranche(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists[models.Branche](tx, id, "branche"); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.Formation{}).Where("branche_id = ?", id).Count(&count).Error; err != nil {
			return wrapStorage(err)
		}
		if count > 0 {
			return apperr.Precondition("branche_in_use", map[string]string{"formations": "present"})
		}
		var filiereIDs []uint
		if err := tx.Model(&models.Filiere{}).Where("branche_id = ?", id).Pluck("id", &filiereIDs).Error; err != nil {
			return wrapStorage(err)
		}
		if len(filiereIDs) > 0 {
			if err := tx.Model(&models.Participant{}).Where("filiere_id IN ?", filiereIDs).Update("filiere_id", nil).Error; err != nil {
				return wrapStorage(err)
			}
			if err := tx.Delete(&models.Filiere{}, filiereIDs).Error; err != nil {
				return wrapStorage(err)
			}
		}
		if err := tx.Model(&models.RoleAssignment{}).Where("branche_id = ?", id).Update("branche_id", nil).Error; err != nil {
			return wrapStorage(err)
		}
		return wrapStorage(tx.Delete(&models.Branche{}, id).Error)
	})
}
