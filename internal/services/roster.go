package services

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/hzerradi/formatrack/internal/apperr"
	"github.com/hzerradi/formatrack/internal/models"
)

// RosterService regroupe les participants d'une formation par centre (Ista)
// pour l'affichage et l'export.
type RosterService struct{ DB *gorm.DB }

func NewRosterService(db *gorm.DB) *RosterService { return &RosterService{DB: db} }

type RosterEntry struct {
	User    models.User     `json:"user"`
	Filiere *models.Filiere `json:"filiere,omitempty"`
}

type RosterGroup struct {
	Ista         models.Ista   `json:"ista"`
	Participants []RosterEntry `json:"participants"`
}

// ParticipantsByCenter returns the formation's participants grouped by
// training center, centers ordered by name, participants by name within each
// group. A formation without participants yields an empty slice, not an error.
func (s *RosterService) ParticipantsByCenter(ctx context.Context, formationID uint) ([]RosterGroup, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Formation{}).Where("id = ?", formationID).Count(&count).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	if count == 0 {
		return nil, apperr.NotFound("formation")
	}

	var participants []models.Participant
	err := s.DB.WithContext(ctx).
		Preload("User").Preload("Ista").Preload("Filiere").
		Where("formation_id = ?", formationID).
		Find(&participants).Error
	if err != nil {
		return nil, apperr.Storage(err)
	}

	byIsta := map[uint]*RosterGroup{}
	for _, p := range participants {
		g, ok := byIsta[p.IstaID]
		if !ok {
			g = &RosterGroup{Ista: p.Ista}
			byIsta[p.IstaID] = g
		}
		g.Participants = append(g.Participants, RosterEntry{User: p.User, Filiere: p.Filiere})
	}

	groups := make([]RosterGroup, 0, len(byIsta))
	for _, g := range byIsta {
		sort.Slice(g.Participants, func(i, j int) bool {
			a, b := g.Participants[i].User, g.Participants[j].User
			if a.Nom != b.Nom {
				return a.Nom < b.Nom
			}
			return a.Prenom < b.Prenom
		})
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Ista.Nom != groups[j].Ista.Nom {
			return groups[i].Ista.Nom < groups[j].Ista.Nom
		}
		return groups[i].Ista.ID < groups[j].Ista.ID
	})
	return groups, nil
}
