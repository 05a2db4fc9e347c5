package models

import "time"

// Formation : session de formation planifiée.
// Status ∈ draft, written, validated. Les transitions sont gérées par
// internal/workflow, jamais modifiées directement par les handlers.
// ApprovedBy*/ReturnedBy* portent la double validation chef de centre (cdc)
// et coordinateur (drif).
type Formation struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"not null;index"`
	Description string
	DateDebut   time.Time
	DateFin     time.Time
	Status      string `gorm:"size:12;not null;default:'draft';index"` // draft, written, validated

	ApprovedByCdc  bool
	ApprovedByDrif bool
	ReturnedByCdc  bool // renvoyée en arrière par le cdc
	ReturnedByDrif bool // renvoyée en arrière par le drif

	AnimateurID uint    `gorm:"not null;index"` // User animateur
	Animateur   User    `gorm:"foreignKey:AnimateurID;constraint:OnDelete:CASCADE"`
	VilleID     uint    `gorm:"not null;index"`
	Ville       Ville   `gorm:"foreignKey:VilleID;constraint:OnDelete:CASCADE"`
	SiteID      uint    `gorm:"not null;index"`
	Site        Site    `gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE"`
	BrancheID   uint    `gorm:"not null;index"`
	Branche     Branche `gorm:"foreignKey:BrancheID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Participant : inscription d'un stagiaire dans un centre, avec affectation
// optionnelle à une formation et à une filière. Un user n'a qu'une
// inscription active à la fois (UserID unique).
type Participant struct {
	ID          uint       `gorm:"primaryKey"`
	UserID      uint       `gorm:"not null;uniqueIndex"`
	User        User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	IstaID      uint       `gorm:"not null;index"`
	Ista        Ista       `gorm:"foreignKey:IstaID;constraint:OnDelete:CASCADE"`
	FormationID *uint      `gorm:"index"`
	Formation   *Formation `gorm:"foreignKey:FormationID;constraint:OnDelete:SET NULL"`
	FiliereID   *uint
	Filiere     *Filiere `gorm:"foreignKey:FiliereID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
