package models

import "time"

// User & rôles
type User struct {
	ID        uint             `gorm:"primaryKey"`
	Email     string           `gorm:"unique;not null;index"`
	Password  string           `gorm:"not null" json:"-"` // hashé (bcrypt)
	Nom       string           `gorm:"index"`
	Prenom    string           `gorm:"index"`
	Roles     []RoleAssignment `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleKind identifie une capacité de rôle.
type RoleKind string

const (
	RoleAdmin     RoleKind = "admin"
	RoleDrif      RoleKind = "drif"      // coordinateur, validation organisation
	RoleDr        RoleKind = "dr"        // directeur régional, lecture scopée région
	RoleCdc       RoleKind = "cdc"       // chef de centre, validation par branche
	RoleAnimateur RoleKind = "animateur" // animateur de formation
	RoleStagiaire RoleKind = "stagiaire" // participant
)

// Known reports whether k is one of the recognized role kinds.
func (k RoleKind) Known() bool {
	switch k {
	case RoleAdmin, RoleDrif, RoleDr, RoleCdc, RoleAnimateur, RoleStagiaire:
		return true
	}
	return false
}

// RoleAssignment attache une capacité de rôle typée à un utilisateur.
// Un seul assignment par (user, kind), garanti par l'index composite unique.
// Le scope dépend du rôle : dr -> RegionID, cdc -> BrancheID.
type RoleAssignment struct {
	ID        uint     `gorm:"primaryKey"`
	UserID    uint     `gorm:"not null;index:idx_user_kind,unique,priority:1"`
	Kind      RoleKind `gorm:"size:20;not null;index:idx_user_kind,unique,priority:2"`
	RegionID  *uint    // scope dr
	Region    *Region  `gorm:"foreignKey:RegionID"`
	BrancheID *uint    // scope cdc
	Branche   *Branche `gorm:"foreignKey:BrancheID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
