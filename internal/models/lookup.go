package models

import "time"

// Référentiel géographique : Region -> Ville -> {Ista, Site}
type Region struct {
	ID        uint    `gorm:"primaryKey"`
	Nom       string  `gorm:"unique;not null"`
	Villes    []Ville `gorm:"foreignKey:RegionID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Ville struct {
	ID        uint   `gorm:"primaryKey"`
	Nom       string `gorm:"not null;index"`
	RegionID  uint   `gorm:"not null;index"`
	Region    Region `gorm:"foreignKey:RegionID"`
	Istas     []Ista `gorm:"foreignKey:VilleID;constraint:OnDelete:CASCADE"`
	Sites     []Site `gorm:"foreignKey:VilleID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Site d'accueil d'une formation (salle, complexe, etc.)
type Site struct {
	ID        uint   `gorm:"primaryKey"`
	Nom       string `gorm:"not null;index"`
	VilleID   uint   `gorm:"not null;index"`
	Ville     Ville  `gorm:"foreignKey:VilleID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ista : centre de formation physique, clé de regroupement des participants.
type Ista struct {
	ID        uint   `gorm:"primaryKey"`
	Nom       string `gorm:"not null;index"`
	VilleID   uint   `gorm:"not null;index"`
	Ville     Ville  `gorm:"foreignKey:VilleID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Référentiel pédagogique : Branche -> Filiere
type Branche struct {
	ID        uint      `gorm:"primaryKey"`
	Nom       string    `gorm:"unique;not null"`
	Filieres  []Filiere `gorm:"foreignKey:BrancheID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Filiere struct {
	ID        uint    `gorm:"primaryKey"`
	Nom       string  `gorm:"not null;index"`
	BrancheID uint    `gorm:"not null;index"`
	Branche   Branche `gorm:"foreignKey:BrancheID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
