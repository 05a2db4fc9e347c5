// Package workflow contient la machine à états d'une formation : fonctions
// pures sur un petit enregistrement, sans accès base. internal/services les
// applique dans une transaction.
package workflow

import (
	"time"

	"github.com/hzerradi/formatrack/internal/apperr"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusWritten   Status = "written"
	StatusValidated Status = "validated"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusWritten || s == StatusValidated
}

// next returns the forward successor of s, ok=false at the end of the path.
func next(s Status) (Status, bool) {
	switch s {
	case StatusDraft:
		return StatusWritten, true
	case StatusWritten:
		return StatusValidated, true
	}
	return s, false
}

// prev returns the legal reversion target of s, ok=false for draft.
func prev(s Status) (Status, bool) {
	switch s {
	case StatusValidated:
		return StatusWritten, true
	case StatusWritten:
		return StatusDraft, true
	}
	return s, false
}

// Role d'approbateur. Seuls cdc et drif signent le double accord.
type Role string

const (
	RoleCdc  Role = "cdc"
	RoleDrif Role = "drif"
)

// Approval porte la double validation et les marqueurs de renvoi par rôle.
type Approval struct {
	ByCdc          bool
	ByDrif         bool
	ReturnedByCdc  bool
	ReturnedByDrif bool
}

// Complete reports whether both sign-offs are present.
func (a Approval) Complete() bool { return a.ByCdc && a.ByDrif }

// State est l'état workflow complet d'une formation.
type State struct {
	Status   Status
	Approval Approval
}

// Fields are the formation fields required before draft -> written.
type Fields struct {
	Title       string
	Description string
	DateDebut   time.Time
	DateFin     time.Time
	AnimateurID uint
	VilleID     uint
	SiteID      uint
	BrancheID   uint
}

// Missing liste les champs obligatoires absents.
func (f Fields) Missing() map[string]string {
	m := map[string]string{}
	if f.Title == "" {
		m["title"] = "required"
	}
	if f.Description == "" {
		m["description"] = "required"
	}
	if f.DateDebut.IsZero() {
		m["date_debut"] = "required"
	}
	if f.DateFin.IsZero() {
		m["date_fin"] = "required"
	}
	if f.AnimateurID == 0 {
		m["animateur_id"] = "required"
	}
	if f.VilleID == 0 {
		m["ville_id"] = "required"
	}
	if f.SiteID == 0 {
		m["site_id"] = "required"
	}
	if f.BrancheID == 0 {
		m["branche_id"] = "required"
	}
	return m
}

// Promote advances st one step along draft -> written -> validated.
// draft -> written exige tous les champs obligatoires ; written -> validated
// exige la double validation. Promoting a validated formation is a no-op
// reported as a state error.
func Promote(st State, f Fields) (State, error) {
	switch st.Status {
	case StatusDraft:
		if missing := f.Missing(); len(missing) > 0 {
			return st, apperr.Validation("missing_required_fields", missing)
		}
		st.Status = StatusWritten
	case StatusWritten:
		if !st.Approval.Complete() {
			details := map[string]string{}
			if !st.Approval.ByCdc {
				details["cdc"] = "pending"
			}
			if !st.Approval.ByDrif {
				details["drif"] = "pending"
			}
			return st, apperr.Precondition("awaiting_dual_approval", details)
		}
		st.Status = StatusValidated
	case StatusValidated:
		return st, apperr.State("already_validated", nil)
	default:
		return st, apperr.State("unknown_status", map[string]string{"status": string(st.Status)})
	}
	// moving forward clears both returned markers
	st.Approval.ReturnedByCdc = false
	st.Approval.ReturnedByDrif = false
	return st, nil
}

// Approve sets the approval flag owned by role. Only meaningful while the
// formation is written; each role may only set its own flag.
func Approve(st State, role Role) (State, error) {
	if role != RoleCdc && role != RoleDrif {
		return st, apperr.Authorization("not_an_approver", string(role))
	}
	if st.Status != StatusWritten {
		return st, apperr.State("approval_requires_written", map[string]string{"status": string(st.Status)})
	}
	switch role {
	case RoleCdc:
		st.Approval.ByCdc = true
		st.Approval.ReturnedByCdc = false
	case RoleDrif:
		st.Approval.ByDrif = true
		st.Approval.ReturnedByDrif = false
	}
	return st, nil
}

// Revert sends the formation one step back (validated -> written or
// written -> draft). It clears only the acting role's own approval flag and
// records that role's returned marker; the counterpart's approval is kept.
func Revert(st State, role Role, target Status) (State, error) {
	if role != RoleCdc && role != RoleDrif {
		return st, apperr.Authorization("not_an_approver", string(role))
	}
	p, ok := prev(st.Status)
	if !ok {
		return st, apperr.State("cannot_revert_draft", nil)
	}
	if target != p {
		return st, apperr.State("invalid_revert_target", map[string]string{
			"status": string(st.Status), "target": string(target),
		})
	}
	st.Status = target
	switch role {
	case RoleCdc:
		st.Approval.ByCdc = false
		st.Approval.ReturnedByCdc = true
	case RoleDrif:
		st.Approval.ByDrif = false
		st.Approval.ReturnedByDrif = true
	}
	return st, nil
}
