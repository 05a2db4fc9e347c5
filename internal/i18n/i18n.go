// Package i18n fournit les messages localisés de l'API. Français par défaut,
// anglais supporté ; tout code inconnu est renvoyé tel quel.
package i18n

import "strings"

const defaultLang = "fr"

var catalogs = map[string]map[string]string{
	"fr": {
		"required":                  "Requis",
		"unauthorized":              "Non authentifié",
		"forbidden":                 "Action non autorisée pour ce rôle",
		"invalid_json":              "Corps JSON invalide",
		"invalid_id":                "Identifiant invalide",
		"not_found":                 "Ressource introuvable",
		"unknown_role":              "Rôle inconnu",
		"validation_failed":         "Champs invalides",
		"missing_required_fields":   "Champs obligatoires manquants",
		"awaiting_dual_approval":    "En attente de la double validation (cdc et drif)",
		"already_validated":         "Formation déjà validée",
		"approval_requires_written": "La validation n'est possible qu'au statut rédigé",
		"cannot_revert_draft":       "Un brouillon ne peut pas être renvoyé en arrière",
		"invalid_revert_target":     "Statut cible de renvoi invalide",
		"not_an_approver":           "Ce rôle ne participe pas à la validation",
		"branch_mismatch":           "Formation hors de la branche du chef de centre",
		"update_requires_draft":     "Modification possible uniquement au statut brouillon",
		"storage_error":             "Erreur interne de stockage",
		"email_taken":               "Email déjà utilisé",
		"invalid_credentials":       "Identifiants invalides",
		"role_already_assigned":     "Rôle déjà attribué à cet utilisateur",
		"already_enrolled":          "Stagiaire déjà inscrit",
		"invalid_status":            "Statut invalide",
		"unknown_status":            "Statut inconnu",
		"region_mismatch":           "Région hors du périmètre du directeur régional",
		"branche_in_use":            "Branche encore référencée par des formations",
	},
	"en": {
		"required":                  "Required",
		"unauthorized":              "Not authenticated",
		"forbidden":                 "Action not allowed for this role",
		"invalid_json":              "Invalid JSON body",
		"invalid_id":                "Invalid identifier",
		"not_found":                 "Resource not found",
		"unknown_role":              "Unknown role",
		"validation_failed":         "Invalid fields",
		"missing_required_fields":   "Missing required fields",
		"awaiting_dual_approval":    "Awaiting dual approval (cdc and drif)",
		"already_validated":         "Formation already validated",
		"approval_requires_written": "Approval is only possible in written status",
		"cannot_revert_draft":       "A draft cannot be sent back",
		"invalid_revert_target":     "Invalid revert target status",
		"not_an_approver":           "This role does not take part in approval",
		"branch_mismatch":           "Formation outside the center chief's branch",
		"update_requires_draft":     "Updates are only possible in draft status",
		"storage_error":             "Internal storage error",
		"email_taken":               "Email already in use",
		"invalid_credentials":       "Invalid credentials",
		"role_already_assigned":     "Role already assigned to this user",
		"already_enrolled":          "Participant already enrolled",
		"invalid_status":            "Invalid status",
		"unknown_status":            "Unknown status",
		"region_mismatch":           "Region outside the regional director's scope",
		"branche_in_use":            "Branch still referenced by formations",
	},
}

// DetectLanguage picks a supported language from an Accept-Language header.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		lang := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		if i := strings.Index(lang, "-"); i > 0 {
			lang = lang[:i]
		}
		if _, ok := catalogs[lang]; ok {
			return lang
		}
	}
	return defaultLang
}

// T translates code for lang, falling back to French then to the code itself.
func T(lang, code string) string {
	if c, ok := catalogs[lang]; ok {
		if msg, ok := c[code]; ok {
			return msg
		}
	}
	if msg, ok := catalogs[defaultLang][code]; ok {
		return msg
	}
	return code
}
