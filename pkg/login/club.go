package login

import (
	"strings"
)

// Club is one membership option presented on the club selection page.
type Club struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"club_type,omitempty"`
	Role     string `json:"role"`
	FullText string `json:"full_text,omitempty"`
}

// Standardized club types used by the target site.
const (
	TypeConquistadores = "Conquistadores"
	TypeGuiasMayores   = "Guías Mayores"
	TypeAventureros    = "Aventureros"
)

const defaultRole = "Miembro"

// parseClubLabel splits a selection-page label into name, type and role.
// Labels follow a handful of shapes, e.g.
//
//	"Club Peniel, Club de Aventureros como Director"
//	"Club Leones de Judá Club de Conquistadores"
//	"Club Horeb como Miembro"
func parseClubLabel(fullText string) (name, clubType, role string) {
	name = fullText
	role = defaultRole

	text := fullText
	if idx := strings.LastIndex(text, " como "); idx >= 0 {
		if r := strings.TrimSpace(text[idx+len(" como "):]); r != "" {
			role = r
		}
		text = strings.TrimSpace(text[:idx])
	}

	switch {
	case strings.Contains(text, ", Club de "):
		parts := strings.SplitN(text, ", Club de ", 2)
		name = strings.TrimSpace(parts[0])
		if strings.HasPrefix(strings.ToLower(name), "club ") {
			name = strings.TrimSpace(name[5:])
		}
		clubType = detectClubType(parts[1])

	case strings.Contains(text, " Club de "):
		parts := strings.SplitN(text, " Club de ", 2)
		name = strings.TrimSpace(strings.Replace(parts[0], "Club ", "", 1))
		clubType = detectClubType(parts[1])

	default:
		clubType = detectClubType(text)
		name = strings.TrimSpace(strings.Replace(text, "Club ", "", 1))
	}

	return name, clubType, role
}

// detectClubType maps free text to one of the standardized club types, or
// empty when no type keyword appears.
func detectClubType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "aventurero"):
		return TypeAventureros
	case strings.Contains(lower, "conquistador"):
		return TypeConquistadores
	case strings.Contains(lower, "guia"), strings.Contains(lower, "guía"), strings.Contains(lower, "mayor"):
		return TypeGuiasMayores
	default:
		return ""
	}
}

// findClub fuzzy-matches a club by type and name. The strict pass matches
// both parsed fields; the lenient pass falls back to the raw label text.
func findClub(clubs []Club, clubType, clubName string) *Club {
	nameLower := strings.ToLower(clubName)
	typeLower := strings.ToLower(clubType)

	for i := range clubs {
		c := &clubs[i]
		if c.Type != "" &&
			strings.Contains(strings.ToLower(c.Type), typeLower) &&
			strings.Contains(strings.ToLower(c.Name), nameLower) {
			return c
		}
	}

	for i := range clubs {
		c := &clubs[i]
		fullText := c.FullText
		if fullText == "" {
			fullText = c.Name + " " + c.Type
		}
		lower := strings.ToLower(fullText)
		if strings.Contains(lower, typeLower) && strings.Contains(lower, nameLower) {
			return c
		}
	}

	return nil
}
