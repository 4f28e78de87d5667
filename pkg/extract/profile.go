package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ramosmx/clubpilot/pkg/browser"
)

// profileFieldLabels maps the profile page's Spanish field labels to
// payload keys.
var profileFieldLabels = map[string]string{
	"Número de cuenta":   "account_number",
	"Usuario":            "username",
	"Nombre completo":    "full_name",
	"Género":             "gender",
	"Cumpleaños":         "birthday",
	"Correo electrónico": "email",
	"Teléfono":           "phone",
	"Dirección":          "address",
	"Mi Presentación":    "bio",
	"Twitter":            "twitter",
	"Facebook":           "facebook",
	"Instagram":          "instagram",
}

// The page renders this hint in place of unset fields.
const profilePlaceholder = "Haz click en el icono"

var profileIgnorePhrases = []string{"Estos datos", "Para cambiar", "Guardar", "Cancelar"}

// ProfileExtractor pulls the member's profile off /mi-perfil: name,
// contact details and social links.
type ProfileExtractor struct{}

// NewProfileExtractor returns the profile extractor.
func NewProfileExtractor() *ProfileExtractor { return &ProfileExtractor{} }

func (e *ProfileExtractor) Descriptor() Descriptor {
	return Descriptor{
		Name:               "profile",
		Description:        "User profile: name, contact details and social links",
		RequiresNavigation: true,
	}
}

func (e *ProfileExtractor) Extract(ctx context.Context, handle browser.Handle, baseURL string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	profileURL := baseURL + "/mi-perfil"
	if err := handle.Navigate(profileURL, browser.NavigateOptions{WaitUntil: "networkidle"}); err != nil {
		// networkidle can stall on pages with long-polling widgets;
		// settle for a parsed DOM.
		if err := handle.Navigate(profileURL, browser.NavigateOptions{WaitUntil: "domcontentloaded"}); err != nil {
			return nil, fmt.Errorf("failed to open profile page: %w", err)
		}
	}
	if err := handle.WaitFor("h2", browser.WaitOptions{}); err != nil {
		return nil, fmt.Errorf("profile page did not render: %w", err)
	}

	content, err := handle.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read profile page: %w", err)
	}
	doc, _, err := parsePage(content)
	if err != nil {
		return nil, err
	}
	return parseProfile(doc), nil
}

func parseProfile(doc *goquery.Document) map[string]any {
	data := map[string]any{"username": "unknown"}

	if name := collapseSpace(doc.Find("h2").First().Text()); name != "" {
		data["full_name"] = name
	}
	if src, ok := doc.Find("img.profile-image, img.avatar, .profile-photo img").First().Attr("src"); ok {
		data["avatar_url"] = src
	}
	for key, value := range profileFields(doc) {
		data[key] = value
	}
	splitBirthday(data)
	return data
}

// profileFields scans the page with several layout strategies; the site
// has shuffled between tables, lists and definition lists across
// redesigns. First hit per field wins.
func profileFields(doc *goquery.Document) map[string]string {
	fields := make(map[string]string)

	set := func(label, value string) {
		key, ok := profileFieldLabels[collapseSpace(label)]
		if !ok || fields[key] != "" {
			return
		}
		value = collapseSpace(value)
		if ignoredProfileValue(value) {
			return
		}
		fields[key] = value
	}

	// Label/value table rows.
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() >= 2 {
			set(cells.Eq(0).Text(), cells.Eq(1).Text())
		}
	})

	// List items with a bold label prefix.
	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		label := collapseSpace(li.Find("strong, b, .font-bold, .font-weight-bold").First().Text())
		if label == "" {
			return
		}
		full := collapseSpace(li.Text())
		idx := strings.Index(full, label)
		if idx < 0 {
			return
		}
		set(label, strings.TrimLeft(full[idx+len(label):], ": "))
	})

	// Definition lists.
	doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		dts := dl.Find("dt")
		dds := dl.Find("dd")
		for i := 0; i < dts.Length() && i < dds.Length(); i++ {
			set(dts.Eq(i).Text(), dds.Eq(i).Text())
		}
	})

	// Value nodes preceded by a label sibling.
	doc.Find("span, div.value, p.value").Each(func(_ int, s *goquery.Selection) {
		if label := collapseSpace(s.Prev().Text()); label != "" {
			set(label, s.Text())
		}
	})

	return fields
}

func ignoredProfileValue(value string) bool {
	if value == "" || strings.Contains(value, profilePlaceholder) {
		return true
	}
	for _, phrase := range profileIgnorePhrases {
		if strings.Contains(value, phrase) {
			return true
		}
	}
	// A value that still contains a field label is a mis-parsed container.
	for label := range profileFieldLabels {
		if strings.Contains(value, label) {
			return true
		}
	}
	return false
}

// splitBirthday splits the "2 Ene 2014 - 12 años" rendering into the date
// and a numeric age.
func splitBirthday(data map[string]any) {
	birthday, ok := data["birthday"].(string)
	if !ok || !strings.Contains(birthday, " - ") {
		return
	}
	parts := strings.SplitN(birthday, " - ", 2)
	data["birthday"] = strings.TrimSpace(parts[0])
	ageStr := strings.TrimSpace(strings.ReplaceAll(parts[1], "años", ""))
	if age, err := strconv.ParseFloat(ageStr, 64); err == nil {
		data["age"] = age
	}
}
