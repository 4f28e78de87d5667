package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ramosmx/clubpilot/pkg/browser"
)

// SpecialtiesExtractor pulls earned and in-progress specialties off
// /miembro/especialidades.
type SpecialtiesExtractor struct{}

// NewSpecialtiesExtractor returns the specialties extractor.
func NewSpecialtiesExtractor() *SpecialtiesExtractor { return &SpecialtiesExtractor{} }

func (e *SpecialtiesExtractor) Descriptor() Descriptor {
	return Descriptor{
		Name:               "specialties",
		Description:        "Earned and in-progress specialties with categories",
		RequiresNavigation: true,
	}
}

func (e *SpecialtiesExtractor) Extract(ctx context.Context, handle browser.Handle, baseURL string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := handle.Navigate(baseURL+"/miembro/especialidades", browser.NavigateOptions{WaitUntil: "networkidle"}); err != nil {
		return nil, fmt.Errorf("failed to open specialties page: %w", err)
	}
	if err := handle.WaitFor("h2, h3, .especialidad, .specialty-item", browser.WaitOptions{}); err != nil {
		return nil, fmt.Errorf("specialties page did not render: %w", err)
	}

	content, err := handle.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read specialties page: %w", err)
	}
	doc, _, err := parsePage(content)
	if err != nil {
		return nil, err
	}

	specialties := parseSpecialties(doc)

	completed := 0
	categories := make(map[string]int)
	for _, s := range specialties {
		if done, _ := s["completed"].(bool); done {
			completed++
		}
		if cat, _ := s["category"].(string); cat != "" {
			categories[cat]++
		}
	}

	return map[string]any{
		"specialties":       specialties,
		"total_specialties": len(specialties),
		"completed_count":   completed,
		"categories":        categories,
	}, nil
}

// parseSpecialties walks the specialty cards. Each card carries the
// specialty name, its category badge and a progress percentage.
func parseSpecialties(doc *goquery.Document) []map[string]any {
	var specialties []map[string]any

	doc.Find(".especialidad, .specialty-item, .card").Each(func(_ int, card *goquery.Selection) {
		name := collapseSpace(card.Find("h3, h4, .title, .nombre").First().Text())
		if name == "" {
			return
		}

		info := map[string]any{
			"name":                  name,
			"completion_percentage": 0,
			"completed":             false,
		}

		if cat := collapseSpace(card.Find(".categoria, .category, .badge").First().Text()); cat != "" {
			info["category"] = cat
		}

		text := card.Text()
		if m := percentRE.FindStringSubmatch(text); m != nil {
			if pct, err := strconv.Atoi(m[1]); err == nil {
				info["completion_percentage"] = pct
			}
		}
		pct, _ := info["completion_percentage"].(int)
		if pct >= 100 || strings.Contains(text, "Completada") || strings.Contains(text, "Aprobada") {
			info["completed"] = true
		}

		if src, ok := card.Find("img").First().Attr("src"); ok {
			info["image_url"] = src
		}

		specialties = append(specialties, info)
	})

	return specialties
}
