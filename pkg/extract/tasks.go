package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ramosmx/clubpilot/pkg/browser"
)

var percentRE = regexp.MustCompile(`(\d+)\s*%`)

// TasksExtractor pulls active classes and their completion progress off
// /miembro/cursos-activos.
type TasksExtractor struct{}

// NewTasksExtractor returns the tasks extractor.
func NewTasksExtractor() *TasksExtractor { return &TasksExtractor{} }

func (e *TasksExtractor) Descriptor() Descriptor {
	return Descriptor{
		Name:               "tasks",
		Description:        "Active classes and task completion progress",
		RequiresNavigation: true,
	}
}

func (e *TasksExtractor) Extract(ctx context.Context, handle browser.Handle, baseURL string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := handle.Navigate(baseURL+"/miembro/cursos-activos", browser.NavigateOptions{WaitUntil: "networkidle"}); err != nil {
		return nil, fmt.Errorf("failed to open active classes page: %w", err)
	}
	if err := handle.WaitFor("h2, h3", browser.WaitOptions{}); err != nil {
		return nil, fmt.Errorf("active classes page did not render: %w", err)
	}

	content, err := handle.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read active classes page: %w", err)
	}
	doc, _, err := parsePage(content)
	if err != nil {
		return nil, err
	}

	classes := parseActiveClasses(doc)

	ready := 0
	total := 0
	for _, c := range classes {
		pct, _ := c["completion_percentage"].(int)
		total += pct
		if isReady, _ := c["is_ready_for_investiture"].(bool); isReady {
			ready++
		}
	}

	payload := map[string]any{
		"active_classes":              classes,
		"total_classes":               len(classes),
		"ready_for_investiture_count": ready,
		"overall_completion":          nil,
	}
	if len(classes) > 0 {
		payload["overall_completion"] = float64(total) / float64(len(classes))
	}
	return payload, nil
}

// parseActiveClasses walks the class headings; each heading's enclosing
// card carries the progress percentage, status text and badge image.
func parseActiveClasses(doc *goquery.Document) []map[string]any {
	var classes []map[string]any

	doc.Find("h3").Each(func(_ int, heading *goquery.Selection) {
		name := collapseSpace(heading.Text())
		// "Cambiar de clase" and "Investidura" headings are chrome, not
		// classes.
		if name == "" || strings.Contains(name, "Cambiar") || strings.Contains(name, "Investidura") {
			return
		}
		container := heading.Closest("div, section, article")
		if container.Length() == 0 {
			return
		}

		info := map[string]any{
			"name":                     name,
			"completion_percentage":    0,
			"status":                   "Sin iniciar",
			"is_ready_for_investiture": false,
		}

		text := container.Text()
		if m := percentRE.FindStringSubmatch(text); m != nil {
			if pct, err := strconv.Atoi(m[1]); err == nil {
				info["completion_percentage"] = pct
			}
		}

		pct, _ := info["completion_percentage"].(int)
		switch {
		case strings.Contains(text, "autorizado") || strings.Contains(text, "Autorizado") || strings.Contains(text, "investir"):
			info["is_ready_for_investiture"] = true
			info["status"] = "Autorizado para investir"
		case pct >= 100:
			info["status"] = "Completado"
		case pct > 0:
			info["status"] = "En progreso"
		}

		if src, ok := container.Find("img").First().Attr("src"); ok {
			info["image_url"] = src
		}

		classes = append(classes, info)
	})

	return classes
}
