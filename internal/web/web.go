// Package web embeds the dashboard's HTML templates.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"strings"

	"dashboard/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses every page and partial into one set. Pages are looked up
// by their define name, e.g. "students".
func Templates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(Funcs()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

func Funcs() template.FuncMap {
	return template.FuncMap{
		"eventLabel": func(t models.EventType) string { return t.Label() },
		"eventClass": eventClass,
		"add":        func(a, b int) int { return a + b },
		"percent":    percent,
		"lower":      strings.ToLower,
	}
}

var eventClasses = map[models.EventType]string{
	models.EventStudentEntrance: "badge-entrance",
	models.EventStudentExit:     "badge-exit",
	models.EventFighting:        "badge-danger",
	models.EventWeapon:          "badge-danger",
	models.EventSmoking:         "badge-warning",
	models.EventLyingMan:        "badge-warning",
}

func eventClass(t models.EventType) string {
	if class, ok := eventClasses[t]; ok {
		return class
	}
	return "badge-neutral"
}

// percent scales n against max for bar widths.
func percent(n, max int) int {
	if max <= 0 {
		return 0
	}
	return n * 100 / max
}
