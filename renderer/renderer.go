// Package renderer turns tracker results into markdown reports.
//
// Every report is a text/template main file assembled from partials, all
// embedded in the binary. The markdown is meant to be printed as is or styled
// for the terminal.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/tracker"
)

//go:embed *.md
var templates embed.FS

// RenderValuation renders the holdings report of a profile.
func RenderValuation(profile string, v tracker.Valuation) string {
	partials := map[string]string{
		"valuation_title":     "valuation_title.md",
		"valuation_positions": "valuation_positions.md",
		"valuation_totals":    "valuation_totals.md",
		"valuation_sectors":   "valuation_sectors.md",
		"valuation_caps":      "valuation_caps.md",
	}
	return renderTemplate("valuation", "valuation.md", partials, NewValuation(profile, v))
}

// RenderProfiles renders the list of profiles.
func RenderProfiles(p *Profiles) string {
	return renderTemplate("profiles", "profiles.md", nil, p)
}

// RenderBatch renders the outcome of a CSV import.
func RenderBatch(r tracker.BatchResult) string {
	return renderTemplate("batch", "batch.md", nil, NewBatch(r))
}

// RenderRefresh renders the outcome of a price refresh.
func RenderRefresh(r tracker.RefreshResult) string {
	return renderTemplate("refresh", "refresh.md", nil, NewRefresh(r))
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		// An empty file name is a valid case, resulting in an empty template.
		if file != "" {
			var readErr error
			content, readErr = fs.ReadFile(templates, file)
			if readErr != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, readErr)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}

// cell makes s safe to print inside a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
