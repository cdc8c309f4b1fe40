// Package prompts holds the instruction templates sent to the model for each
// analysis type.
package prompts

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/resume-analyzer/internal/apperr"
)

// Type identifies an analysis.
type Type string

const (
	Summary         Type = "summary"
	PercentageMatch Type = "percentage-match"
	Evaluation      Type = "evaluation"
)

// Template is an immutable instruction text.
type Template struct {
	Type Type
	Text string
}

//go:embed templates/*.md
var templateFS embed.FS

var files = map[Type]string{
	Summary:         "templates/summary.md",
	PercentageMatch: "templates/percentage_match.md",
	Evaluation:      "templates/evaluation.md",
}

var titles = map[Type]string{
	Summary:         "Resume Summary",
	PercentageMatch: "Percentage Match",
	Evaluation:      "Resume Evaluation",
}

var aliases = map[string]Type{
	"summary":          Summary,
	"summarize":        Summary,
	"improvements":     Summary,
	"percentage-match": PercentageMatch,
	"percentage_match": PercentageMatch,
	"percentage":       PercentageMatch,
	"match":            PercentageMatch,
	"ats":              PercentageMatch,
	"evaluation":       Evaluation,
	"evaluate":         Evaluation,
	"eval":             Evaluation,
}

// Catalog maps analysis types to templates. It is read-only after Load.
type Catalog struct {
	templates map[Type]Template
}

// Load reads all embedded templates.
func Load() (*Catalog, error) {
	c := &Catalog{templates: make(map[Type]Template, len(files))}
	for t, name := range files {
		data, err := templateFS.ReadFile(name)
		if err != nil {
			return nil, apperr.NewConfiguration(fmt.Sprintf("prompt template for %s", t), err)
		}

		text := strings.TrimSpace(string(data))
		if text == "" {
			return nil, apperr.NewConfiguration(fmt.Sprintf("prompt template for %s is empty", t), nil)
		}
		c.templates[t] = Template{Type: t, Text: text}
	}
	return c, nil
}

// MustLoad is Load for package-level initialization.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// TemplateFor returns the template for t.
func (c *Catalog) TemplateFor(t Type) (Template, error) {
	tmpl, ok := c.templates[t]
	if !ok {
		return Template{}, apperr.NewConfiguration(fmt.Sprintf("unknown analysis type %q", t), nil)
	}
	return tmpl, nil
}

// ParseType resolves user input, accepting a few aliases.
func ParseType(s string) (Type, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if t, ok := aliases[key]; ok {
		return t, nil
	}
	return "", apperr.NewConfiguration(
		fmt.Sprintf("unknown analysis type %q (expected one of %s)", s, strings.Join(Names(), ", ")), nil)
}

// Title is the display title of t, used in headings and file names.
func Title(t Type) string {
	if title, ok := titles[t]; ok {
		return title
	}
	return string(t)
}

// Names lists canonical type names sorted alphabetically.
func Names() []string {
	names := make([]string, 0, len(files))
	for t := range files {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}
