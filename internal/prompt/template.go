// Package prompt renders system-prompt templates against per-run variables.
// It lives in internal to avoid committing to public API stability
// prematurely.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Render replaces template variables in text using Go's text/template
// package. Prompts without template markers are returned unchanged.
func Render(text string, vars map[string]string) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := template.New("prompt").Funcs(template.FuncMap{
		"default": func(defaultVal, val string) string {
			if val == "" {
				return defaultVal
			}
			return val
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render prompt template: %w", err)
	}

	return buf.String(), nil
}

// RenderOrRaw renders text and falls back to the raw text when the template
// is malformed. A broken template never blocks a run.
func RenderOrRaw(text string, vars map[string]string) string {
	out, err := Render(text, vars)
	if err != nil {
		return text
	}
	return out
}
