// Package template expands {{ Name }} placeholders in URI templates such as
// an OAuth authorization URI.
package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// placeholder matches {{ Name }}, {{Name}} and {{ .Name }}.
var placeholder = regexp.MustCompile(`\{\{\s*\.?([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Engine expands {{ Name }} placeholders in URI templates.
type Engine struct {
	pattern *regexp.Regexp
}

// New creates a new template engine
func New() *Engine {
	return &Engine{pattern: placeholder}
}

// Expand replaces every variable in tpl with its value from vars.
// Values are passed through escape when it is non-nil. Unknown variables
// are reported together in a single error.
func (e *Engine) Expand(tpl string, vars map[string]string, escape func(string) string) (string, error) {
	var missing []string

	result := e.pattern.ReplaceAllStringFunc(tpl, func(match string) string {
		name := e.pattern.FindStringSubmatch(match)[1]
		value, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		if escape != nil {
			return escape(value)
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}
	return result, nil
}

// Variables returns the sorted, distinct variable names in tpl.
func (e *Engine) Variables(tpl string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range e.pattern.FindAllStringSubmatch(tpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	sort.Strings(names)
	return names
}

// Check reports the variables of tpl that are not in known.
func (e *Engine) Check(tpl string, known ...string) error {
	allowed := make(map[string]bool, len(known))
	for _, k := range known {
		allowed[k] = true
	}

	var unknown []string
	for _, name := range e.Variables(tpl) {
		if !allowed[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown template variables: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Merge merges variable sets; later sets override earlier ones.
func Merge(sets ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, set := range sets {
		for k, v := range set {
			result[k] = v
		}
	}
	return result
}
