// Package render turns build-definition templates into concrete build
// configs. Rendering is a pure function from template text and a
// substitution map to rendered text; it never touches the file system, so
// callers decide when and where the result is written.
package render

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderRe matches ${NAME} placeholders in a template.
var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Render substitutes every ${NAME} placeholder in the template with its
// value from subs. A placeholder with no matching substitution is an error;
// silently leaving it in place would produce a config that fails much later,
// at build submission time.
func Render(template string, subs map[string]string) (string, error) {
	var missing []string
	rendered := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		val, ok := subs[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return val
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("template references undefined substitutions: %s", strings.Join(missing, ", "))
	}
	return rendered, nil
}
