package envvar

import (
	"fmt"
	"regexp"
)

var (
	placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)
	namePattern        = regexp.MustCompile(`^\w+$`)
)

// Expand replaces each {{NAME}} in text with vars[NAME]. Unknown names are
// kept verbatim.
func Expand(text string, vars map[string]string) string {
	if len(vars) == 0 {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		if v, ok := vars[m[2:len(m)-2]]; ok {
			return v
		}
		return m
	})
}

// Names returns the placeholder names used in text, each once, in order of
// first use.
func Names(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Undefined returns the placeholder names in text that vars does not define.
func Undefined(text string, vars map[string]string) []string {
	var missing []string
	for _, name := range Names(text) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Validate checks a variable before it is saved.
func Validate(v *Variable) error {
	if v.BrokerID == 0 {
		return fmt.Errorf("%w: broker id is required", ErrInvalidVariable)
	}
	if !namePattern.MatchString(v.Name) {
		return fmt.Errorf("%w: name must be letters, digits or underscores", ErrInvalidVariable)
	}
	return nil
}
