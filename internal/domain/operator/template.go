package operator

import (
	"fmt"
	"regexp"
	"strings"
)

// Placeholder names a transfer template must carry.
const (
	FieldDestination = "destination"
	FieldAmount      = "amount"
	FieldPIN         = "PIN"
)

var requiredFields = []string{FieldDestination, FieldAmount, FieldPIN}

// {name} or the historical %(name)d / %(name)s form
var placeholderRe = regexp.MustCompile(`\{(\w+)\}|%\((\w+)\)[ds]`)

type segment struct {
	literal string
	field   string
}

// Template is a parsed USSD transfer template.
type Template struct {
	raw      string
	segments []segment
}

// ParseTemplate parses raw and checks it carries exactly the destination,
// amount and PIN placeholders.
func ParseTemplate(raw string) (Template, error) {
	t := Template{raw: raw}
	seen := make(map[string]bool)
	last := 0
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(raw, -1) {
		if m[0] > last {
			t.segments = append(t.segments, segment{literal: raw[last:m[0]]})
		}
		name := ""
		if m[2] >= 0 {
			name = raw[m[2]:m[3]]
		} else {
			name = raw[m[4]:m[5]]
		}
		if !isRequiredField(name) {
			return Template{}, fmt.Errorf("unknown placeholder %q", name)
		}
		seen[name] = true
		t.segments = append(t.segments, segment{field: name})
		last = m[1]
	}
	if last < len(raw) {
		t.segments = append(t.segments, segment{literal: raw[last:]})
	}
	var missing []string
	for _, f := range requiredFields {
		if !seen[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return Template{}, fmt.Errorf("missing placeholders: %s", strings.Join(missing, ", "))
	}
	return t, nil
}

// MustParseTemplate is ParseTemplate for templates known at compile time.
func MustParseTemplate(raw string) Template {
	t, err := ParseTemplate(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// Render substitutes values by name. A field absent from values is reported
// through the returned name.
func (t Template) Render(values map[string]string) (string, string) {
	var b strings.Builder
	for _, s := range t.segments {
		if s.field == "" {
			b.WriteString(s.literal)
			continue
		}
		v, ok := values[s.field]
		if !ok {
			return "", s.field
		}
		b.WriteString(v)
	}
	return b.String(), ""
}

func (t Template) String() string { return t.raw }

func isRequiredField(name string) bool {
	for _, f := range requiredFields {
		if f == name {
			return true
		}
	}
	return false
}
