package docextract

import (
	"strings"
)

// JSDoc is a parsed `/** ... */` block.
type JSDoc struct {
	Description string
	Tags        map[string][]string
	Params      []Parameter
	Returns     *Returns
	Examples    []string
}

// Documentation returns the description followed by every example, each in
// a fenced code block.
func (d JSDoc) Documentation() string {
	parts := []string{}
	if d.Description != "" {
		parts = append(parts, d.Description)
	}
	for _, ex := range d.Examples {
		if strings.HasPrefix(ex, "```") {
			parts = append(parts, ex)
		} else {
			parts = append(parts, "```typescript\n"+ex+"\n```")
		}
	}
	return strings.Join(parts, "\n\n")
}

// UUID returns the @uuid tag or a uuid assignment in the description. A
// tag whose value is not a 36-character UUID is ignored.
func (d JSDoc) UUID() string {
	for _, v := range d.Tags["uuid"] {
		if f := strings.Fields(v); len(f) > 0 && uuidValue.MatchString(f[0]) {
			return f[0]
		}
	}
	return FindUUID(d.Description)
}

// IsJSDoc reports whether a comment is a `/** */` block.
func IsJSDoc(comment string) bool {
	return strings.HasPrefix(comment, "/**") && !strings.HasPrefix(comment, "/**/")
}

type rawTag struct {
	name  string
	lines []string
}

// ParseJSDoc parses a block comment, with or without its delimiters.
func ParseJSDoc(comment string) JSDoc {
	body := strings.TrimSpace(comment)
	body = strings.TrimPrefix(body, "/**")
	body = strings.TrimSuffix(body, "*/")

	var desc []string
	var tags []*rawTag
	for _, line := range strings.Split(body, "\n") {
		line = stripCommentLine(line)
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "@") {
			name, rest, _ := strings.Cut(trimmed[1:], " ")
			tags = append(tags, &rawTag{name: name, lines: []string{strings.TrimSpace(rest)}})
			continue
		}
		if len(tags) > 0 {
			cur := tags[len(tags)-1]
			cur.lines = append(cur.lines, line)
			continue
		}
		desc = append(desc, strings.TrimSpace(line))
	}

	doc := JSDoc{
		Description: strings.TrimSpace(strings.Join(desc, "\n")),
		Tags:        map[string][]string{},
	}
	for _, t := range tags {
		doc.addTag(t.name, joinTagLines(t.lines))
	}
	return doc
}

// stripCommentLine removes leading whitespace, the `*` gutter and one space.
func stripCommentLine(line string) string {
	line = strings.TrimRight(line, "\r")
	s := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(s, "*") {
		s = s[1:]
		s = strings.TrimPrefix(s, " ")
		return s
	}
	return s
}

func joinTagLines(lines []string) string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func (d *JSDoc) addTag(name, text string) {
	switch name {
	case "param", "arg", "argument":
		typ, rest := splitType(text)
		pname, desc := splitParamName(rest)
		d.Tags["param"] = append(d.Tags["param"], desc)
		d.Params = append(d.Params, Parameter{Name: pname, Type: typ, Description: desc})
	case "returns", "return":
		typ, desc := splitType(text)
		d.Tags["returns"] = append(d.Tags["returns"], desc)
		d.Returns = &Returns{Type: typ, Description: desc}
	case "throws", "throw", "exception":
		_, desc := splitType(text)
		d.Tags["throws"] = append(d.Tags["throws"], desc)
	case "example":
		d.Tags["example"] = append(d.Tags["example"], text)
		d.Examples = append(d.Examples, text)
	default:
		d.Tags[name] = append(d.Tags[name], strings.TrimSpace(text))
	}
}

// splitType splits a leading `{Type}` off text.
func splitType(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return "", text
	}
	depth := 0
	for i, r := range text {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(text[1:i]), strings.TrimSpace(text[i+1:])
			}
		}
	}
	return "", text
}

// splitParamName splits `name - description`, `[name=default] description`
// or `name description`.
func splitParamName(text string) (string, string) {
	text = strings.TrimSpace(text)
	var name string
	if strings.HasPrefix(text, "[") {
		end := strings.IndexByte(text, ']')
		if end < 0 {
			return text, ""
		}
		name, _, _ = strings.Cut(text[1:end], "=")
		text = text[end+1:]
	} else {
		var rest string
		name, rest, _ = strings.Cut(text, " ")
		text = rest
	}
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "- ")
	return strings.TrimSpace(name), strings.TrimSpace(text)
}
