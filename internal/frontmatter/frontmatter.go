// Package frontmatter separates a leading metadata block from a document body.
//
// Two block styles are recognised at the very start of a document:
//
//	---            +++
//	yaml: here     toml = "here"
//	---            +++
//
// Extraction never fails: a missing closing delimiter or a block that does not
// decode to a mapping leaves the whole input as body with empty attributes.
package frontmatter

import (
	"bytes"
	"fmt"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies the syntax of a frontmatter block.
type Format int

// Block formats.
const (
	None Format = iota
	YAML
	TOML
)

// Attributes are the decoded frontmatter fields.
type Attributes map[string]any

// Split locates the frontmatter block. ok is false when the document does
// not open with a complete block.
func Split(raw []byte) (block, body []byte, format Format, ok bool) {
	content := bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	var delim string
	switch {
	case hasDelimLine(content, "---"):
		delim, format = "---", YAML
	case hasDelimLine(content, "+++"):
		delim, format = "+++", TOML
	default:
		return nil, raw, None, false
	}

	start := lineEnd(content, 0)
	for pos := start; pos < len(content); {
		end := lineEnd(content, pos)
		line := bytes.TrimRight(content[pos:end], "\r\n")
		if string(bytes.TrimRight(line, " \t")) == delim || (format == YAML && string(line) == "...") {
			return content[start:pos], content[end:], format, true
		}
		pos = end
	}
	return nil, raw, None, false
}

// Extract returns the decoded attributes and the remaining body.
func Extract(raw []byte) (Attributes, []byte) {
	block, body, format, ok := Split(raw)
	if !ok {
		return Attributes{}, raw
	}
	attrs, err := Decode(block, format)
	if err != nil {
		return Attributes{}, raw
	}
	return attrs, body
}

// Decode parses a block of the given format into Attributes.
func Decode(block []byte, format Format) (Attributes, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(block)) == 0 {
		return Attributes{}, nil
	}
	switch format {
	case YAML:
		if err := yaml.Unmarshal(block, &fields); err != nil {
			return nil, fmt.Errorf("frontmatter: yaml: %w", err)
		}
	case TOML:
		if err := toml.Unmarshal(block, &fields); err != nil {
			return nil, fmt.Errorf("frontmatter: toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("frontmatter: unknown format %d", format)
	}
	out := make(Attributes, len(fields))
	for k, v := range fields {
		out[k] = normalize(v)
	}
	return out, nil
}

// Join renders attrs as a YAML block in front of body. Empty attrs yield body
// unchanged.
func Join(attrs Attributes, body []byte) ([]byte, error) {
	if len(attrs) == 0 {
		return body, nil
	}
	block, err := yaml.Marshal(map[string]any(attrs))
	if err != nil {
		return nil, fmt.Errorf("frontmatter: marshal: %w", err)
	}
	out := make([]byte, 0, len(block)+len(body)+8)
	out = append(out, "---\n"...)
	out = append(out, block...)
	out = append(out, "---\n"...)
	out = append(out, body...)
	return out, nil
}

// String returns a string field, or "" when absent or not a scalar.
func (a Attributes) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	case int, int64, float64, bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// Strings returns a list field. A scalar string becomes a one-element list.
func (a Attributes) Strings(key string) []string {
	switch v := a[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// Bool returns a boolean field; the strings "true" and "yes" also count.
func (a Attributes) Bool(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "yes"
	default:
		return false
	}
}

// Clone returns a shallow copy.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

func hasDelimLine(content []byte, delim string) bool {
	if !bytes.HasPrefix(content, []byte(delim)) {
		return false
	}
	line := bytes.TrimRight(content[:lineEnd(content, 0)], "\r\n \t")
	return string(line) == delim
}

func lineEnd(content []byte, pos int) int {
	if i := bytes.IndexByte(content[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(content)
}

// normalize turns decoder-specific values into plain strings, numbers, bools,
// slices and maps so attributes serialise the same way regardless of format.
func normalize(v any) any {
	switch vv := v.(type) {
	case time.Time:
		if vv.Hour() == 0 && vv.Minute() == 0 && vv.Second() == 0 && vv.Nanosecond() == 0 {
			return vv.Format("2006-01-02")
		}
		return vv.Format(time.RFC3339)
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, item := range vv {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = normalize(item)
		}
		return out
	case toml.LocalDate, toml.LocalDateTime, toml.LocalTime:
		return fmt.Sprint(vv)
	default:
		return v
	}
}
