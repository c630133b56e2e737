package docextract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var pyDefPattern = regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)`)

// Python extracts UUID-tagged function docstrings.
type Python struct {
	logger *slog.Logger
}

// NewPython returns a Python extractor.
func NewPython(logger *slog.Logger) *Python {
	if logger == nil {
		logger = slog.Default()
	}
	return &Python{logger: logger}
}

// Extract implements Extractor.
func (e *Python) Extract(ctx context.Context, path string) []ExtractedDoc {
	src, err := os.ReadFile(path)
	if err != nil {
		e.logger.Warn("python extract: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	docs, err := ParsePython(path, src)
	if err != nil {
		e.logger.Warn("python extract: scan stopped", slog.String("path", path), slog.String("error", err.Error()))
	}
	return docs
}

type pyState int

const (
	pyOutside pyState = iota
	pyInDocstring
)

type pyRecord struct {
	name    string
	lines   []string
	uuid    string
	emitted bool
}

// pyScanner is a line-driven state machine. A record is emitted at most
// once, and only when it has both a function name and a UUID.
type pyScanner struct {
	path  string
	state pyState
	delim string
	cur   *pyRecord
	docs  []ExtractedDoc
}

// maxPythonLine is the longest source line the scanner accepts.
const maxPythonLine = 1024 * 1024

// ParsePython scans Python source for function docstrings that declare a
// UUID. When a line exceeds maxPythonLine, scanning stops there and the
// records found so far are returned with the error.
func ParsePython(path string, src []byte) ([]ExtractedDoc, error) {
	s := &pyScanner{path: path}
	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), maxPythonLine)
	for sc.Scan() {
		s.line(strings.TrimRight(sc.Text(), "\r"))
	}
	s.eof()
	if err := sc.Err(); err != nil {
		return s.docs, fmt.Errorf("docextract: scan %s: %w", path, err)
	}
	return s.docs, nil
}

func (s *pyScanner) line(line string) {
	switch s.state {
	case pyOutside:
		if m := pyDefPattern.FindStringSubmatch(line); m != nil {
			s.flush()
			s.cur = &pyRecord{name: m[1]}
			return
		}
		trimmed := strings.TrimSpace(line)
		delim := docstringDelim(trimmed)
		if delim == "" {
			return
		}
		rest := strings.TrimPrefix(trimmed, delim)
		if i := strings.Index(rest, delim); i >= 0 {
			// Single-line docstring.
			s.content(rest[:i])
			s.closeDocstring()
			return
		}
		s.state, s.delim = pyInDocstring, delim
		if strings.TrimSpace(rest) != "" {
			s.content(rest)
		}
	case pyInDocstring:
		if i := strings.Index(line, s.delim); i >= 0 {
			if before := line[:i]; strings.TrimSpace(before) != "" {
				s.content(before)
			}
			s.state = pyOutside
			s.closeDocstring()
			return
		}
		s.content(line)
	}
}

func docstringDelim(trimmed string) string {
	for _, d := range []string{`"""`, `'''`} {
		if strings.HasPrefix(trimmed, d) {
			return d
		}
	}
	return ""
}

func (s *pyScanner) content(line string) {
	if s.cur == nil {
		return
	}
	s.cur.lines = append(s.cur.lines, strings.TrimSpace(line))
	if id := FindUUID(line); id != "" {
		s.cur.uuid = id
	}
}

func (s *pyScanner) closeDocstring() {
	s.state = pyOutside
	s.flush()
}

// eof is the end-of-input transition: an unterminated docstring or a
// pending record is flushed.
func (s *pyScanner) eof() {
	s.state = pyOutside
	s.flush()
	s.cur = nil
}

func (s *pyScanner) flush() {
	r := s.cur
	if r == nil || r.emitted || r.name == "" || r.uuid == "" {
		return
	}
	r.emitted = true
	s.docs = append(s.docs, ExtractedDoc{
		Name:          r.name,
		Kind:          "function",
		Documentation: strings.TrimSpace(strings.Join(r.lines, "\n")),
		FilePath:      s.path,
		UUID:          r.uuid,
	})
}
