package markdown

import (
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// directiveHead is the scanned `name[label]{attrs}` part of a directive.
// Offsets index into the scanned line.
type directiveHead struct {
	name       string
	labelStart int
	labelStop  int
	hasLabel   bool
	attrs      map[string]string
	hasAttrs   bool
	end        int
}

// scanDirectiveHead scans a directive head starting at line[i], just past
// the colons.
func scanDirectiveHead(line []byte, i int) (directiveHead, bool) {
	var h directiveHead
	start := i
	if i >= len(line) || !isASCIILetter(line[i]) {
		return h, false
	}
	for i < len(line) && isNameByte(line[i]) {
		i++
	}
	h.name = string(line[start:i])

	if i < len(line) && line[i] == '[' {
		stop, ok := matchBracket(line, i, '[', ']')
		if !ok {
			return h, false
		}
		h.hasLabel = true
		h.labelStart, h.labelStop = i+1, stop
		i = stop + 1
	}
	if i < len(line) && line[i] == '{' {
		stop, ok := matchBracket(line, i, '{', '}')
		if !ok {
			return h, false
		}
		attrs, ok := parseAttributes(line[i+1 : stop])
		if !ok {
			return h, false
		}
		h.hasAttrs = true
		h.attrs = attrs
		i = stop + 1
	}
	h.end = i
	return h, true
}

// matchBracket returns the index of the closer matching line[i], honouring
// nesting and backslash escapes. Brackets never span lines.
func matchBracket(line []byte, i int, open, close byte) (int, bool) {
	depth := 0
	for j := i; j < len(line); j++ {
		switch c := line[j]; {
		case c == '\\':
			j++
		case c == '\n' || c == '\r':
			return 0, false
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return j, true
			}
		}
	}
	return 0, false
}

// parseAttributes parses the inside of `{...}`: `key="v"`, `key='v'`,
// `key=v`, bare `key`, `#id` and `.class` (classes accumulate).
func parseAttributes(s []byte) (map[string]string, bool) {
	attrs := map[string]string{}
	i := 0
	for {
		for i < len(s) && util.IsSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			return attrs, true
		}
		switch s[i] {
		case '#', '.':
			marker := s[i]
			i++
			start := i
			for i < len(s) && isShortcutByte(s[i]) {
				i++
			}
			if i == start {
				return nil, false
			}
			v := string(s[start:i])
			if marker == '#' {
				attrs["id"] = v
			} else if prev := attrs["class"]; prev != "" {
				attrs["class"] = prev + " " + v
			} else {
				attrs["class"] = v
			}
		default:
			start := i
			for i < len(s) && isKeyByte(s[i]) {
				i++
			}
			if i == start {
				return nil, false
			}
			key := string(s[start:i])
			if i >= len(s) || s[i] != '=' {
				attrs[key] = ""
				continue
			}
			i++
			if i >= len(s) {
				return nil, false
			}
			switch q := s[i]; q {
			case '"', '\'':
				end := i + 1
				for end < len(s) && s[end] != q {
					end++
				}
				if end >= len(s) {
					return nil, false
				}
				attrs[key] = string(s[i+1 : end])
				i = end + 1
			default:
				vs := i
				for i < len(s) && !util.IsSpace(s[i]) && s[i] != '"' && s[i] != '\'' && s[i] != '=' {
					i++
				}
				attrs[key] = string(s[vs:i])
			}
		}
	}
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameByte(c byte) bool {
	return isASCIILetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isKeyByte(c byte) bool {
	return isNameByte(c) || c == ':' || c == '.'
}

func isShortcutByte(c byte) bool {
	return !util.IsSpace(c) && c != '#' && c != '.' && c != '"' && c != '\'' && c != '=' && c != '{' && c != '}'
}

type directiveBlockParser struct{}

// NewDirectiveBlockParser returns a BlockParser for leaf (`::name`) and
// container (`:::name` ... `:::`) directives.
func NewDirectiveBlockParser() parser.BlockParser {
	return &directiveBlockParser{}
}

func (p *directiveBlockParser) Trigger() []byte {
	return []byte{':'}
}

func (p *directiveBlockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || line[pos] != ':' {
		return nil, parser.NoChildren
	}
	i := pos
	for i < len(line) && line[i] == ':' {
		i++
	}
	fence := i - pos
	if fence < 2 {
		return nil, parser.NoChildren
	}
	head, ok := scanDirectiveHead(line, i)
	if !ok || !util.IsBlank(line[head.end:]) {
		return nil, parser.NoChildren
	}

	node := &DirectiveBlock{
		DirectiveInfo: DirectiveInfo{
			Form:  LeafDirective,
			Name:  head.name,
			Attrs: head.attrs,
		},
	}
	if node.Attrs == nil {
		node.Attrs = map[string]string{}
	}
	var label text.Segment
	if head.hasLabel && head.labelStop > head.labelStart {
		base := segment.Start - segment.Padding
		label = text.NewSegment(base+head.labelStart, base+head.labelStop)
	}
	reader.AdvanceToEOL()

	if fence == 2 {
		if label.Len() > 0 {
			node.Lines().Append(label)
		}
		return node, parser.NoChildren
	}

	node.Form = ContainerDirective
	node.fence = fence
	if label.Len() > 0 {
		para := ast.NewParagraph()
		para.Lines().Append(label)
		node.AppendChild(node, para)
	}
	return node, parser.HasChildren
}

func (p *directiveBlockParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	n := node.(*DirectiveBlock)
	if n.Form != ContainerDirective {
		return parser.Close
	}
	line, segment := reader.PeekLine()
	w, pos := util.IndentWidth(line, reader.LineOffset())
	if w < 4 {
		i := pos
		for i < len(line) && line[i] == ':' {
			i++
		}
		if i-pos >= n.fence && util.IsBlank(line[i:]) {
			newline := 1
			if line[len(line)-1] != '\n' {
				newline = 0
			}
			reader.Advance(segment.Stop - segment.Start - newline + segment.Padding)
			return parser.Close
		}
	}
	return parser.Continue | parser.HasChildren
}

func (p *directiveBlockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (p *directiveBlockParser) CanInterruptParagraph() bool {
	return true
}

func (p *directiveBlockParser) CanAcceptIndentedLine() bool {
	return false
}

type directiveInlineParser struct{}

// NewDirectiveInlineParser returns an InlineParser for text directives
// (`:name[label]{attrs}`). At the top level a label or attribute list is
// required and the colon must not follow a letter, digit or colon, so times
// and URLs are left alone. Inside a label the bare `:name` form is accepted.
func NewDirectiveInlineParser() parser.InlineParser {
	return &directiveInlineParser{}
}

func (p *directiveInlineParser) Trigger() []byte {
	return []byte{':'}
}

func (p *directiveInlineParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	prev := block.PrecendingCharacter()
	if prev == ':' || unicode.IsLetter(prev) || unicode.IsDigit(prev) {
		return nil
	}
	line, segment := block.PeekLine()
	if len(line) < 2 || line[0] != ':' {
		return nil
	}
	head, ok := scanDirectiveHead(line, 1)
	if !ok || !(head.hasLabel || head.hasAttrs) {
		return nil
	}
	node := newInlineDirective(line, segment.Start, head)
	block.Advance(head.end)
	return node
}

func newInlineDirective(line []byte, base int, head directiveHead) *DirectiveInline {
	node := &DirectiveInline{
		DirectiveInfo: DirectiveInfo{
			Form:  TextDirective,
			Name:  head.name,
			Attrs: head.attrs,
		},
	}
	if node.Attrs == nil {
		node.Attrs = map[string]string{}
	}
	if head.hasLabel {
		appendLabel(node, line, base, head.labelStart, head.labelStop)
	}
	return node
}

// appendLabel splits line[start:stop] into text runs and nested text
// directives and appends them to parent.
func appendLabel(parent ast.Node, line []byte, base, start, stop int) {
	run := start
	flush := func(end int) {
		if end > run {
			parent.AppendChild(parent, ast.NewTextSegment(text.NewSegment(base+run, base+end)))
		}
	}
	for i := start; i < stop; {
		c := line[i]
		if c == '\\' && i+1 < stop {
			flush(i)
			run = i + 1
			i += 2
			continue
		}
		if c == ':' && (i == start || line[i-1] != ':') {
			if head, ok := scanDirectiveHead(line[:stop], i+1); ok {
				flush(i)
				parent.AppendChild(parent, newInlineDirective(line, base, head))
				i = head.end
				run = i
				continue
			}
		}
		_, size := utf8.DecodeRune(line[i:stop])
		i += size
	}
	flush(stop)
}
