package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// WikirefResolver maps a wikiref target to a link href and display text.
type WikirefResolver func(name string) (href, text string)

// DefaultWikirefResolver links every wikiref to /docs and shows the raw
// target.
func DefaultWikirefResolver(name string) (string, string) {
	return "/docs", name
}

// WikilinkClass is the class carried by links produced from wikirefs.
const WikilinkClass = "wikilink"

type wikirefParser struct {
	resolve WikirefResolver
}

// NewWikirefParser returns an InlineParser for `[[Name]]` and
// `[[Target|Label]]`. `[[uuid:...]]` tokens are not wikirefs and stay as
// text.
func NewWikirefParser(resolve WikirefResolver) parser.InlineParser {
	if resolve == nil {
		resolve = DefaultWikirefResolver
	}
	return &wikirefParser{resolve: resolve}
}

func (p *wikirefParser) Trigger() []byte {
	return []byte{'['}
}

func (p *wikirefParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if !bytes.HasPrefix(line, []byte("[[")) {
		return nil
	}
	end := bytes.Index(line[2:], []byte("]]"))
	if end <= 0 {
		return nil
	}
	inner := line[2 : 2+end]
	if bytes.ContainsAny(inner, "[]\n") {
		return nil
	}
	raw := strings.TrimSpace(string(inner))
	if raw == "" || strings.HasPrefix(strings.ToLower(raw), "uuid:") {
		return nil
	}

	name, label := raw, ""
	if i := strings.IndexByte(raw, '|'); i >= 0 {
		name, label = strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+1:])
	}
	href, display := p.resolve(name)
	if label != "" {
		display = label
	}

	link := ast.NewLink()
	link.Destination = []byte(href)
	link.SetAttributeString("class", []byte(WikilinkClass))
	link.AppendChild(link, ast.NewString([]byte(display)))
	block.Advance(2 + end + 2)
	return link
}
