package markdown

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yuin/goldmark/ast"
)

func compile(t *testing.T, c *Compiler, src string) *Result {
	t.Helper()
	res, err := c.Compile(context.Background(), []byte(src), "doc.md")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return res
}

func assertContains(t *testing.T, html, want string) {
	t.Helper()
	if !strings.Contains(html, want) {
		t.Errorf("output missing %q\n%s", want, html)
	}
}

func TestCompile_Heading(t *testing.T) {
	res := compile(t, New(), "# Hello World\n")
	assertContains(t, res.Code, `<h1 id="hello-world"><a href="#hello-world">Hello World</a></h1>`)
	assertContains(t, res.Code, "<section>")
}

func TestCompile_FrontmatterInData(t *testing.T) {
	res := compile(t, New(), "---\ntitle: Intro\ntags: [a, b]\npublished: true\n---\nBody text.\n")
	if res.Data["title"] != "Intro" {
		t.Errorf("title = %v, want Intro", res.Data["title"])
	}
	if res.Data["published"] != true {
		t.Errorf("published = %v, want true", res.Data["published"])
	}
	if _, ok := res.Data["toc"].([]TOCEntry); !ok {
		t.Errorf("toc = %T, want []TOCEntry", res.Data["toc"])
	}
	if strings.Contains(res.Code, "title:") {
		t.Errorf("frontmatter leaked into output:\n%s", res.Code)
	}
	assertContains(t, res.Code, "<p>Body text.</p>")
}

func TestCompile_TOC(t *testing.T) {
	res := compile(t, New(), "# Title\n\n## Alpha\n\n### Beta\n\n## Gamma\n\n> ## Quoted\n")
	got := res.Data["toc"].([]TOCEntry)
	want := []TOCEntry{
		{Value: "Alpha", Href: "#alpha", Depth: 2, Numbering: []int{1}, Parent: "root"},
		{Value: "Beta", Href: "#beta", Depth: 3, Numbering: []int{1, 1}, Parent: "root"},
		{Value: "Gamma", Href: "#gamma", Depth: 2, Numbering: []int{2}, Parent: "root"},
		{Value: "Quoted", Href: "#quoted", Depth: 2, Numbering: []int{3}, Parent: "blockquote"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("toc mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_TOCSkipLevels(t *testing.T) {
	res := compile(t, New(WithTOCSkipLevels()), "# One\n\n## Two\n")
	got := res.Data["toc"].([]TOCEntry)
	if len(got) != 2 || got[0].Depth != 1 || cmp.Diff([]int{1, 1}, got[1].Numbering) != "" {
		t.Errorf("toc = %+v", got)
	}
}

func TestCompile_SectionsNest(t *testing.T) {
	res := compile(t, New(), "## A\n\ntext\n\n### B\n\nmore\n\n## C\n")
	if n := strings.Count(res.Code, "<section>"); n != 3 {
		t.Errorf("sections = %d, want 3\n%s", n, res.Code)
	}
	b := strings.Index(res.Code, `id="b"`)
	c := strings.Index(res.Code, `id="c"`)
	closing := strings.Index(res.Code[b:], "</section>\n</section>")
	if closing < 0 || b+closing > c {
		t.Errorf("section B not closed inside A before C:\n%s", res.Code)
	}
}

func TestCompile_Wikiref(t *testing.T) {
	res := compile(t, New(), "See [[Getting Started]] and [[guide|The Guide]].\n")
	assertContains(t, res.Code, `<a href="/docs" class="wikilink">Getting Started</a>`)
	assertContains(t, res.Code, `<a href="/docs" class="wikilink">The Guide</a>`)
}

func TestCompile_WikirefResolver(t *testing.T) {
	c := New(WithWikirefResolver(func(name string) (string, string) {
		return "/docs/" + strings.ToLower(strings.ReplaceAll(name, " ", "-")), strings.ToUpper(name)
	}))
	res := compile(t, c, "[[Getting Started]]\n")
	assertContains(t, res.Code, `<a href="/docs/getting-started" class="wikilink">GETTING STARTED</a>`)
}

func TestCompile_UUIDTokenLeftAsText(t *testing.T) {
	token := "[[uuid:550e8400-e29b-41d4-a716-446655440000]]"
	res := compile(t, New(), "Ref "+token+" here.\n")
	assertContains(t, res.Code, token)
	if strings.Contains(res.Code, "wikilink") {
		t.Errorf("uuid token became a wikilink:\n%s", res.Code)
	}
}

func TestCompile_NoteContainer(t *testing.T) {
	res := compile(t, New(), ":::note\nBe careful.\n:::\n\nAfter.\n")
	assertContains(t, res.Code, `<div class="`+noteClasses+`" role="alert">`)
	assertContains(t, res.Code, "<p>Be careful.</p>\n</div>")
	assertContains(t, res.Code, "<p>After.</p>")
}

func TestCompile_NoteLeafIsPlainDiv(t *testing.T) {
	res := compile(t, New(), "::note[Inline note]\n")
	assertContains(t, res.Code, "<div>Inline note</div>")
	if strings.Contains(res.Code, "role=") {
		t.Errorf("leaf note styled as admonition:\n%s", res.Code)
	}
}

func TestCompile_RDFTerm(t *testing.T) {
	res := compile(t, New(), "A :rdfterm[sdl:Dataset] term.\n")
	assertContains(t, res.Code, `<em class="`+rdftermClasses+`">sdl:Dataset</em>`)
}

func TestCompile_GenericDirectives(t *testing.T) {
	res := compile(t, New(), "::widget[Label]{#w1 .big data-x=\"1\"}\n\nSome :abbr[HTML]{title=\"Hyper\"} text.\n")
	assertContains(t, res.Code, `<div class="big" data-x="1" id="w1">Label</div>`)
	assertContains(t, res.Code, `<span title="Hyper">HTML</span>`)
}

func TestCompile_ColonsInProseAreNotDirectives(t *testing.T) {
	res := compile(t, New(), "Meet at 10:30 or visit https://example.com/a:b today.\n")
	assertContains(t, res.Code, "10:30")
	if strings.Contains(res.Code, "<span") {
		t.Errorf("prose parsed as directive:\n%s", res.Code)
	}
}

func TestCompile_OpenAPI(t *testing.T) {
	res := compile(t, New(), "::openapi{src=\"https://example.com/spec.yaml\"}\n")
	assertContains(t, res.Code, "<iframe src='https://redocly.github.io/redoc/?url=https://example.com/spec.yaml' width='100%' height='1000px'></iframe>")
}

func TestCompile_CodeLanguage(t *testing.T) {
	res := compile(t, New(), "```ts\nconst a = 1 < 2;\n```\n")
	assertContains(t, res.Code, `<pre data-language="typescript"><code class="language-ts">const a = 1 &lt; 2;`)
}

func TestCompile_GFMAndDefinitionList(t *testing.T) {
	res := compile(t, New(), "~~old~~\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\nTerm\n: Definition\n\n<div class=\"raw\">kept</div>\n")
	assertContains(t, res.Code, "<del>old</del>")
	assertContains(t, res.Code, "<table>")
	assertContains(t, res.Code, "<dl>")
	assertContains(t, res.Code, "<dd>Definition</dd>")
	assertContains(t, res.Code, `<div class="raw">kept</div>`)
}

type shoutHandler struct{}

func (shoutHandler) Name() string { return "shout" }

func (shoutHandler) Handle(hc *HandleContext, d Directive) (ast.Node, error) {
	return NewHTMLFragment("<strong>" + strings.ToUpper(plainText(d, hc.Source)) + "</strong>"), nil
}

func TestCompile_CustomHandler(t *testing.T) {
	res := compile(t, New(WithDirectiveHandlers(shoutHandler{})), "::shout[hello there]\n")
	assertContains(t, res.Code, "<strong>HELLO THERE</strong>")
}

type failingHandler struct{}

func (failingHandler) Name() string { return "boom" }

func (failingHandler) Handle(*HandleContext, Directive) (ast.Node, error) {
	return nil, errors.New("exploded")
}

func TestCompile_HandlerErrorIsFatal(t *testing.T) {
	_, err := New(WithDirectiveHandlers(failingHandler{})).Compile(context.Background(), []byte("::boom\n"), "x.md")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "markdown: compile x.md") || !strings.Contains(err.Error(), "exploded") {
		t.Errorf("err = %v", err)
	}
}

func TestCompile_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Compile(ctx, []byte("# x\n"), "x.md"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

const sampleBPMN = `<?xml version="1.0" encoding="UTF-8"?>
<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL" xmlns:bpmndi="http://www.omg.org/spec/BPMN/20100524/DI" xmlns:dc="http://www.omg.org/spec/DD/20100524/DC" xmlns:di="http://www.omg.org/spec/DD/20100524/DI" id="Definitions_1">
  <bpmn:process id="Process_1">
    <bpmn:startEvent id="Start_1" name="Start"/>
    <bpmn:task id="Task_1" name="Review &amp; approve"/>
    <bpmn:endEvent id="End_1"/>
    <bpmn:sequenceFlow id="Flow_1" sourceRef="Start_1" targetRef="Task_1"/>
    <bpmn:sequenceFlow id="Flow_2" sourceRef="Task_1" targetRef="End_1"/>
  </bpmn:process>
  <bpmndi:BPMNDiagram id="Diagram_1">
    <bpmndi:BPMNPlane id="Plane_1" bpmnElement="Process_1">
      <bpmndi:BPMNShape id="Start_1_di" bpmnElement="Start_1"><dc:Bounds x="100" y="100" width="36" height="36"/></bpmndi:BPMNShape>
      <bpmndi:BPMNShape id="Task_1_di" bpmnElement="Task_1"><dc:Bounds x="200" y="78" width="100" height="80"/></bpmndi:BPMNShape>
      <bpmndi:BPMNShape id="End_1_di" bpmnElement="End_1"><dc:Bounds x="350" y="100" width="36" height="36"/></bpmndi:BPMNShape>
      <bpmndi:BPMNEdge id="Flow_1_di" bpmnElement="Flow_1"><di:waypoint x="136" y="118"/><di:waypoint x="200" y="118"/></bpmndi:BPMNEdge>
      <bpmndi:BPMNEdge id="Flow_2_di" bpmnElement="Flow_2"><di:waypoint x="300" y="118"/><di:waypoint x="350" y="118"/></bpmndi:BPMNEdge>
    </bpmndi:BPMNPlane>
  </bpmndi:BPMNDiagram>
</bpmn:definitions>
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestCompile_BPMN(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "flow.bpmn", sampleBPMN)
	cache := NewTTLCache(0)
	c := New(WithDiagramConfig(DiagramConfig{BaseDir: dir}), WithRenderCache(cache))

	res := compile(t, c, "::bpmn{src=\"flow.bpmn\" width=\"640\" class=\"wide\"}\n")
	assertContains(t, res.Code, `<div class="bpmn-diagram ornl-theme wide" data-bpmn-diagram="true" style="width: 640px;">`)
	assertContains(t, res.Code, `<div class="bpmn-svg-container"><svg xmlns="http://www.w3.org/2000/svg" width="640" height="600"`)
	assertContains(t, res.Code, "bpmn-task")
	assertContains(t, res.Code, "Review &amp; approve")
	if cache.Len() != 1 {
		t.Errorf("cache.Len = %d, want 1", cache.Len())
	}

	res = compile(t, c, "::bpmn{src=\"flow.bpmn\"}\n")
	assertContains(t, res.Code, `<div class="bpmn-diagram ornl-theme" data-bpmn-diagram="true"><div class="bpmn-svg-container">`)
	assertContains(t, res.Code, `width="800" height="600"`)
}

func TestCompile_BPMNRelativeToDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "flow.bpmn", sampleBPMN)
	res, err := New(WithRenderCache(NopCache{})).Compile(context.Background(), []byte("::bpmn{src=\"flow.bpmn\"}\n"), filepath.Join(dir, "page.md"))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	assertContains(t, res.Code, `data-bpmn-diagram="true"`)
}

func TestCompile_BPMNMissingSrc(t *testing.T) {
	res := compile(t, New(WithRenderCache(NopCache{})), "::bpmn\n")
	assertContains(t, res.Code, `<div class="bpmn-error ornl-theme">`)
	assertContains(t, res.Code, `<p class="error-message">Failed to load BPMN diagram</p>`)
	assertContains(t, res.Code, "BPMN directive missing required &#34;src&#34; attribute")
}

func TestCompile_BPMNFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.bpmn", "<notbpmn/>")
	writeFile(t, dir, "flow.bpmn", sampleBPMN)

	tests := []struct {
		name string
		cfg  DiagramConfig
		src  string
		want string
	}{
		{"missing file", DiagramConfig{BaseDir: dir}, "nope.bpmn", "Failed to process BPMN file &#34;nope.bpmn&#34;"},
		{"invalid", DiagramConfig{BaseDir: dir}, "bad.bpmn", "Invalid BPMN"},
		{"too large", DiagramConfig{BaseDir: dir, MaxFileSize: 10}, "flow.bpmn", "File too large: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithDiagramConfig(tt.cfg), WithRenderCache(NopCache{}))
			res := compile(t, c, "::bpmn{src=\""+tt.src+"\"}\n")
			assertContains(t, res.Code, "bpmn-error")
			assertContains(t, res.Code, tt.want)
		})
	}
}

func TestCompile_BPMNNoFallback(t *testing.T) {
	c := New(WithDiagramConfig(DiagramConfig{NoFallback: true}), WithRenderCache(NopCache{}))
	_, err := c.Compile(context.Background(), []byte("::bpmn\n"), "page.md")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), `missing required "src"`) {
		t.Errorf("err = %v", err)
	}
}

func TestPreprocess(t *testing.T) {
	c := New(WithRenderCache(NopCache{}))
	if got := c.Preprocess(context.Background(), []byte("x"), "main.ts"); got != nil {
		t.Errorf("Preprocess(.ts) = %+v, want nil", got)
	}
	got := c.Preprocess(context.Background(), []byte("# Hi\n"), "page.svx")
	if got == nil || !strings.Contains(got.Code, "<h1") {
		t.Fatalf("Preprocess(.svx) = %+v", got)
	}

	strict := New(WithDiagramConfig(DiagramConfig{NoFallback: true}), WithRenderCache(NopCache{}))
	src := "::bpmn\n"
	got = strict.Preprocess(context.Background(), []byte(src), "page.md")
	if got == nil || got.Code != src || len(got.Data) != 0 {
		t.Errorf("Preprocess fallback = %+v", got)
	}
}
