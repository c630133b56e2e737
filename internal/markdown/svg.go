package markdown

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
)

// Diagram is a rendered BPMN drawing: SVG body markup plus the bounding box
// it occupies in diagram coordinates.
type Diagram struct {
	Body   string
	MinX   float64
	MinY   float64
	Width  float64
	Height float64
}

type bpmnDefinitions struct {
	XMLName        xml.Name
	Processes      []bpmnContainer `xml:"process"`
	Collaborations []bpmnContainer `xml:"collaboration"`
	Diagrams       []bpmnDiagram   `xml:"BPMNDiagram"`
}

type bpmnContainer struct {
	ID       string        `xml:"id,attr"`
	Elements []bpmnElement `xml:",any"`
}

type bpmnElement struct {
	XMLName   xml.Name
	ID        string        `xml:"id,attr"`
	Name      string        `xml:"name,attr"`
	SourceRef string        `xml:"sourceRef,attr"`
	TargetRef string        `xml:"targetRef,attr"`
	Children  []bpmnElement `xml:",any"`
}

type bpmnDiagram struct {
	Planes []bpmnPlane `xml:"BPMNPlane"`
}

type bpmnPlane struct {
	Shapes []bpmnShape `xml:"BPMNShape"`
	Edges  []bpmnEdge  `xml:"BPMNEdge"`
}

type bpmnShape struct {
	Element string     `xml:"bpmnElement,attr"`
	Bounds  bpmnBounds `xml:"Bounds"`
}

type bpmnBounds struct {
	X      float64 `xml:"x,attr"`
	Y      float64 `xml:"y,attr"`
	Width  float64 `xml:"width,attr"`
	Height float64 `xml:"height,attr"`
}

type bpmnEdge struct {
	Element   string      `xml:"bpmnElement,attr"`
	Waypoints []bpmnPoint `xml:"waypoint"`
}

type bpmnPoint struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
}

// ParseBPMN validates data as a BPMN 2.0 document and renders it.
func ParseBPMN(data []byte) (*Diagram, error) {
	var defs bpmnDefinitions
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&defs); err != nil {
		return nil, fmt.Errorf("Invalid BPMN: XML is not well-formed: %v", err)
	}
	var reasons []string
	if defs.XMLName.Local != "definitions" {
		reasons = append(reasons, fmt.Sprintf("root element is %q, expected \"definitions\"", defs.XMLName.Local))
	}
	if len(defs.Processes) == 0 && len(defs.Collaborations) == 0 {
		reasons = append(reasons, "no process or collaboration element found")
	}
	if len(reasons) > 0 {
		return nil, errors.New("Invalid BPMN: " + strings.Join(reasons, "; "))
	}
	return renderDefinitions(&defs), nil
}

type flowNode struct {
	kind string
	name string
}

// box is an axis-aligned bounding box accumulator.
type box struct {
	minX, minY, maxX, maxY float64
	empty                  bool
}

func newBox() box {
	return box{minX: math.Inf(1), minY: math.Inf(1), maxX: math.Inf(-1), maxY: math.Inf(-1), empty: true}
}

func (b *box) add(x, y float64) {
	b.minX, b.minY = math.Min(b.minX, x), math.Min(b.minY, y)
	b.maxX, b.maxY = math.Max(b.maxX, x), math.Max(b.maxY, y)
	b.empty = false
}

const diagramPadding = 10

func renderDefinitions(defs *bpmnDefinitions) *Diagram {
	nodes := map[string]flowNode{}
	var order []string
	var flows []bpmnElement
	var collect func(elems []bpmnElement)
	collect = func(elems []bpmnElement) {
		for _, e := range elems {
			if e.ID == "" {
				continue
			}
			kind := e.XMLName.Local
			switch {
			case kind == "sequenceFlow" || kind == "messageFlow":
				flows = append(flows, e)
			case isFlowNodeKind(kind):
				if _, seen := nodes[e.ID]; !seen {
					order = append(order, e.ID)
				}
				nodes[e.ID] = flowNode{kind: kind, name: e.Name}
			}
			if kind == "subProcess" || kind == "laneSet" || kind == "lane" {
				collect(e.Children)
			}
		}
	}
	for _, p := range defs.Processes {
		collect(p.Elements)
	}
	for _, c := range defs.Collaborations {
		collect(c.Elements)
	}

	var plane *bpmnPlane
	for i := range defs.Diagrams {
		for j := range defs.Diagrams[i].Planes {
			if len(defs.Diagrams[i].Planes[j].Shapes) > 0 {
				plane = &defs.Diagrams[i].Planes[j]
				break
			}
		}
		if plane != nil {
			break
		}
	}
	if plane == nil {
		plane = layoutRow(order, nodes, flows)
	}

	var body strings.Builder
	bb := newBox()
	for _, s := range plane.Shapes {
		n := nodes[s.Element]
		writeShape(&body, n, s.Bounds)
		bb.add(s.Bounds.X, s.Bounds.Y)
		bb.add(s.Bounds.X+s.Bounds.Width, s.Bounds.Y+s.Bounds.Height)
	}
	for _, e := range plane.Edges {
		if len(e.Waypoints) < 2 {
			continue
		}
		writeEdge(&body, e.Waypoints)
		for _, p := range e.Waypoints {
			bb.add(p.X, p.Y)
		}
	}
	if bb.empty {
		bb.add(0, 0)
		bb.add(100, 100)
	}
	return &Diagram{
		Body:   body.String(),
		MinX:   bb.minX - diagramPadding,
		MinY:   bb.minY - diagramPadding,
		Width:  bb.maxX - bb.minX + 2*diagramPadding,
		Height: bb.maxY - bb.minY + 2*diagramPadding,
	}
}

func isFlowNodeKind(kind string) bool {
	switch {
	case strings.HasSuffix(kind, "Task"), kind == "task",
		strings.HasSuffix(kind, "Event"),
		strings.HasSuffix(kind, "Gateway"),
		kind == "callActivity", kind == "subProcess",
		kind == "participant", kind == "lane",
		kind == "dataObjectReference", kind == "dataStoreReference":
		return true
	}
	return false
}

// layoutRow places flow nodes left to right when the document carries no
// diagram interchange section.
func layoutRow(order []string, nodes map[string]flowNode, flows []bpmnElement) *bpmnPlane {
	plane := &bpmnPlane{}
	centers := map[string]bpmnPoint{}
	x := 20.0
	const midY = 60.0
	for _, id := range order {
		n := nodes[id]
		if n.kind == "participant" || n.kind == "lane" {
			continue
		}
		w, h := 100.0, 80.0
		switch {
		case strings.HasSuffix(n.kind, "Event"):
			w, h = 36, 36
		case strings.HasSuffix(n.kind, "Gateway"):
			w, h = 50, 50
		}
		plane.Shapes = append(plane.Shapes, bpmnShape{Element: id, Bounds: bpmnBounds{X: x, Y: midY - h/2, Width: w, Height: h}})
		centers[id] = bpmnPoint{X: x + w/2, Y: midY}
		x += w + 50
	}
	for _, f := range flows {
		from, ok1 := centers[f.SourceRef]
		to, ok2 := centers[f.TargetRef]
		if ok1 && ok2 {
			plane.Edges = append(plane.Edges, bpmnEdge{Element: f.ID, Waypoints: []bpmnPoint{from, to}})
		}
	}
	return plane
}

func writeShape(b *strings.Builder, n flowNode, r bpmnBounds) {
	cx, cy := r.X+r.Width/2, r.Y+r.Height/2
	switch {
	case strings.HasSuffix(n.kind, "Event"):
		stroke := "2"
		if n.kind == "endEvent" {
			stroke = "4"
		}
		fmt.Fprintf(b, `<circle class="bpmn-event" cx="%s" cy="%s" r="%s" fill="#fff" stroke="#000" stroke-width="%s"/>`,
			num(cx), num(cy), num(math.Min(r.Width, r.Height)/2), stroke)
		writeLabel(b, n.name, cx, r.Y+r.Height+14)
	case strings.HasSuffix(n.kind, "Gateway"):
		fmt.Fprintf(b, `<polygon class="bpmn-gateway" points="%s,%s %s,%s %s,%s %s,%s" fill="#fff" stroke="#000" stroke-width="2"/>`,
			num(cx), num(r.Y), num(r.X+r.Width), num(cy), num(cx), num(r.Y+r.Height), num(r.X), num(cy))
		writeLabel(b, n.name, cx, r.Y+r.Height+14)
	case n.kind == "participant" || n.kind == "lane":
		fmt.Fprintf(b, `<rect class="bpmn-pool" x="%s" y="%s" width="%s" height="%s" fill="none" stroke="#000" stroke-width="1.5"/>`,
			num(r.X), num(r.Y), num(r.Width), num(r.Height))
		writeLabel(b, n.name, r.X+15, cy)
	default:
		fmt.Fprintf(b, `<rect class="bpmn-task" x="%s" y="%s" width="%s" height="%s" rx="10" ry="10" fill="#fff" stroke="#000" stroke-width="2"/>`,
			num(r.X), num(r.Y), num(r.Width), num(r.Height))
		writeLabel(b, n.name, cx, cy)
	}
}

func writeLabel(b *strings.Builder, label string, x, y float64) {
	if label == "" {
		return
	}
	fmt.Fprintf(b, `<text x="%s" y="%s" text-anchor="middle" dominant-baseline="middle" font-size="12">%s</text>`,
		num(x), num(y), html.EscapeString(label))
}

func writeEdge(b *strings.Builder, pts []bpmnPoint) {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = num(p.X) + "," + num(p.Y)
	}
	fmt.Fprintf(b, `<polyline class="bpmn-flow" points="%s" fill="none" stroke="#000" stroke-width="1.5" marker-end="url(#bpmn-arrow)"/>`,
		strings.Join(parts, " "))
}

// SVG returns the complete <svg> element for d at the given pixel size.
// zoom scales the drawing around the top-left corner of its bounding box.
func (d *Diagram) SVG(width, height int, zoom float64) string {
	if zoom <= 0 {
		zoom = 1
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="%s %s %s %s" preserveAspectRatio="xMidYMid meet">`,
		width, height, num(d.MinX), num(d.MinY), num(d.Width/zoom), num(d.Height/zoom))
	b.WriteString(`<defs><marker id="bpmn-arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="8" markerHeight="8" orient="auto"><path d="M0,0 L10,5 L0,10 z" fill="#000"/></marker></defs>`)
	b.WriteString(d.Body)
	b.WriteString(`</svg>`)
	return b.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
