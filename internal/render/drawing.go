package render

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/danmuck/notesctl/internal/markup"
	"github.com/danmuck/notesctl/internal/protocol"
	"github.com/danmuck/notesctl/internal/protocol/schema"
)

const (
	// PointRecordSize is the size of one packed stroke point: three
	// float32 (x, y at the second and third), five uint16, two bytes.
	PointRecordSize = 24

	MarkerTool   = "com.apple.ink.marker"
	markerWidth  = 15
	markerAlpha  = 0.5
	defaultWidth = 1
)

type Ink struct {
	Red, Green, Blue, Alpha float64
	Tool                    string
}

type Transform struct {
	A, B, C, D, TX, TY float64
}

type Stroke struct {
	InkIndex  int
	Hidden    bool
	Points    []byte
	Transform *Transform
}

// Sketch is a decoded handwriting attachment.
type Sketch struct {
	Width, Height float64
	Inks          []Ink
	Strokes       []Stroke
}

type Point struct {
	X, Y float32
}

// Points unpacks a stroke point buffer. A trailing partial record is
// ignored.
func Points(buf []byte) []Point {
	out := make([]Point, 0, len(buf)/PointRecordSize)
	for off := 0; off+PointRecordSize <= len(buf); off += PointRecordSize {
		out = append(out, Point{
			X: math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(buf[off+8:])),
		})
	}
	return out
}

// SketchFromMessage reads the data message of a blob decoded with
// schema.Drawing.
func SketchFromMessage(m *protocol.Message) Sketch {
	var s Sketch
	if b, ok := m.Message(schema.FieldBounds); ok {
		s.Width, _ = b.Float(schema.FieldWidth)
		s.Height, _ = b.Float(schema.FieldHeight)
	}
	for _, im := range m.Messages(schema.FieldInks) {
		var ink Ink
		if c, ok := im.Message(schema.FieldColor); ok {
			ink.Red, _ = c.Float(schema.FieldRed)
			ink.Green, _ = c.Float(schema.FieldGreen)
			ink.Blue, _ = c.Float(schema.FieldBlue)
			ink.Alpha, _ = c.Float(schema.FieldAlpha)
		}
		ink.Tool, _ = im.Text(schema.FieldIdentifier)
		s.Inks = append(s.Inks, ink)
	}
	for _, sm := range m.Messages(schema.FieldStrokes) {
		var st Stroke
		idx, _ := sm.Uint(schema.FieldInkIndex)
		st.InkIndex = int(idx)
		hidden, _ := sm.Uint(schema.FieldHidden)
		st.Hidden = hidden != 0
		st.Points, _ = sm.Blob(schema.FieldPoints)
		if tm, ok := sm.Message(schema.FieldTransform); ok {
			t := &Transform{}
			t.A, _ = tm.Float("a")
			t.B, _ = tm.Float("b")
			t.C, _ = tm.Float("c")
			t.D, _ = tm.Float("d")
			t.TX, _ = tm.Float("tx")
			t.TY, _ = tm.Float("ty")
			st.Transform = t
		}
		s.Strokes = append(s.Strokes, st)
	}
	return s
}

// Drawing renders a sketch as an svg element. Hidden strokes, strokes
// without points and strokes naming a missing ink are skipped.
func Drawing(s Sketch) *markup.Node {
	root := markup.Element("svg").
		Set("width", formatFloat(s.Width)).
		Set("height", formatFloat(s.Height))
	for _, st := range s.Strokes {
		if st.Hidden {
			continue
		}
		points := Points(st.Points)
		if len(points) == 0 || st.InkIndex < 0 || st.InkIndex >= len(s.Inks) {
			continue
		}
		ink := s.Inks[st.InkIndex]
		width, alpha := defaultWidth, ink.Alpha
		if ink.Tool == MarkerTool {
			width, alpha = markerWidth, markerAlpha
		}
		path := markup.Element("path").
			Set("d", pathData(points)).
			Set("stroke", fmt.Sprintf("rgba(%d,%d,%d,%s)", channel(ink.Red), channel(ink.Green), channel(ink.Blue), formatFloat(alpha))).
			Set("stroke-width", strconv.Itoa(width)).
			Set("stroke-cap", "round").
			Set("fill", "none")
		if t := st.Transform; t != nil {
			path.Set("transform", fmt.Sprintf("matrix(%s %s %s %s %.2f %.2f)",
				formatFloat(t.A), formatFloat(t.B), formatFloat(t.C), formatFloat(t.D), t.TX, t.TY))
		}
		root.Append(path)
	}
	return root
}

func pathData(points []Point) string {
	var b strings.Builder
	for i, p := range points {
		if i == 0 {
			b.WriteByte('M')
		} else {
			b.WriteByte('L')
		}
		fmt.Fprintf(&b, "%.2f %.2f", p.X, p.Y)
	}
	return b.String()
}

func channel(v float64) int {
	return int(v * 255)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 32)
}
