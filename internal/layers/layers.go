// Package layers turns annotations into canvas layers and keeps each layer
// group in step with its source collection.
package layers

import (
	"fmt"
	"html"
	"reflect"
	"sync"

	"github.com/embiggen/planetmap/internal/annotation"
	"github.com/embiggen/planetmap/internal/canvas"
	"github.com/embiggen/planetmap/internal/geo"
)

// ActionExpandQuestion opens the thread of a question popup.
const ActionExpandQuestion = "question.expand"

// Search marker and measurement styling.
const (
	SearchMarkerColor = "#667eea"
	MeasureColor      = "#30cfd0"
)

// Reconciler makes one canvas group match a desired list of layers.
type Reconciler struct {
	mu     sync.Mutex
	canvas canvas.Canvas
	group  string
}

// NewReconciler creates a Reconciler for group.
func NewReconciler(c canvas.Canvas, group string) *Reconciler {
	return &Reconciler{canvas: c, group: group}
}

// Sync removes layers that are no longer desired and upserts the ones that
// are new or changed. Unchanged layers are left alone.
func (r *Reconciler) Sync(desired []canvas.Layer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := make(map[string]canvas.Layer)
	for _, l := range r.canvas.Layers(r.group) {
		current[l.ID] = l
	}

	want := make(map[string]bool, len(desired))
	for _, l := range desired {
		want[l.ID] = true
	}
	for id := range current {
		if !want[id] {
			r.canvas.Remove(id)
		}
	}

	for _, l := range desired {
		l.Group = r.group
		if existing, ok := current[l.ID]; ok && reflect.DeepEqual(existing, l) {
			continue
		}
		r.canvas.Upsert(l)
	}
}

// LabelStyle is the style of a saved label polygon.
func LabelStyle(color string) canvas.Style {
	return canvas.Style{
		Color:       color,
		FillColor:   color,
		Weight:      3,
		Opacity:     1,
		FillOpacity: 0.2,
		DashArray:   "10,10",
	}
}

// QuestionStyle is the style of a question polygon. Hidden questions stay
// on the map fully transparent.
func QuestionStyle(color string, visible bool) canvas.Style {
	s := canvas.Style{Color: color, FillColor: color, Weight: 3}
	if visible {
		s.Opacity, s.FillOpacity = 1, 0.3
	}
	return s
}

// LabelLayerID is the id of a label's polygon layer.
func LabelLayerID(labelID string) string { return "label-" + labelID }

// QuestionLayerID is the id of a question's polygon layer.
func QuestionLayerID(postID string) string { return "question-" + postID }

// LabelLayers returns a polygon and a title marker for every label. The
// marker sits at the centre of the polygon's bounding box.
func LabelLayers(labels []annotation.Label) []canvas.Layer {
	out := make([]canvas.Layer, 0, 2*len(labels))
	for _, l := range labels {
		color := l.Color
		if color == "" {
			color = annotation.DefaultLabelColor
		}
		out = append(out,
			canvas.Layer{
				ID:     LabelLayerID(l.ID),
				Group:  canvas.GroupLabels,
				Kind:   canvas.KindPolygon,
				Points: l.Polygon,
				Style:  LabelStyle(color),
				Popup:  &canvas.Popup{HTML: LabelPopup(l.Title, l.Description)},
				Target: l.ID,
			},
			canvas.Layer{
				ID:     LabelLayerID(l.ID) + "-marker",
				Group:  canvas.GroupLabels,
				Kind:   canvas.KindMarker,
				Points: []geo.LatLon{geo.BoundsCenter(l.Polygon)},
				Style:  canvas.Style{Color: "#ffffff", FillColor: color, Opacity: 1, FillOpacity: 1},
				Text:   l.Title,
				Target: l.ID,
			},
		)
	}
	return out
}

// LabelPopup is the popup body of a label.
func LabelPopup(title, description string) string {
	return fmt.Sprintf("<b>%s</b><br>%s", html.EscapeString(title), html.EscapeString(description))
}

// QuestionLayers returns one layer per question: the drawn polygon when it
// is known, otherwise a marker at the question's coordinate.
func QuestionLayers(posts []annotation.ForumPost, visible bool) []canvas.Layer {
	out := make([]canvas.Layer, 0, len(posts))
	for _, p := range posts {
		color := p.Color
		if color == "" {
			color = annotation.Palette[1]
		}
		layer := canvas.Layer{
			ID:     QuestionLayerID(p.ID),
			Group:  canvas.GroupQuestions,
			Style:  QuestionStyle(color, visible),
			Target: p.ID,
			Popup: &canvas.Popup{
				HTML:    QuestionPopup(p),
				Actions: []canvas.Action{{Name: ActionExpandQuestion, Label: "View Full Details & Answer"}},
			},
		}
		if len(p.Polygon) >= 3 {
			layer.Kind = canvas.KindPolygon
			layer.Points = p.Polygon
		} else {
			layer.Kind = canvas.KindCircle
			layer.Points = []geo.LatLon{p.Coordinate}
			layer.Style.Radius = 8
		}
		out = append(out, layer)
	}
	return out
}

// QuestionPopup is the summary shown in a question popup.
func QuestionPopup(p annotation.ForumPost) string {
	ts := ""
	if !p.CreatedAt.IsZero() {
		ts = p.CreatedAt.Local().Format("2006-01-02 15:04")
	}
	return fmt.Sprintf(`<div class="question"><div class="question-text">%s</div><div class="question-time">%s</div></div>`,
		html.EscapeString(p.Content), ts)
}

// SearchMarker is the transient marker dropped at a search destination.
func SearchMarker(id string, p geo.LatLon) canvas.Layer {
	return canvas.Layer{
		ID:     id,
		Group:  canvas.GroupSearch,
		Kind:   canvas.KindCircle,
		Points: []geo.LatLon{p},
		Style: canvas.Style{
			Color:       "white",
			FillColor:   SearchMarkerColor,
			Weight:      3,
			Opacity:     1,
			FillOpacity: 0.9,
			Radius:      10,
		},
		Popup: &canvas.Popup{
			HTML: fmt.Sprintf("<b>Search Location</b><br>Lat: %.4f°<br>Lon: %.4f°", p.Lat, p.Lon),
			Open: true,
		},
	}
}

// MeasureStyle is the style of a distance polyline.
func MeasureStyle() canvas.Style {
	return canvas.Style{Color: MeasureColor, Weight: 4, Opacity: 0.8}
}

// DistancePopup is the popup body of a measured polyline.
func DistancePopup(km float64) string {
	return fmt.Sprintf("<b>Distance</b><br>%.2f km", km)
}
