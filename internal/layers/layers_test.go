package layers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embiggen/planetmap/internal/annotation"
	"github.com/embiggen/planetmap/internal/canvas"
	"github.com/embiggen/planetmap/internal/geo"
)

// countingCanvas records upserts on top of a headless canvas.
type countingCanvas struct {
	*canvas.Headless
	upserts []string
	removes []string
}

func (c *countingCanvas) Upsert(l canvas.Layer) {
	c.upserts = append(c.upserts, l.ID)
	c.Headless.Upsert(l)
}

func (c *countingCanvas) Remove(id string) {
	c.removes = append(c.removes, id)
	c.Headless.Remove(id)
}

var square = []geo.LatLon{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 2}, {Lat: 2, Lon: 2}, {Lat: 2, Lon: 0}}

func TestReconciler_Sync(t *testing.T) {
	c := &countingCanvas{Headless: canvas.NewHeadless()}
	r := NewReconciler(c, canvas.GroupLabels)
	c.Headless.Upsert(canvas.Layer{ID: "other", Group: canvas.GroupSearch})

	a := canvas.Layer{ID: "a", Kind: canvas.KindPolygon, Points: square}
	b := canvas.Layer{ID: "b", Kind: canvas.KindMarker, Text: "B"}

	r.Sync([]canvas.Layer{a, b})
	assert.Equal(t, []string{"a", "b"}, c.upserts)

	c.upserts = nil
	b.Text = "B2"
	r.Sync([]canvas.Layer{a, b})
	assert.Equal(t, []string{"b"}, c.upserts, "unchanged layers are not re-upserted")

	r.Sync([]canvas.Layer{b})
	assert.Equal(t, []string{"a"}, c.removes)

	got := c.Layers(canvas.GroupLabels)
	require.Len(t, got, 1)
	assert.Equal(t, "B2", got[0].Text)
	assert.Len(t, c.Layers(canvas.GroupSearch), 1, "other groups are untouched")
}

func TestLabelLayers(t *testing.T) {
	layers := LabelLayers([]annotation.Label{{
		ID:          "7",
		Title:       "Olympus <Mons>",
		Description: "tallest",
		Polygon:     square,
	}})

	require.Len(t, layers, 2)
	poly, marker := layers[0], layers[1]

	assert.Equal(t, "label-7", poly.ID)
	assert.Equal(t, canvas.KindPolygon, poly.Kind)
	assert.Equal(t, annotation.DefaultLabelColor, poly.Style.Color)
	assert.Equal(t, "10,10", poly.Style.DashArray)
	assert.Equal(t, "<b>Olympus &lt;Mons&gt;</b><br>tallest", poly.Popup.HTML)

	assert.Equal(t, canvas.KindMarker, marker.Kind)
	assert.Equal(t, []geo.LatLon{{Lat: 1, Lon: 1}}, marker.Points)
	assert.Equal(t, "Olympus <Mons>", marker.Text)
}

func TestQuestionLayers(t *testing.T) {
	posts := []annotation.ForumPost{
		{ID: "12", Content: "What is this?", Polygon: square, Color: "#6c5ce7", CreatedAt: time.Now()},
		{ID: "13", Content: "Remote", Coordinate: geo.LatLon{Lat: -14.5, Lon: 175.4}},
	}

	visible := QuestionLayers(posts, true)
	require.Len(t, visible, 2)
	assert.Equal(t, "question-12", visible[0].ID)
	assert.Equal(t, canvas.KindPolygon, visible[0].Kind)
	assert.Equal(t, 1.0, visible[0].Style.Opacity)
	assert.Equal(t, 0.3, visible[0].Style.FillOpacity)
	assert.Equal(t, "12", visible[0].Target)
	assert.Equal(t, ActionExpandQuestion, visible[0].Popup.Actions[0].Name)
	assert.Contains(t, visible[0].Popup.HTML, "What is this?")

	assert.Equal(t, canvas.KindCircle, visible[1].Kind)
	assert.Equal(t, []geo.LatLon{{Lat: -14.5, Lon: 175.4}}, visible[1].Points)

	hidden := QuestionLayers(posts, false)
	assert.Zero(t, hidden[0].Style.Opacity)
	assert.Zero(t, hidden[0].Style.FillOpacity)
}

func TestSearchMarker(t *testing.T) {
	m := SearchMarker("search-1", geo.LatLon{Lat: -14.5, Lon: 175.4})

	assert.Equal(t, canvas.GroupSearch, m.Group)
	assert.Equal(t, SearchMarkerColor, m.Style.FillColor)
	assert.Equal(t, 10.0, m.Style.Radius)
	assert.Equal(t, "<b>Search Location</b><br>Lat: -14.5000°<br>Lon: 175.4000°", m.Popup.HTML)
	assert.True(t, m.Popup.Open)
}

func TestDistancePopup(t *testing.T) {
	assert.Equal(t, "<b>Distance</b><br>59.16 km", DistancePopup(59.157))
}
