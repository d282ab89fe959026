package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pable/squadstats/internal/aggregator"
	"github.com/pable/squadstats/internal/model"
)

func kdRow(user, id, mapID string, start int64, kills, deaths float64) model.Row {
	return model.Row{
		User: user, MatchID: model.MatchID(id), StartTime: start, Map: mapID,
		Stats: map[string]float64{"kills": kills, "deaths": deaths},
	}
}

func sampleDataset() *model.Dataset {
	return &model.Dataset{
		Columns: []string{"deaths", "kills"},
		Rows: []model.Row{
			kdRow("alice", "1", "mp_hackney_yard", 300, 10, 5),
			kdRow("bob", "1", "mp_hackney_yard", 300, 3, 0),
			kdRow("alice", "2", "mp_petrograd", 100, 2, 4),
			kdRow("alice", "3", "mp_hackney_yard", 200, 2, 3),
		},
	}
}

func TestDisplayMap(t *testing.T) {
	cases := map[string]string{
		"mp_hackney_yard": "hackney_yard",
		"mp_m1":           "m1",
		"shipment":        "shipment",
		"mp_":             "mp_",
		"":                "",
	}
	for in, want := range cases {
		if got := DisplayMap(in); got != want {
			t.Errorf("DisplayMap(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMapKD(t *testing.T) {
	kd := MapKD(sampleDataset())

	if strings.Join(kd.Players, ",") != "alice,bob" {
		t.Errorf("players = %v", kd.Players)
	}
	if strings.Join(kd.Maps, ",") != "mp_hackney_yard,mp_petrograd" {
		t.Errorf("maps = %v", kd.Maps)
	}

	// alice on hackney: (10+2)/(5+3) = 1.5
	if v, ok := kd.Get("alice", "mp_hackney_yard"); !ok || v != 1.5 {
		t.Errorf("alice hackney K/D = %v (%v), want 1.5", v, ok)
	}
	if v, _ := kd.Get("alice", "mp_petrograd"); v != 0.5 {
		t.Errorf("alice petrograd K/D = %v, want 0.5", v)
	}
	if v, _ := kd.Get("bob", "mp_hackney_yard"); v != 3 {
		t.Errorf("bob K/D with no deaths = %v, want kill total 3", v)
	}
	if _, ok := kd.Get("bob", "mp_petrograd"); ok {
		t.Error("bob never played petrograd")
	}
}

func TestPrintMapKDTable(t *testing.T) {
	var buf bytes.Buffer
	PrintMapKDTable(&buf, MapKD(sampleDataset()))
	out := buf.String()

	for _, want := range []string{"ALICE", "BOB", "hackney_yard", "petrograd", "1.50", "3.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "mp_") {
		t.Errorf("map prefix should be stripped:\n%s", out)
	}
}

func TestPlayerTrend(t *testing.T) {
	points := PlayerTrend(sampleDataset(), "alice")
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[0].MatchID != "2" || points[1].MatchID != "3" || points[2].MatchID != "1" {
		t.Errorf("expected chronological order 2,3,1, got %s,%s,%s",
			points[0].MatchID, points[1].MatchID, points[2].MatchID)
	}
	// Rolling after match 3: (2+2)/(4+3)
	if got, want := points[1].RollingKD, 4.0/7.0; got != want {
		t.Errorf("rolling K/D = %v, want %v", got, want)
	}
	if points[2].KD != 2 {
		t.Errorf("match 1 K/D = %v, want 2", points[2].KD)
	}

	if len(PlayerTrend(sampleDataset(), "nobody")) != 0 {
		t.Error("expected no points for unknown player")
	}
}

func TestPrintPlayerOverview(t *testing.T) {
	var buf bytes.Buffer
	PrintPlayerOverview(&buf, aggregator.Aggregate(sampleDataset()))
	out := buf.String()
	if !strings.Contains(out, "alice") || !strings.Contains(out, "PLAYER") {
		t.Errorf("unexpected overview:\n%s", out)
	}
}

func TestPrintRows(t *testing.T) {
	var buf bytes.Buffer
	d := sampleDataset()
	d.Rows[1].Stats = map[string]float64{"kills": 3}
	PrintRows(&buf, d.Rows, []string{"kills", "deaths"})
	out := buf.String()
	if !strings.Contains(out, "KILLS") || !strings.Contains(out, "—") {
		t.Errorf("unexpected rows output:\n%s", out)
	}
}
