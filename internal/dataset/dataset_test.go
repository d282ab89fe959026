package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pable/squadstats/internal/model"
)

func sample() *model.Dataset {
	return &model.Dataset{
		Columns: []string{"deaths", "kills"},
		Rows: []model.Row{
			{User: "alice", MatchID: "101", StartTime: 1000, EndTime: 2000, Map: "mp_m1",
				Stats: map[string]float64{"kills": 8, "deaths": 4}},
			{User: "bob", MatchID: "101", StartTime: 1000, EndTime: 2000, Map: "mp_m1",
				Stats: map[string]float64{"kills": 2.5}},
		},
	}
}

func TestMergeIdentity(t *testing.T) {
	d := sample()
	got := Merge(d, nil)
	if !reflect.DeepEqual(got, d) {
		t.Errorf("Merge(D, nil) = %+v, want %+v", got, d)
	}
}

func TestMergeKeepsExistingPrefix(t *testing.T) {
	d := sample()
	incoming := []model.Row{
		{User: "carol", MatchID: "102", Stats: map[string]float64{"score": 300, "assists": 1, "kills": 3}},
		{User: "alice", MatchID: "102", Stats: map[string]float64{"headshots": 2}},
	}
	got := Merge(d, incoming)

	if len(got.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(got.Rows))
	}
	if !reflect.DeepEqual(got.Rows[:2], d.Rows) {
		t.Error("existing rows must be a prefix of the merged dataset")
	}
	if got.Rows[2].User != "carol" || got.Rows[3].User != "alice" {
		t.Errorf("incoming order not preserved: %+v", got.Rows[2:])
	}
	wantCols := []string{"deaths", "kills", "assists", "headshots", "score"}
	if !reflect.DeepEqual(got.Columns, wantCols) {
		t.Errorf("columns = %v, want %v", got.Columns, wantCols)
	}
	if len(d.Columns) != 2 || len(d.Rows) != 2 {
		t.Error("Merge mutated its input")
	}
}

func TestMergeIntoEmpty(t *testing.T) {
	got := Merge(&model.Dataset{}, []model.Row{{User: "a", MatchID: "1", Stats: map[string]float64{"kills": 1}}})
	if len(got.Rows) != 1 || !reflect.DeepEqual(got.Columns, []string{"kills"}) {
		t.Errorf("unexpected merge result %+v", got)
	}
}

func TestKnownIDs(t *testing.T) {
	ids := KnownIDs(sample())
	if len(ids) != 1 || !ids.Has("101") || !ids.Has("101.0") {
		t.Errorf("unexpected known ids %v", ids)
	}
	if len(KnownIDs(nil)) != 0 {
		t.Error("KnownIDs(nil) should be empty")
	}
}

func TestWriteCSVLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := ",user,matchId,startTime,endTime,map,deaths,kills\n" +
		"0,alice,101,1000,2000,mp_m1,4,8\n" +
		"1,bob,101,1000,2000,mp_m1,,2.5\n"
	if buf.String() != want {
		t.Errorf("csv:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestReadCSVPandasStyle(t *testing.T) {
	in := "Unnamed: 0,user,matchId,startTime,endTime,map,kills\n" +
		"0,alice,101.0,1000.0,2000,mp_m1,3.0\n" +
		"1,bob,00102,1000,2000,mp_m2,\n"
	d, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(d.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(d.Rows))
	}
	if d.Rows[0].MatchID != "101" || d.Rows[0].StartTime != 1000 || d.Rows[0].Stats["kills"] != 3 {
		t.Errorf("unexpected first row %+v", d.Rows[0])
	}
	if d.Rows[1].MatchID != "102" {
		t.Errorf("expected canonical id 102, got %q", d.Rows[1].MatchID)
	}
	if _, ok := d.Rows[1].Stats["kills"]; ok {
		t.Error("empty cell should be absent")
	}
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(",user,matchId,startTime,map\n"))
	if err == nil || !strings.Contains(err.Error(), "endTime") {
		t.Errorf("expected missing endTime error, got %v", err)
	}
}

func TestCSVStoreRoundTrip(t *testing.T) {
	for _, name := range []string{"data.csv", "data.csv.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			store := NewCSVStore(path)
			ctx := context.Background()

			if err := store.Save(ctx, sample()); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if want := sample(); !reflect.DeepEqual(got, want) {
				t.Errorf("round trip:\n got %+v\nwant %+v", got, want)
			}

			entries, _ := os.ReadDir(filepath.Dir(path))
			if len(entries) != 1 {
				t.Errorf("expected only the dataset file, found %d entries", len(entries))
			}
		})
	}
}

func TestCSVStoreCompressedOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv.zst")
	if err := NewCSVStore(path).Save(context.Background(), sample()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		t.Errorf("expected zstd frame magic, got % x", raw[:4])
	}
}

func TestCSVStoreFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := NewCSVStore(path).Save(context.Background(), sample()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0644 {
		t.Errorf("dataset mode = %v, want 0644", fi.Mode().Perm())
	}
}

func TestCSVStoreFailedSaveKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	store := NewCSVStore(path)
	if err := store.Save(context.Background(), sample()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	bigger := Merge(sample(), []model.Row{{User: "carol", MatchID: "102", Stats: map[string]float64{"kills": 1}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Save(ctx, bigger); err == nil {
		t.Fatal("expected Save with a cancelled context to fail")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Errorf("failed save changed the dataset:\n got %q\nwant %q", after, before)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, found %d entries", len(entries))
	}
}

func TestUsers(t *testing.T) {
	d := Merge(sample(), []model.Row{{User: "alice", MatchID: "102"}, {User: "carol", MatchID: "102"}})
	if got, want := Users(d), []string{"alice", "bob", "carol"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Users = %v, want %v", got, want)
	}
}

func TestCSVStoreMissingFile(t *testing.T) {
	d, err := NewCSVStore(filepath.Join(t.TempDir(), "none.csv")).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(d.Rows) != 0 || len(d.Columns) != 0 {
		t.Errorf("expected empty dataset, got %+v", d)
	}
}
