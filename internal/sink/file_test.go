package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/octobees/placeharvest/internal/entity"
)

func sampleRecords() []entity.BusinessRecord {
	address := "1 Main St"
	phone := "+12125550123"
	website := "http://cafe.example"
	email := "info@cafe.example"
	rating := 4.5
	reviews := 120
	scrapedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	return []entity.BusinessRecord{
		{
			PlaceID:   "place-1",
			RunID:     uuid.New(),
			Name:      "Cafe Uno",
			Address:   &address,
			Phone:     &phone,
			Website:   &website,
			Email:     &email,
			Rating:    &rating,
			Reviews:   &reviews,
			Types:     []string{"cafe", "food"},
			ScrapedAt: &scrapedAt,
		},
		{
			PlaceID: "place-2",
			RunID:   uuid.New(),
			Name:    "Bare Minimum",
		},
	}
}

func TestCSVSinkWrite(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out")
	s := NewCSVSink(base)

	if err := s.Write(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	file, err := os.Open(base + ".csv")
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "place_id" || rows[0][1] != "name" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "Cafe Uno" || rows[1][6] != "4.5" || rows[1][8] != "cafe, food" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	// Optional fields of the bare record serialize as empty cells.
	if rows[2][2] != "" || rows[2][6] != "" {
		t.Fatalf("expected empty optional cells: %v", rows[2])
	}
}

func TestCSVSinkCreateFailure(t *testing.T) {
	s := NewCSVSink(filepath.Join(t.TempDir(), "missing", "nested", "out"))
	if err := s.Write(context.Background(), sampleRecords()); err == nil {
		t.Fatalf("expected error for unwritable path")
	}
}

func TestJSONSinkWrite(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out")
	s := NewJSONSink(base)

	if err := s.Write(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(base + ".json")
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	var decoded []entity.BusinessRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Name != "Cafe Uno" {
		t.Fatalf("unexpected decoded records: %+v", decoded)
	}
	if decoded[1].Address != nil {
		t.Fatalf("expected absent address to stay nil")
	}
}

type failingSink struct{}

func (failingSink) Name() string { return "failing" }
func (failingSink) Write(ctx context.Context, records []entity.BusinessRecord) error {
	return errors.New("disk full")
}

func TestWriteAllIsolatesFailures(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out")
	sinks := []Sink{failingSink{}, NewJSONSink(base)}

	errs := WriteAll(context.Background(), sinks, sampleRecords())
	if len(errs) != 1 {
		t.Fatalf("expected one sink error, got %d", len(errs))
	}

	var sinkErr *SinkError
	if !errors.As(errs[0], &sinkErr) || sinkErr.Sink != "failing" {
		t.Fatalf("unexpected sink error: %v", errs[0])
	}

	// The healthy sink still wrote its output.
	if _, err := os.Stat(base + ".json"); err != nil {
		t.Fatalf("expected json output despite failing sink: %v", err)
	}
}
