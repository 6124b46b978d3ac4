package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/octobees/placeharvest/internal/entity"
)

var csvHeader = []string{"place_id", "name", "address", "phone", "website", "email", "rating", "reviews", "types"}

// CSVSink writes records to a CSV file, one row per business.
type CSVSink struct {
	path string
}

// NewCSVSink builds a sink writing to base path plus a .csv extension.
func NewCSVSink(basePath string) *CSVSink {
	return &CSVSink{path: basePath + ".csv"}
}

// Name identifies the sink in failure reports.
func (s *CSVSink) Name() string {
	return "csv:" + s.path
}

// Write creates (or truncates) the file and writes all records.
func (s *CSVSink) Write(ctx context.Context, records []entity.BusinessRecord) error {
	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []string{
			record.PlaceID,
			record.Name,
			deref(record.Address),
			deref(record.Phone),
			deref(record.Website),
			deref(record.Email),
			formatFloat(record.Rating),
			formatInt(record.Reviews),
			strings.Join(record.Types, ", "),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return file.Close()
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

func formatInt(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}

var _ Sink = (*CSVSink)(nil)
