package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/octobees/placeharvest/internal/entity"
)

// JSONSink dumps the full record list to an indented JSON file.
type JSONSink struct {
	path string
}

// NewJSONSink builds a sink writing to base path plus a .json extension.
func NewJSONSink(basePath string) *JSONSink {
	return &JSONSink{path: basePath + ".json"}
}

// Name identifies the sink in failure reports.
func (s *JSONSink) Name() string {
	return "json:" + s.path
}

// Write creates (or truncates) the file and writes all records.
func (s *JSONSink) Write(ctx context.Context, records []entity.BusinessRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if records == nil {
		records = []entity.BusinessRecord{}
	}
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return file.Close()
}

var _ Sink = (*JSONSink)(nil)
