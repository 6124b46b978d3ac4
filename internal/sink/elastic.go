package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/octobees/placeharvest/internal/entity"
)

// ElasticSink bulk-indexes records into an Elasticsearch index so harvested
// leads can be searched.
type ElasticSink struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticSink builds a sink against the given Elasticsearch address.
func NewElasticSink(address, index string) (*ElasticSink, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{address},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &ElasticSink{client: client, index: index}, nil
}

// Name identifies the sink in failure reports.
func (s *ElasticSink) Name() string {
	return "elasticsearch:" + s.index
}

// Write bulk-indexes all records, keyed by place identifier.
func (s *ElasticSink) Write(ctx context.Context, records []entity.BusinessRecord) error {
	if len(records) == 0 {
		return nil
	}

	indexer, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client: s.client,
		Index:  s.index,
	})
	if err != nil {
		return fmt.Errorf("create bulk indexer: %w", err)
	}

	for _, record := range records {
		body, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", record.PlaceID, err)
		}

		err = indexer.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: record.PlaceID,
			Body:       bytes.NewReader(body),
		})
		if err != nil {
			return fmt.Errorf("enqueue record %s: %w", record.PlaceID, err)
		}
	}

	if err := indexer.Close(ctx); err != nil {
		return fmt.Errorf("flush bulk indexer: %w", err)
	}

	stats := indexer.Stats()
	if stats.NumFailed > 0 {
		return fmt.Errorf("bulk indexing failed for %d of %d records", stats.NumFailed, len(records))
	}
	return nil
}

var _ Sink = (*ElasticSink)(nil)
