package notify

import (
	"bytes"
	"context"
	"fmt"

	"activity-signups/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// SearchIndexer stores each event as a document keyed by event ID.
type SearchIndexer struct {
	client *elasticsearch.Client
	index  string
}

func NewSearchIndexer(client *elasticsearch.Client, index string) *SearchIndexer {
	return &SearchIndexer{client: client, index: index}
}

func (s *SearchIndexer) Name() string { return "search" }

func (s *SearchIndexer) Notify(ctx context.Context, event models.RosterEvent) error {
	body, err := encodeEvent(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(event.ID),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch index error: %s", res.Status())
	}
	return nil
}
