// api/audit/repository.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type Repository interface {
	Save(ctx context.Context, record AuditRecord) error
	Query(ctx context.Context, filter AuditFilter) ([]AuditRecord, error)
}

const DefaultIndex = "audit-records"

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
	index    string
}

// NewElasticsearchRepository creates a new repository with a given Elasticsearch client URL.
func NewElasticsearchRepository(esURL, index string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if index == "" {
		index = DefaultIndex
	}
	return &ElasticsearchRepository{esClient: esClient, index: index}, nil
}

// Save indexes one audit record under its own id.
func (r *ElasticsearchRepository) Save(ctx context.Context, record AuditRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: record.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}
	return nil
}

// Query returns the newest records matching filter.
func (r *ElasticsearchRepository) Query(ctx context.Context, filter AuditFilter) ([]AuditRecord, error) {
	filter = filter.Normalize()

	must := []interface{}{}
	for field, value := range map[string]string{
		"actor_id":      filter.ActorID,
		"tenant_id":     filter.TenantID,
		"action":        filter.Action,
		"resource_type": filter.ResourceType,
		"resource_id":   filter.ResourceID,
		"status":        filter.Status,
	} {
		if value != "" {
			must = append(must, map[string]interface{}{
				"match": map[string]interface{}{field: value},
			})
		}
	}
	if !filter.From.IsZero() || !filter.To.IsZero() {
		rng := map[string]interface{}{}
		if !filter.From.IsZero() {
			rng["gte"] = filter.From.Format(time.RFC3339)
		}
		if !filter.To.IsZero() {
			rng["lte"] = filter.To.Format(time.RFC3339)
		}
		must = append(must, map[string]interface{}{
			"range": map[string]interface{}{"created_at": rng},
		})
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
		"sort": []interface{}{
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
		},
		"from": filter.Offset,
		"size": filter.Limit,
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(r.index),
		r.esClient.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching documents: %s", res.String())
	}

	var body struct {
		Hits struct {
			Hits []struct {
				Source AuditRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, err
	}

	records := make([]AuditRecord, len(body.Hits.Hits))
	for i, hit := range body.Hits.Hits {
		records[i] = hit.Source
	}
	return records, nil
}
