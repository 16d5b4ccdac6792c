package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/explorebd/explorebd-api/internal/config"
	"github.com/explorebd/explorebd-api/internal/models"
)

const IndexName = "tours"

type Client struct {
	baseURL string
	index   string
	client  *http.Client
}

// NewClient connects to the cluster and makes sure the tours index exists.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	client := &Client{
		baseURL: strings.TrimRight(cfg.ElasticsearchURL, "/"),
		index:   IndexName,
		client:  &http.Client{Timeout: 10 * time.Second},
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping Elasticsearch: %w", err)
	}
	if err := client.CreateIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return client, nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.client.Do(req)
}

func failure(op string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%s failed with status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
}

func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping failed with status: %d", resp.StatusCode)
	}
	return nil
}

const tourMapping = `{
	"mappings": {
		"properties": {
			"id": {"type": "integer"},
			"name": {"type": "text", "analyzer": "standard"},
			"location": {"type": "text", "analyzer": "standard"},
			"destination": {"type": "text", "analyzer": "standard"},
			"duration": {"type": "keyword"},
			"description": {"type": "text", "analyzer": "standard"},
			"highlights": {"type": "text", "analyzer": "standard"},
			"price": {"type": "long"},
			"rating": {"type": "float"},
			"status": {"type": "keyword"},
			"bookings": {"type": "integer"}
		}
	}
}`

func (c *Client) CreateIndex(ctx context.Context) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.index)
	resp, err := c.do(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	resp, err = c.do(ctx, http.MethodPut, url, []byte(tourMapping))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return failure("create index", resp)
	}
	return nil
}

func (c *Client) IndexTour(ctx context.Context, doc *models.TourDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal tour: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_doc/%d?refresh=true", c.baseURL, c.index, doc.ID)
	resp, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return failure("index tour", resp)
	}
	return nil
}

// DeleteTour removes a document. A document that is already gone is not an error.
func (c *Client) DeleteTour(ctx context.Context, id uint) error {
	url := fmt.Sprintf("%s/%s/_doc/%d?refresh=true", c.baseURL, c.index, id)
	resp, err := c.do(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return failure("delete tour", resp)
	}
	return nil
}

func (c *Client) SearchTours(ctx context.Context, query map[string]any) ([]models.TourDocument, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", c.baseURL, c.index)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, failure("search", resp)
	}

	var searchResponse struct {
		Hits struct {
			Hits []struct {
				Source models.TourDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResponse); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	tours := make([]models.TourDocument, len(searchResponse.Hits.Hits))
	for i, hit := range searchResponse.Hits.Hits {
		tours[i] = hit.Source
	}
	return tours, nil
}

// Search runs a free-text query over active tours.
func (c *Client) Search(ctx context.Context, term, location string) ([]models.TourDocument, error) {
	return c.SearchTours(ctx, BuildSearchQuery(term, location))
}

// BuildSearchQuery matches term against the text fields and location against
// location or destination, restricted to active tours.
func BuildSearchQuery(term, location string) map[string]any {
	must := []map[string]any{}

	if term = strings.TrimSpace(term); term != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":     term,
				"fields":    []string{"name^2", "destination^1.5", "description", "highlights"},
				"fuzziness": "AUTO",
			},
		})
	}
	if location = strings.TrimSpace(location); location != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  location,
				"fields": []string{"location", "destination"},
			},
		})
	}

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": must,
				"filter": []map[string]any{
					{"term": map[string]any{"status": string(models.TourActive)}},
				},
			},
		},
		"sort": []any{"_score", map[string]any{"rating": "desc"}},
		"size": 50,
	}
}
