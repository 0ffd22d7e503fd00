package search

import (
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
)

// NewClient returns an elasticsearch client for the given nodes. A nil transport
// falls back to the client default.
func NewClient(addresses []string, transport http.RoundTripper) (*elasticsearch.Client, error) {
	if len(addresses) == 0 {
		return nil, ErrSearchDisabled
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("new elasticsearch client: %w", err)
	}
	return client, nil
}
