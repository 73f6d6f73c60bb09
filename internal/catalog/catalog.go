// Package catalog loads and memoizes the product catalog.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrCatalogLoad indicates the catalog source was unreachable or malformed.
// Fatal to catalog-dependent operations, never to the process.
var ErrCatalogLoad = errors.New("catalog load failed")

// Product is an immutable record from the catalog.
type Product struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// document is the catalog wire shape: { "products": [...] }.
type document struct {
	Products []Product `json:"products"`
}

// Cache loads the product list once and memoizes it for the process
// lifetime. Concurrent first loads coalesce into a single fetch.
type Cache struct {
	source     string
	httpClient *http.Client
	logger     *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	products []Product
	loaded   bool
}

// NewCache creates a catalog cache for the given source, which may be an
// http(s) URL or a local file path.
func NewCache(source string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		source:     source,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Load returns the product list, fetching it on first use. A successful
// load is never refetched; a failed load is not memoized so a later call
// may retry.
func (c *Cache) Load(ctx context.Context) ([]Product, error) {
	c.mu.RLock()
	if c.loaded {
		products := c.products
		c.mu.RUnlock()
		return products, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("catalog", func() (any, error) {
		// Another caller may have filled the cache while we waited.
		c.mu.RLock()
		if c.loaded {
			products := c.products
			c.mu.RUnlock()
			return products, nil
		}
		c.mu.RUnlock()

		products, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.products = products
		c.loaded = true
		c.mu.Unlock()

		c.logger.Info("catalog loaded", "source", c.source, "products", len(products))
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Product), nil
}

// Find resolves a single product by id, loading the catalog if needed.
func (c *Cache) Find(ctx context.Context, id int) (Product, bool, error) {
	products, err := c.Load(ctx)
	if err != nil {
		return Product{}, false, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, true, nil
		}
	}
	return Product{}, false, nil
}

// fetch reads and decodes the catalog document from the configured source.
func (c *Cache) fetch(ctx context.Context) ([]Product, error) {
	var raw []byte
	var err error

	if strings.HasPrefix(c.source, "http://") || strings.HasPrefix(c.source, "https://") {
		raw, err = c.fetchHTTP(ctx)
	} else {
		raw, err = os.ReadFile(c.source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrCatalogLoad, c.source, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCatalogLoad, c.source, err)
	}

	return doc.Products, nil
}

func (c *Cache) fetchHTTP(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}
