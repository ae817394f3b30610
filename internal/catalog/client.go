package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/drstein77/storefront/internal/models"
)

// DefaultBaseURL is the mock upstream serving the product list.
const DefaultBaseURL = "https://fake.jsonmockapi.com"

// MaxPageSize is the largest page the upstream returns for a single request.
// Larger catalogs are fetched in consecutive pages.
const MaxPageSize = 50

// Client reads products from the upstream HTTP API.
type Client struct {
	baseURL string
	length  int
	http    *http.Client
}

// NewClient creates a Client for baseURL that fetches length products per FetchProducts call.
func NewClient(baseURL string, length int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if length <= 0 {
		length = MaxPageSize
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		length:  length,
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchProducts returns up to the configured number of products.
// Requests above MaxPageSize are split into pages; a short page ends the walk early.
func (c *Client) FetchProducts(ctx context.Context) ([]models.Product, error) {
	var all []models.Product

	for offset := 0; offset < c.length; offset += MaxPageSize {
		size := MaxPageSize
		if offset+size > c.length {
			size = c.length - offset
		}

		page, err := c.fetchPage(ctx, offset, size)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if len(page) < size {
			break
		}
	}

	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, offset, size int) ([]models.Product, error) {
	q := url.Values{}
	q.Set("length", strconv.Itoa(size))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	endpoint := c.baseURL + "/products?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create products request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, res.Body)
		return nil, fmt.Errorf("products API responded with status %d", res.StatusCode)
	}

	var products []models.Product
	if err := json.NewDecoder(res.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}
