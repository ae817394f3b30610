package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

const twoProducts = `[
  {"id": 1, "productName": "Lamp", "description": "desk lamp", "category": "home", "price": 19.99,
   "stock": 4, "manufacturer": "Acme", "sku": 1001, "image": "https://img/1.png", "thumbnail": "https://img/1t.png"},
  {"id": 2, "productName": "Mug", "description": "coffee mug", "category": "kitchen", "price": 5,
   "stock": 0, "manufacturer": "Acme", "sku": 1002, "image": "https://img/2.png", "thumbnail": "https://img/2t.png"}
]`

func TestClientFetchProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("length"))
		assert.Empty(t, r.URL.Query().Get("offset"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(twoProducts))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 0, time.Second)
	products, err := c.FetchProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "Lamp", products[0].Name)
	assert.Equal(t, "19.99", products[0].Price.String())
	assert.Equal(t, int64(1001), products[0].SKU)
	assert.Equal(t, "https://img/2t.png", products[1].Thumbnail)
	assert.Equal(t, 0, products[1].Stock)
}

func TestClientFetchProductsPaged(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		length, _ := strconv.Atoi(r.URL.Query().Get("length"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		// the upstream only has 70 products
		if offset+length > 70 {
			length = 70 - offset
		}
		w.Write([]byte("["))
		for i := 0; i < length; i++ {
			if i > 0 {
				w.Write([]byte(","))
			}
			w.Write([]byte(`{"id":` + strconv.Itoa(offset+i+1) + `,"price":1}`))
		}
		w.Write([]byte("]"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 120, time.Second)
	products, err := c.FetchProducts(context.Background())
	require.NoError(t, err)

	assert.Len(t, products, 70)
	assert.Equal(t, 70, products[69].ID)
	assert.Equal(t, int32(2), calls.Load(), "short second page ends the walk")
}

func TestClientFetchProductsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 10, time.Second)
	_, err := c.FetchProducts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClientFetchProductsBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "a list"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 10, time.Second)
	_, err := c.FetchProducts(context.Background())
	require.ErrorContains(t, err, "failed to decode products")
}
