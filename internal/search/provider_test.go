package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/search", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[
			{"title":"A","url":"https://a.com/x","snippet":"sa","domain":"a.com"},
			{"title":"B","url":"https://sub.b.com/y","snippet":"sb","domain":""},
			{"title":"no url","url":"","snippet":"dropped","domain":""}
		]}`)
	}))
	defer srv.Close()

	c := NewProviderClient(srv.URL)
	hits, err := c.Search(context.Background(), "go", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2, "hits without a URL are dropped")
	assert.Equal(t, "a.com", hits[0].Domain)
	assert.Equal(t, "sub.b.com", hits[1].Domain, "missing domain is derived from the URL")
}

func TestProviderClientSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewProviderClient(srv.URL)
	_, err := c.Search(context.Background(), "go", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
