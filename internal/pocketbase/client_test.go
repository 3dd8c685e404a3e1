package pocketbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_SendsFilterAndPaging(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/collections/SEO_pages/records", r.URL.Path)
		assert.Equal(t, "(route='/about')", r.URL.Query().Get("filter"))
		assert.Equal(t, "1", r.URL.Query().Get("perPage"))
		_, _ = w.Write([]byte(`{"page":1,"perPage":1,"totalItems":1,"totalPages":1,"items":[{"id":"abc","route":"/about"}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/"}, nil)
	result, err := client.List(context.Background(), "SEO_pages", ListOptions{
		Filter:  "(route=" + QuoteFilterValue("/about") + ")",
		PerPage: 1,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 1, result.TotalItems)
	assert.JSONEq(t, `{"id":"abc","route":"/about"}`, string(result.Items[0]))
}

func TestList_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"forbidden"}`))
	}))
	defer server.Close()

	_, err := NewClient(Config{BaseURL: server.URL}, nil).List(context.Background(), "blog", ListOptions{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestListAll_FollowsTotalPages(t *testing.T) {
	var pages []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pages = append(pages, page)
		assert.Equal(t, "200", r.URL.Query().Get("perPage"))
		assert.Equal(t, "published=true", r.URL.Query().Get("filter"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"page":       page,
			"perPage":    200,
			"totalPages": 3,
			"items":      []map[string]string{{"slug": fmt.Sprintf("post-%d", page)}},
		})
	}))
	defer server.Close()

	items, err := NewClient(Config{BaseURL: server.URL}, nil).ListAll(context.Background(), "blog", "published=true")
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, []int{1, 2, 3}, pages)
}

func TestCreateRecord_SendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/collections/leads/records", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ada", body["name"])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"rec1"}`))
	}))
	defer server.Close()

	err := NewClient(Config{BaseURL: server.URL}, nil).CreateRecord(context.Background(), "leads", "tok", map[string]string{"name": "Ada"})
	require.NoError(t, err)
}

func TestCreateRecord_UnauthorizedIsDetectable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	err := NewClient(Config{BaseURL: server.URL}, nil).CreateRecord(context.Background(), "leads", "stale", map[string]string{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_MissingBaseURL(t *testing.T) {
	client := NewClient(Config{}, nil)
	_, err := client.List(context.Background(), "blog", ListOptions{})
	assert.ErrorIs(t, err, ErrBaseURLMissing)
	assert.ErrorIs(t, client.CreateRecord(context.Background(), "leads", "", nil), ErrBaseURLMissing)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "https://pb.example.com", NormalizeBaseURL(" https://pb.example.com// "))
	assert.Equal(t, `'it\'s'`, QuoteFilterValue("it's"))
	assert.Equal(t,
		"https://pb.example.com/api/files/col1/rec1/og%20image.png",
		FileURL("https://pb.example.com/", "col1", "rec1", "og image.png"))
}

func TestEncodeComponent(t *testing.T) {
	cases := map[string]string{
		"photo(1).jpg":    "photo(1).jpg",
		"it's-*ok*~!.png": "it's-*ok*~!.png",
		"og image.png":    "og%20image.png",
		"a&b+c=d/e?.png":  "a%26b%2Bc%3Dd%2Fe%3F.png",
		"100%.png":        "100%25.png",
		"caf\u00e9.png":   "caf%C3%A9.png",
	}
	for in, want := range cases {
		assert.Equal(t, want, encodeComponent(in), in)
	}
}
