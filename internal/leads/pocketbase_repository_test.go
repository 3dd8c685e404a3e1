package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/studio-site/internal/pocketbase"
)

type contentStore struct {
	*httptest.Server
	auths   atomic.Int32
	creates atomic.Int32
	// createStatus returns the status for the nth create call (1-based).
	createStatus func(n int32, token string) int
	lastRecord   map[string]string
}

func newContentStore(t *testing.T, createStatus func(n int32, token string) int) *contentStore {
	t.Helper()
	cs := &contentStore{createStatus: createStatus}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/collections/users/auth-with-password", func(w http.ResponseWriter, r *http.Request) {
		n := cs.auths.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "token-" + string(rune('0'+n))})
	})
	mux.HandleFunc("/api/collections/leads/records", func(w http.ResponseWriter, r *http.Request) {
		n := cs.creates.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&cs.lastRecord)
		token := r.Header.Get("Authorization")
		w.WriteHeader(cs.createStatus(n, token))
		_, _ = w.Write([]byte(`{}`))
	})
	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Close)
	return cs
}

func newTestRepository(baseURL string) *PocketBaseRepository {
	client := pocketbase.NewClient(pocketbase.Config{BaseURL: baseURL}, nil)
	tokens := pocketbase.NewTokenProvider(client, pocketbase.ServiceAccount{
		Identity: "svc@example.com",
		Password: "secret",
	}, nil)
	return NewPocketBaseRepository(client, tokens, nil)
}

func testSubmission(t *testing.T) *Submission {
	t.Helper()
	sub, err := Validate(validPayload())
	require.NoError(t, err)
	return sub
}

type upstreamRecorder struct {
	results []string
}

func (u *upstreamRecorder) ObserveUpstream(operation, result string, seconds float64) {
	u.results = append(u.results, operation+":"+result)
}

func TestPocketBaseRepository_Create(t *testing.T) {
	store := newContentStore(t, func(int32, string) int { return http.StatusOK })
	observer := &upstreamRecorder{}
	repo := newTestRepository(store.URL).WithObserver(observer)

	require.NoError(t, repo.Create(context.Background(), testSubmission(t)))

	assert.Equal(t, int32(1), store.auths.Load())
	assert.Equal(t, int32(1), store.creates.Load())
	assert.Equal(t, map[string]string{
		"name":         "Ada Lovelace",
		"purpose":      "Residential",
		"email":        "ada@example.com",
		"phone_number": "+91 98765 43210",
		"message":      "We would like to design a courtyard house.",
		"page_url":     "https://studio.example.com/design",
	}, store.lastRecord)
	assert.Equal(t, []string{"create_lead:ok"}, observer.results)
}

func TestPocketBaseRepository_RetriesOnceAfter401(t *testing.T) {
	store := newContentStore(t, func(n int32, token string) int {
		if n == 1 {
			return http.StatusUnauthorized
		}
		assert.Equal(t, "Bearer token-2", token)
		return http.StatusOK
	})
	repo := newTestRepository(store.URL)

	require.NoError(t, repo.Create(context.Background(), testSubmission(t)))
	assert.Equal(t, int32(2), store.auths.Load())
	assert.Equal(t, int32(2), store.creates.Load())
}

func TestPocketBaseRepository_NeverRetriesTwice(t *testing.T) {
	store := newContentStore(t, func(int32, string) int { return http.StatusUnauthorized })
	repo := newTestRepository(store.URL)

	err := repo.Create(context.Background(), testSubmission(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.ErrorIs(t, err, pocketbase.ErrUnauthorized)
	assert.Equal(t, int32(2), store.auths.Load())
	assert.Equal(t, int32(2), store.creates.Load())
}

func TestPocketBaseRepository_OtherErrorsAreFinal(t *testing.T) {
	store := newContentStore(t, func(int32, string) int { return http.StatusBadRequest })
	repo := newTestRepository(store.URL)

	err := repo.Create(context.Background(), testSubmission(t))
	var apiErr *pocketbase.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, int32(1), store.creates.Load())
}

func TestPocketBaseRepository_CheckConfig(t *testing.T) {
	assert.ErrorIs(t, newTestRepository("").CheckConfig(), pocketbase.ErrBaseURLMissing)

	client := pocketbase.NewClient(pocketbase.Config{BaseURL: "https://pb.example.com"}, nil)
	repo := NewPocketBaseRepository(client, pocketbase.NewTokenProvider(client, pocketbase.ServiceAccount{}, nil), nil)
	assert.ErrorIs(t, repo.CheckConfig(), pocketbase.ErrCredentialsMissing)

	assert.NoError(t, newTestRepository("https://pb.example.com").CheckConfig())
}
