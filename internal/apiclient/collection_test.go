package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"nextflow/internal/httpserver"
	"nextflow/internal/logging"
	"nextflow/internal/repo"
	"nextflow/migrations"
)

func newAPI(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	logger := logging.Discard()
	store, err := repo.Open(ctx, filepath.Join(t.TempDir(), "client.db"), "", logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.RunMigrations(ctx, migrations.Files))

	srv := httptest.NewServer(httpserver.New(":0", "/api", logger, nil, httpserver.Dependencies{Store: store}).Handler())
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", srv.Client())
}

func TestCollectionReloadsAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	plans := NewCollection[repo.Plan](newAPI(t), "plans")

	items, err := plans.Items(ctx)
	require.NoError(t, err)
	require.Empty(t, items)

	id, err := plans.Create(ctx, map[string]any{"id": "p1", "name": "Basic", "price": 29.9, "duration": 30, "features": "[]"})
	require.NoError(t, err)
	require.Equal(t, "p1", id)
	require.Len(t, plans.Snapshot(), 1)
	require.Equal(t, repo.StatusActive, plans.Snapshot()[0].Status)

	require.NoError(t, plans.Update(ctx, "p1", map[string]any{"name": "Basic+"}))
	require.Equal(t, "Basic+", plans.Snapshot()[0].Name)

	require.NoError(t, plans.Delete(ctx, "p1"))
	require.Empty(t, plans.Snapshot())
	require.False(t, plans.Loading())
}

func TestCollectionReloadsEvenWhenMutationFails(t *testing.T) {
	ctx := context.Background()
	api := newAPI(t)
	users := NewCollection[repo.User](api, "users")

	_, err := users.Create(ctx, map[string]any{"id": "u1", "name": "A", "email": "a@x.com", "password": "123456", "role": "admin"})
	require.NoError(t, err)

	_, err = api.Create(ctx, "users", map[string]any{"id": "u2", "name": "B", "email": "b@x.com", "password": "123456", "role": "cliente"})
	require.NoError(t, err)
	require.Len(t, users.Snapshot(), 1)

	_, err = users.Create(ctx, map[string]any{"id": "u3", "name": "C", "email": "a@x.com", "password": "123456", "role": "cliente"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusInternalServerError, apiErr.Status)
	require.Contains(t, apiErr.Message, "unique")
	require.Len(t, users.Snapshot(), 2)
}

func TestClientGetAndNotFound(t *testing.T) {
	ctx := context.Background()
	api := newAPI(t)

	var missing *repo.Client
	require.NoError(t, api.Get(ctx, "clients", "ghost", &missing))
	require.Nil(t, missing)

	err := api.Get(ctx, "messages", "m1", &missing)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "Endpoint not found", apiErr.Message)
}

// A reload issued first but answered last must not overwrite newer data.
func TestStaleReloadIsDiscarded(t *testing.T) {
	firstArrived := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			close(firstArrived)
			<-release
			w.Write([]byte(`[{"id":"old"}]`))
		default:
			w.Write([]byte(`[{"id":"new"}]`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	plans := NewCollection[repo.Plan](New(srv.URL, srv.Client()), "plans")

	done := make(chan error, 1)
	go func() { done <- plans.Reload(ctx) }()
	<-firstArrived
	require.True(t, plans.Loading())

	require.NoError(t, plans.Reload(ctx))
	require.Equal(t, "new", plans.Snapshot()[0].ID)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, "new", plans.Snapshot()[0].ID)
	require.False(t, plans.Loading())
}

func TestInOrderReloadsApplyLatest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(`[{"id":"a"}]`))
			return
		}
		w.Write([]byte(`[{"id":"a"},{"id":"b"}]`))
	}))
	defer srv.Close()

	ctx := context.Background()
	plans := NewCollection[repo.Plan](New(srv.URL, srv.Client()), "plans")
	require.NoError(t, plans.Reload(ctx))
	require.Len(t, plans.Snapshot(), 1)
	require.NoError(t, plans.Reload(ctx))
	require.Len(t, plans.Snapshot(), 2)
}
