package panel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nextflow/internal/logging"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, cache JSONCache) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := logging.Discard()
	return New(Config{BaseURL: srv.URL, Token: "TOK", Secret: "SEC"}, logger, nil, cache)
}

func TestCreateClientPostsSecretToTokenPath(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"result":true,"mens":"ok","data":{"username":"joao"}}`))
	}, nil)

	data, err := client.CreateClient(context.Background(), Credentials{}, CreateClientRequest{
		Username:    "joao",
		Password:    "123456",
		BouquetIDs:  []int{1, 2},
		Months:      1,
		Connections: 2,
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"username":"joao"}`, string(data))
	require.Equal(t, "/create_client/TOK", gotPath)
	require.Equal(t, "SEC", gotBody["secret"])
	require.Equal(t, "joao", gotBody["username"])
	require.Equal(t, []any{float64(1), float64(2)}, gotBody["idbouquet"])
}

func TestExplicitCredentialsOverrideDefaults(t *testing.T) {
	var gotPath, gotSecret string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotPath = r.URL.Path
		gotSecret, _ = body["secret"].(string)
		w.Write([]byte(`{"result":true,"data":[]}`))
	}, nil)

	_, err := client.GetClient(context.Background(), Credentials{Token: "OTHER", Secret: "S2"}, "maria")
	require.NoError(t, err)
	require.Equal(t, "/get_client/OTHER", gotPath)
	require.Equal(t, "S2", gotSecret)
}

func TestRejectedResultCarriesMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":false,"mens":"Usuário já existe"}`))
	}, nil)

	_, err := client.CreateTrial(context.Background(), Credentials{}, TrialRequest{Username: "x"})
	require.ErrorIs(t, err, ErrRejected)
	require.Contains(t, err.Error(), "Usuário já existe")
}

func TestUnauthorizedIsInvalidCredential(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"result":false,"mens":"Token inválido"}`))
	}, nil)

	_, err := client.DeleteClient(context.Background(), Credentials{}, "x")
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestMissingCredentialsNotConfigured(t *testing.T) {
	logger := logging.Discard()
	client := New(Config{BaseURL: "http://127.0.0.1:1"}, logger, nil, nil)

	_, err := client.Profile(context.Background(), Credentials{}, false)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestBouquetsAreCached(t *testing.T) {
	var calls atomic.Int32
	cache := &memoryCache{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"result":"true","data":[{"id":1,"name":"Full"}]}`))
	}, cache)

	ctx := context.Background()
	first, err := client.Bouquets(ctx, Credentials{}, false)
	require.NoError(t, err)
	second, err := client.Bouquets(ctx, Credentials{}, false)
	require.NoError(t, err)
	require.JSONEq(t, string(first), string(second))
	require.Equal(t, int32(1), calls.Load())

	_, err = client.Bouquets(ctx, Credentials{}, true)
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())

	_, err = client.Bouquets(ctx, Credentials{Token: "B", Secret: "S"}, false)
	require.NoError(t, err)
	require.Equal(t, int32(3), calls.Load())
}

func TestDoRoutesActionsAndRejectsUnknown(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"result":1,"data":{"ok":true}}`))
	}, nil)

	ctx := context.Background()
	_, err := client.Do(ctx, Credentials{}, "screen_remove", map[string]any{"username": "a", "connections": "1"})
	require.NoError(t, err)
	require.Equal(t, "/screen_client/remove/TOK", gotPath)
	require.Equal(t, "SEC", gotBody["secret"])

	_, err = client.Do(ctx, Credentials{}, "format_disk", nil)
	require.ErrorIs(t, err, ErrUnknownOperation)

	ops := Operations()
	require.Len(t, ops, 12)
	require.True(t, slices.IsSorted(ops))
	require.Contains(t, ops, "screen_remove")
}

func TestRemoveScreenSendsConnectionsAsString(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"result":true}`))
	}, nil)

	data, err := client.RemoveScreen(context.Background(), Credentials{}, "a", 2)
	require.NoError(t, err)
	require.Equal(t, "null", string(data))
	require.Equal(t, "2", gotBody["connections"])
}

func TestMutationsInvalidateCachedProfile(t *testing.T) {
	var profileCalls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/profile/") {
			profileCalls.Add(1)
		}
		w.Write([]byte(`{"result":true,"data":{"credits":10}}`))
	}, &memoryCache{})

	ctx := context.Background()
	_, err := client.Profile(ctx, Credentials{}, false)
	require.NoError(t, err)
	_, err = client.GetClient(ctx, Credentials{}, "a")
	require.NoError(t, err)
	_, err = client.Profile(ctx, Credentials{}, false)
	require.NoError(t, err)
	require.Equal(t, int32(1), profileCalls.Load())

	_, err = client.RenewClient(ctx, Credentials{}, "a", 1)
	require.NoError(t, err)
	_, err = client.Profile(ctx, Credentials{}, false)
	require.NoError(t, err)
	require.Equal(t, int32(2), profileCalls.Load())
}
