package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/subculture-collective/masquerade/db"
)

// fakeDatastore implements Datastore in memory for handler tests.
type fakeDatastore struct {
	pingErr error
	owners  map[uint64]uint64
	stats   db.Stats
}

func (f *fakeDatastore) Ping(context.Context) error { return f.pingErr }

func (f *fakeDatastore) RelayOwner(_ context.Context, messageID uint64) (uint64, bool) {
	u, ok := f.owners[messageID]
	return u, ok
}

func (f *fakeDatastore) CountStats(context.Context) (db.Stats, error) {
	if f.pingErr != nil {
		return db.Stats{}, f.pingErr
	}
	return f.stats, nil
}

func newTestServer(t *testing.T, store Datastore) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewMux(store))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthz(t *testing.T) {
	store := &fakeDatastore{}
	srv := newTestServer(t, store)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if corr := resp.Header.Get("X-Correlation-ID"); corr == "" {
		t.Errorf("missing correlation id header")
	}
}

func TestHealthzUnhealthy(t *testing.T) {
	store := &fakeDatastore{pingErr: errors.New("db down")}
	srv := newTestServer(t, store)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestReadyz(t *testing.T) {
	srv := newTestServer(t, &fakeDatastore{})
	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStatusCounts(t *testing.T) {
	store := &fakeDatastore{stats: db.Stats{Identities: 3, ActiveSwitches: 1, RelayedMessages: 7}}
	srv := newTestServer(t, store)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Counts db.Stats `json:"counts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Counts != store.stats {
		t.Errorf("counts = %+v, want %+v", body.Counts, store.stats)
	}
}

// clearAdminAuth unsets admin credentials so provenance handlers run unprotected.
func clearAdminAuth(t *testing.T) {
	t.Helper()
	t.Setenv("ADMIN_TOKEN", "")
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
}

func TestProvenanceLookup(t *testing.T) {
	clearAdminAuth(t)
	store := &fakeDatastore{owners: map[uint64]uint64{1001: 42}}
	srv := newTestServer(t, store)

	resp, err := http.Get(srv.URL + "/provenance?message_id=1001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]uint64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["user_id"] != 42 {
		t.Errorf("user_id = %d, want 42", body["user_id"])
	}
}

func TestProvenanceNotFound(t *testing.T) {
	clearAdminAuth(t)
	srv := newTestServer(t, &fakeDatastore{owners: map[uint64]uint64{}})
	resp, err := http.Get(srv.URL + "/provenance?message_id=5")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestProvenanceBadRequest(t *testing.T) {
	clearAdminAuth(t)
	srv := newTestServer(t, &fakeDatastore{})
	resp, err := http.Get(srv.URL + "/provenance?message_id=abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestProvenanceRequiresAdminToken(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "secret")
	store := &fakeDatastore{owners: map[uint64]uint64{1001: 42}}
	srv := newTestServer(t, store)

	resp, err := http.Get(srv.URL + "/provenance?message_id=1001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/provenance?message_id=1001", nil)
	req.Header.Set("X-Admin-Token", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get with token: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeDatastore{})
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
