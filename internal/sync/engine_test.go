package sync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"warungpos/internal/backup"
	"warungpos/internal/domain"
	"warungpos/internal/store"
	"warungpos/internal/store/memory"
)

func newSyncedStore(t *testing.T, enabled bool) *store.Store {
	t.Helper()
	st := store.New(memory.New())

	settings := domain.DefaultSettings()
	settings.SyncEnabled = enabled
	if enabled {
		settings.DropboxToken = "test-token"
	}
	if err := st.PutSettings(context.Background(), settings); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	return st
}

func seedOrder(t *testing.T, st *store.Store) domain.Order {
	t.Helper()
	order := domain.Order{
		ID:          "ord-local",
		OrderNumber: 3,
		Items:       []domain.OrderItem{{Name: "Gado Gado", UnitPrice: 15000, Qty: 1}},
		OrderType:   domain.OrderTypeDineIn,
		Status:      domain.OrderStatusPending,
		Subtotal:    15000,
		Total:       15000,
		CreatedAt:   time.Date(2026, 8, 3, 8, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 8, 3, 8, 0, 0, 0, time.UTC),
	}
	if err := st.PutOrders(context.Background(), []domain.Order{order}); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func newTestEngine(st *store.Store, server *httptest.Server) *Engine {
	return New(st, backup.New(st), server.Client(), server.URL, server.URL)
}

func TestPullMissingRemoteIsFirstRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	st := newSyncedStore(t, true)
	seedOrder(t, st)
	engine := newTestEngine(st, server)

	before, _ := st.Orders(context.Background())
	if err := engine.Pull(context.Background()); err != nil {
		t.Fatalf("pull of a missing remote must not fail, got %v", err)
	}
	after, _ := st.Orders(context.Background())

	if !reflect.DeepEqual(before, after) {
		t.Fatalf("first-run pull must leave local data untouched")
	}
	if status := engine.Status(); status.Status != StatusIdle {
		t.Fatalf("expected idle status after first-run pull, got %s (%s)", status.Status, status.LastError)
	}
}

func TestPullConflictNotFoundIsFirstRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error_summary":"path/not_found/..."}`))
	}))
	defer server.Close()

	st := newSyncedStore(t, true)
	engine := newTestEngine(st, server)

	if err := engine.Pull(context.Background()); err != nil {
		t.Fatalf("expected 409 path/not_found to be treated as first run, got %v", err)
	}
	if status := engine.Status(); status.Status != StatusIdle {
		t.Fatalf("expected idle status, got %s", status.Status)
	}
}

func TestPullRestoresRemoteSnapshot(t *testing.T) {
	remote := newSyncedStore(t, true)
	remoteOrder := seedOrder(t, remote)
	snapshot, err := backup.New(remote).CreateSnapshot(context.Background())
	if err != nil {
		t.Fatalf("build remote snapshot: %v", err)
	}
	payload, _ := json.Marshal(snapshot)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/2/files/download") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	st := newSyncedStore(t, true)
	engine := newTestEngine(st, server)

	if err := engine.Pull(context.Background()); err != nil {
		t.Fatalf("pull failed: %v", err)
	}

	orders, _ := st.Orders(context.Background())
	if len(orders) != 1 || orders[0].ID != remoteOrder.ID {
		t.Fatalf("expected remote order to replace local data, got %+v", orders)
	}

	status := engine.Status()
	if status.Status != StatusSuccess {
		t.Fatalf("expected success status, got %s (%s)", status.Status, status.LastError)
	}
	if status.LastSyncedAt == nil {
		t.Fatalf("expected last synced timestamp to be set")
	}
}

func TestPullIsIdempotent(t *testing.T) {
	remote := newSyncedStore(t, true)
	seedOrder(t, remote)
	snapshot, _ := backup.New(remote).CreateSnapshot(context.Background())
	payload, _ := json.Marshal(snapshot)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	st := newSyncedStore(t, true)
	engine := newTestEngine(st, server)

	if err := engine.Pull(context.Background()); err != nil {
		t.Fatalf("first pull failed: %v", err)
	}
	first, _ := st.Orders(context.Background())

	if err := engine.Pull(context.Background()); err != nil {
		t.Fatalf("second pull failed: %v", err)
	}
	second, _ := st.Orders(context.Background())

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("pulling the same snapshot twice must be a no-op")
	}
}

func TestPushUploadsSnapshotInOverwriteMode(t *testing.T) {
	var gotArg, gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/2/files/upload") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotArg = r.Header.Get("Dropbox-API-Arg")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	st := newSyncedStore(t, true)
	seedOrder(t, st)
	engine := newTestEngine(st, server)

	if err := engine.Push(context.Background()); err != nil {
		t.Fatalf("push failed: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if !strings.Contains(gotArg, `"mode":"overwrite"`) || !strings.Contains(gotArg, "/warungpos_backup.json") {
		t.Fatalf("unexpected api arg %q", gotArg)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(gotBody, &snapshot); err != nil {
		t.Fatalf("uploaded body is not a snapshot: %v", err)
	}
	if len(snapshot.Orders) != 1 || snapshot.Orders[0].ID != "ord-local" {
		t.Fatalf("uploaded snapshot missing local order")
	}
	if engine.Status().Status != StatusSuccess {
		t.Fatalf("expected success status after push")
	}
}

func TestDisabledSyncIsNoOp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	st := newSyncedStore(t, false)
	engine := newTestEngine(st, server)

	if err := engine.Pull(context.Background()); err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if err := engine.Push(context.Background()); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("disabled sync must not touch the network, got %d calls", calls.Load())
	}
}

func TestOfflineCheckShortCircuits(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	st := newSyncedStore(t, true)
	engine := newTestEngine(st, server)
	engine.SetOnlineCheck(func() bool { return false })

	if err := engine.Push(context.Background()); err != nil {
		t.Fatalf("offline push must be a silent no-op, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("offline device must not touch the network")
	}
}

func TestPullTransportFailureSetsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unhappy", http.StatusInternalServerError)
	}))
	defer server.Close()

	st := newSyncedStore(t, true)
	seedOrder(t, st)
	engine := newTestEngine(st, server)

	before, _ := st.Orders(context.Background())
	err := engine.Pull(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	after, _ := st.Orders(context.Background())

	if !reflect.DeepEqual(before, after) {
		t.Fatalf("failed pull must leave local data untouched")
	}
	status := engine.Status()
	if status.Status != StatusError || status.LastError == "" {
		t.Fatalf("expected error status with message, got %+v", status)
	}
}

func TestTestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/2/users/get_current_account") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer good-token" {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"account_id":"dbid:test"}`))
	}))
	defer server.Close()

	st := newSyncedStore(t, false)
	engine := newTestEngine(st, server)

	if err := engine.TestConnection(context.Background(), "good-token"); err != nil {
		t.Fatalf("expected valid token to pass, got %v", err)
	}
	if err := engine.TestConnection(context.Background(), "bad-token"); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport error for rejected token, got %v", err)
	}
	if err := engine.TestConnection(context.Background(), "  "); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for empty token, got %v", err)
	}
}
