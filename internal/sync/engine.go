package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"warungpos/internal/backup"
	"warungpos/internal/store"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

var ErrTransport = errors.New("transport failure")

// errRemoteMissing marks the distinguished "file not yet created" outcome of
// a download. The first push will create the remote file.
var errRemoteMissing = errors.New("remote snapshot missing")

type StatusInfo struct {
	Status       Status     `json:"status"`
	LastError    string     `json:"last_error,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// Engine replicates the whole entity store to a single file on a
// Dropbox-style remote. Whole-snapshot overwrite, no merge: the most recent
// push from whichever device wrote last wins. That is a deliberate
// simplification for a single active till and is not safe for concurrent
// multi-till use.
type Engine struct {
	store          *store.Store
	backup         *backup.Manager
	client         *http.Client
	apiBaseURL     string
	contentBaseURL string
	online         func() bool

	mu     sync.Mutex
	status StatusInfo
}

func New(st *store.Store, bk *backup.Manager, client *http.Client, apiBaseURL string, contentBaseURL string) *Engine {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if apiBaseURL == "" {
		apiBaseURL = "https://api.dropboxapi.com"
	}
	if contentBaseURL == "" {
		contentBaseURL = "https://content.dropboxapi.com"
	}
	return &Engine{
		store:          st,
		backup:         bk,
		client:         client,
		apiBaseURL:     strings.TrimRight(apiBaseURL, "/"),
		contentBaseURL: strings.TrimRight(contentBaseURL, "/"),
		status:         StatusInfo{Status: StatusIdle},
	}
}

// SetOnlineCheck installs a connectivity probe consulted before any network
// call. When unset the engine assumes the device is online and lets the
// transport report failures.
func (e *Engine) SetOnlineCheck(fn func() bool) {
	e.online = fn
}

func (e *Engine) Status() StatusInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) setStatus(status Status, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.status.Status = status
	if err != nil {
		e.status.LastError = err.Error()
	} else {
		e.status.LastError = ""
	}
	if status == StatusSuccess {
		now := time.Now().UTC()
		e.status.LastSyncedAt = &now
	}
}

// remoteTarget reads the sync credential and target path from settings.
// ok is false when sync is disabled or no credential is configured.
func (e *Engine) remoteTarget(ctx context.Context) (token string, path string, ok bool, err error) {
	settings, err := e.store.Settings(ctx)
	if err != nil {
		return "", "", false, err
	}
	token = strings.TrimSpace(settings.DropboxToken)
	if !settings.SyncEnabled || token == "" {
		return "", "", false, nil
	}
	path = strings.TrimSpace(settings.DropboxPath)
	if path == "" {
		path = "/warungpos_backup.json"
	}
	return token, path, true, nil
}

func (e *Engine) isOffline() bool {
	return e.online != nil && !e.online()
}

// Pull fetches the remote snapshot and restores it. No-op when sync is
// disabled, no credential is configured, or the device is offline. A missing
// remote file is first-run, not an error: local data stays untouched.
func (e *Engine) Pull(ctx context.Context) error {
	token, path, ok, err := e.remoteTarget(ctx)
	if err != nil {
		return err
	}
	if !ok || e.isOffline() {
		return nil
	}

	e.setStatus(StatusSyncing, nil)

	data, err := e.download(ctx, token, path)
	if errors.Is(err, errRemoteMissing) {
		e.setStatus(StatusIdle, nil)
		return nil
	}
	if err != nil {
		e.setStatus(StatusError, err)
		return err
	}

	if err := e.backup.RestoreSnapshot(ctx, data); err != nil {
		e.setStatus(StatusError, err)
		return err
	}

	e.setStatus(StatusSuccess, nil)
	return nil
}

// Push uploads the current snapshot to the fixed remote path in overwrite
// mode. No-op when sync is disabled, no credential is configured, or the
// device is offline.
func (e *Engine) Push(ctx context.Context) error {
	token, path, ok, err := e.remoteTarget(ctx)
	if err != nil {
		return err
	}
	if !ok || e.isOffline() {
		return nil
	}

	e.setStatus(StatusSyncing, nil)

	snapshot, err := e.backup.CreateSnapshot(ctx)
	if err != nil {
		e.setStatus(StatusError, err)
		return err
	}
	data, err := e.backup.Marshal(snapshot)
	if err != nil {
		e.setStatus(StatusError, err)
		return err
	}

	if err := e.upload(ctx, token, path, data); err != nil {
		e.setStatus(StatusError, err)
		return err
	}

	e.setStatus(StatusSuccess, nil)
	return nil
}

// TriggerPush fires a push without blocking the mutation that caused it.
// Failures land in the status value only; the local mutation already
// succeeded and stays succeeded.
func (e *Engine) TriggerPush() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := e.Push(ctx); err != nil {
			log.Printf("[sync] WARN: background push failed: %v", err)
		}
	}()
}

// TestConnection validates a candidate credential against the remote
// identity endpoint. Used by the settings surface before enabling sync;
// independent of Pull/Push.
func (e *Engine) TestConnection(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: credential is empty", store.ErrValidation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiBaseURL+"/2/users/get_current_account", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: identity check returned %d", ErrTransport, resp.StatusCode)
	}
	return nil
}

func (e *Engine) download(ctx context.Context, token string, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.contentBaseURL+"/2/files/download", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Dropbox-API-Arg", fmt.Sprintf(`{"path":%q}`, path))

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, errRemoteMissing
	case resp.StatusCode == http.StatusConflict && strings.Contains(string(body), "not_found"):
		// Dropbox reports a missing path as 409 path/not_found.
		return nil, errRemoteMissing
	default:
		return nil, fmt.Errorf("%w: download returned %d", ErrTransport, resp.StatusCode)
	}
}

func (e *Engine) upload(ctx context.Context, token string, path string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.contentBaseURL+"/2/files/upload", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Dropbox-API-Arg", fmt.Sprintf(`{"path":%q,"mode":"overwrite","mute":true}`, path))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: upload returned %d", ErrTransport, resp.StatusCode)
	}
	return nil
}
