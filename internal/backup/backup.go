package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"warungpos/internal/domain"
	"warungpos/internal/store"
)

// Manager serializes the whole entity store into one snapshot document and
// restores from one. The same schema is used for local export files and the
// cloud replica, so the two are interchangeable.
type Manager struct {
	store *store.Store
}

func New(st *store.Store) *Manager {
	return &Manager{store: st}
}

// CreateSnapshot is a pure read: it never mutates the store.
func (m *Manager) CreateSnapshot(ctx context.Context) (domain.Snapshot, error) {
	snapshot := domain.Snapshot{
		SchemaVersion: domain.SnapshotSchemaVersion,
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
	}

	var err error
	if snapshot.Orders, err = m.store.Orders(ctx); err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.MenuItems, err = m.store.MenuItems(ctx); err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.InventoryItems, err = m.store.InventoryItems(ctx); err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.Purchases, err = m.store.Purchases(ctx); err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.StockTransactions, err = m.store.StockTransactions(ctx); err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.Expenses, err = m.store.Expenses(ctx); err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.Users, err = m.store.Users(ctx); err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.Customers, err = m.store.Customers(ctx); err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.Settings, err = m.store.Settings(ctx); err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.PrinterConfig, err = m.store.PrinterConfig(ctx); err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.OrderCounter, err = m.store.OrderCounter(ctx); err != nil {
		return domain.Snapshot{}, err
	}

	return snapshot, nil
}

// Marshal renders a snapshot to the wire/file format.
func (m *Manager) Marshal(snapshot domain.Snapshot) ([]byte, error) {
	return json.Marshal(snapshot)
}

// requiredKeys must be present at the top level of an incoming snapshot
// document before any write happens. Restore fails closed on anything less.
var requiredKeys = []string{"schema_version", store.KeyOrders}

// RestoreSnapshot validates the document, then replaces every collection and
// singleton. Validation errors leave the live data completely intact.
func (m *Manager) RestoreSnapshot(ctx context.Context, data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("%w: snapshot is not a JSON document: %v", store.ErrValidation, err)
	}
	for _, key := range requiredKeys {
		if _, exists := probe[key]; !exists {
			return fmt.Errorf("%w: snapshot missing required key %q", store.ErrValidation, key)
		}
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("%w: snapshot shape mismatch: %v", store.ErrValidation, err)
	}
	if snapshot.SchemaVersion > domain.SnapshotSchemaVersion {
		return fmt.Errorf("%w: snapshot schema version %d is newer than supported %d",
			store.ErrValidation, snapshot.SchemaVersion, domain.SnapshotSchemaVersion)
	}

	return m.apply(ctx, snapshot)
}

func (m *Manager) apply(ctx context.Context, snapshot domain.Snapshot) error {
	if err := m.store.PutOrders(ctx, snapshot.Orders); err != nil {
		return err
	}
	if err := m.store.PutMenuItems(ctx, snapshot.MenuItems); err != nil {
		return err
	}
	if err := m.store.PutInventoryItems(ctx, snapshot.InventoryItems); err != nil {
		return err
	}
	if err := m.store.PutPurchases(ctx, snapshot.Purchases); err != nil {
		return err
	}
	if err := m.store.PutStockTransactions(ctx, snapshot.StockTransactions); err != nil {
		return err
	}
	if err := m.store.PutExpenses(ctx, snapshot.Expenses); err != nil {
		return err
	}
	if err := m.store.PutUsers(ctx, snapshot.Users); err != nil {
		return err
	}
	if err := m.store.PutCustomers(ctx, snapshot.Customers); err != nil {
		return err
	}
	if err := m.store.PutSettings(ctx, snapshot.Settings); err != nil {
		return err
	}
	if err := m.store.PutPrinterConfig(ctx, snapshot.PrinterConfig); err != nil {
		return err
	}
	counter := snapshot.OrderCounter
	if counter < 1 {
		counter = 1
	}
	return m.store.PutOrderCounter(ctx, counter)
}

// ClearAll resets every collection to empty and every singleton to its
// default. Irreversible; the caller gates it behind a credential check.
func (m *Manager) ClearAll(ctx context.Context) error {
	return m.apply(ctx, domain.Snapshot{
		SchemaVersion: domain.SnapshotSchemaVersion,
		Settings:      domain.DefaultSettings(),
		PrinterConfig: domain.DefaultPrinterConfig(),
		OrderCounter:  1,
	})
}
