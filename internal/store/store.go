package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"warungpos/internal/domain"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
)

// KV is the durable per-device medium under the entity store: string keys,
// arbitrarily sized serialized documents, survives process restarts.
// Get returns ErrNotFound for a key that was never written.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Collection and singleton keys. One key per collection; the snapshot schema
// mirrors this list, so adding a key here means extending the snapshot too.
const (
	KeyOrders            = "orders"
	KeyMenuItems         = "menu_items"
	KeyInventoryItems    = "inventory_items"
	KeyPurchases         = "purchases"
	KeyStockTransactions = "stock_transactions"
	KeyExpenses          = "expenses"
	KeyUsers             = "users"
	KeyCustomers         = "customers"
	KeySettings          = "system_settings"
	KeyPrinterConfig     = "printer_config"
	KeyOrderCounter      = "order_counter"
)

// Store provides typed accessors over a KV medium. Every put is a
// full-collection replace that either fully succeeds or fully fails; reads of
// missing collections return empty slices, never an error.
type Store struct {
	kv KV
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) Close() error {
	return s.kv.Close()
}

func getList[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrStorage, key, err)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrStorage, key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func putList[T any](ctx context.Context, s *Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrStorage, key, err)
	}
	if err := s.kv.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrStorage, key, err)
	}
	return nil
}

func (s *Store) Orders(ctx context.Context) ([]domain.Order, error) {
	return getList[domain.Order](ctx, s, KeyOrders)
}

func (s *Store) PutOrders(ctx context.Context, orders []domain.Order) error {
	return putList(ctx, s, KeyOrders, orders)
}

func (s *Store) MenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	return getList[domain.MenuItem](ctx, s, KeyMenuItems)
}

func (s *Store) PutMenuItems(ctx context.Context, items []domain.MenuItem) error {
	return putList(ctx, s, KeyMenuItems, items)
}

func (s *Store) InventoryItems(ctx context.Context) ([]domain.InventoryItem, error) {
	return getList[domain.InventoryItem](ctx, s, KeyInventoryItems)
}

func (s *Store) PutInventoryItems(ctx context.Context, items []domain.InventoryItem) error {
	return putList(ctx, s, KeyInventoryItems, items)
}

func (s *Store) Purchases(ctx context.Context) ([]domain.Purchase, error) {
	return getList[domain.Purchase](ctx, s, KeyPurchases)
}

func (s *Store) PutPurchases(ctx context.Context, purchases []domain.Purchase) error {
	return putList(ctx, s, KeyPurchases, purchases)
}

func (s *Store) StockTransactions(ctx context.Context) ([]domain.StockTransaction, error) {
	return getList[domain.StockTransaction](ctx, s, KeyStockTransactions)
}

func (s *Store) PutStockTransactions(ctx context.Context, txs []domain.StockTransaction) error {
	return putList(ctx, s, KeyStockTransactions, txs)
}

func (s *Store) Expenses(ctx context.Context) ([]domain.Expense, error) {
	return getList[domain.Expense](ctx, s, KeyExpenses)
}

func (s *Store) PutExpenses(ctx context.Context, expenses []domain.Expense) error {
	return putList(ctx, s, KeyExpenses, expenses)
}

func (s *Store) Users(ctx context.Context) ([]domain.UserAccount, error) {
	return getList[domain.UserAccount](ctx, s, KeyUsers)
}

func (s *Store) PutUsers(ctx context.Context, users []domain.UserAccount) error {
	return putList(ctx, s, KeyUsers, users)
}

func (s *Store) Customers(ctx context.Context) ([]domain.Customer, error) {
	return getList[domain.Customer](ctx, s, KeyCustomers)
}

func (s *Store) PutCustomers(ctx context.Context, customers []domain.Customer) error {
	return putList(ctx, s, KeyCustomers, customers)
}

func (s *Store) Settings(ctx context.Context) (domain.SystemSettings, error) {
	raw, err := s.kv.Get(ctx, KeySettings)
	if errors.Is(err, ErrNotFound) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.SystemSettings{}, fmt.Errorf("%w: get %s: %v", ErrStorage, KeySettings, err)
	}

	var settings domain.SystemSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return domain.SystemSettings{}, fmt.Errorf("%w: decode %s: %v", ErrStorage, KeySettings, err)
	}
	return settings, nil
}

func (s *Store) PutSettings(ctx context.Context, settings domain.SystemSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrStorage, KeySettings, err)
	}
	if err := s.kv.Put(ctx, KeySettings, raw); err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrStorage, KeySettings, err)
	}
	return nil
}

func (s *Store) PrinterConfig(ctx context.Context) (domain.PrinterConfig, error) {
	raw, err := s.kv.Get(ctx, KeyPrinterConfig)
	if errors.Is(err, ErrNotFound) {
		return domain.DefaultPrinterConfig(), nil
	}
	if err != nil {
		return domain.PrinterConfig{}, fmt.Errorf("%w: get %s: %v", ErrStorage, KeyPrinterConfig, err)
	}

	var cfg domain.PrinterConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return domain.PrinterConfig{}, fmt.Errorf("%w: decode %s: %v", ErrStorage, KeyPrinterConfig, err)
	}
	return cfg, nil
}

func (s *Store) PutPrinterConfig(ctx context.Context, cfg domain.PrinterConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrStorage, KeyPrinterConfig, err)
	}
	if err := s.kv.Put(ctx, KeyPrinterConfig, raw); err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrStorage, KeyPrinterConfig, err)
	}
	return nil
}

// OrderCounter reads the persisted sequence counter. A counter that was never
// written reads as 1, the number the first committed order receives.
func (s *Store) OrderCounter(ctx context.Context) (int, error) {
	raw, err := s.kv.Get(ctx, KeyOrderCounter)
	if errors.Is(err, ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: get %s: %v", ErrStorage, KeyOrderCounter, err)
	}

	var counter int
	if err := json.Unmarshal(raw, &counter); err != nil {
		return 0, fmt.Errorf("%w: decode %s: %v", ErrStorage, KeyOrderCounter, err)
	}
	if counter < 1 {
		counter = 1
	}
	return counter, nil
}

func (s *Store) PutOrderCounter(ctx context.Context, counter int) error {
	raw, err := json.Marshal(counter)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrStorage, KeyOrderCounter, err)
	}
	if err := s.kv.Put(ctx, KeyOrderCounter, raw); err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrStorage, KeyOrderCounter, err)
	}
	return nil
}
