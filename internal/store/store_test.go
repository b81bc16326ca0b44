package store_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"warungpos/internal/domain"
	"warungpos/internal/store"
	"warungpos/internal/store/memory"
)

func TestMemoryKVMissingKeyIsNotFound(t *testing.T) {
	kv := memory.New()

	_, err := kv.Get(context.Background(), "never-written")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMissingCollectionReadsEmpty(t *testing.T) {
	st := store.New(memory.New())
	ctx := context.Background()

	orders, err := st.Orders(ctx)
	if err != nil {
		t.Fatalf("orders read failed: %v", err)
	}
	if orders == nil {
		t.Fatalf("expected empty slice, got nil")
	}
	if len(orders) != 0 {
		t.Fatalf("expected no orders, got %d", len(orders))
	}
}

func TestOrdersRoundTrip(t *testing.T) {
	st := store.New(memory.New())
	ctx := context.Background()

	want := []domain.Order{
		{
			ID:          "ord-1",
			OrderNumber: 1,
			Items:       []domain.OrderItem{{Name: "Nasi Goreng", UnitPrice: 15000, Qty: 2}},
			OrderType:   domain.OrderTypeDineIn,
			Status:      domain.OrderStatusPending,
			Subtotal:    30000,
			Total:       30000,
			CreatedAt:   time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
			UpdatedAt:   time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		},
	}
	if err := st.PutOrders(ctx, want); err != nil {
		t.Fatalf("put orders failed: %v", err)
	}

	got, err := st.Orders(ctx)
	if err != nil {
		t.Fatalf("get orders failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("orders round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestSettingsDefaultsBeforeFirstWrite(t *testing.T) {
	st := store.New(memory.New())

	settings, err := st.Settings(context.Background())
	if err != nil {
		t.Fatalf("settings read failed: %v", err)
	}
	if settings.RestaurantName != "Warung POS" {
		t.Fatalf("expected default restaurant name, got %q", settings.RestaurantName)
	}
	if settings.SyncEnabled {
		t.Fatalf("expected sync disabled by default")
	}
}

func TestOrderCounterDefaultsAndClamps(t *testing.T) {
	st := store.New(memory.New())
	ctx := context.Background()

	counter, err := st.OrderCounter(ctx)
	if err != nil {
		t.Fatalf("counter read failed: %v", err)
	}
	if counter != 1 {
		t.Fatalf("expected fresh counter 1, got %d", counter)
	}

	if err := st.PutOrderCounter(ctx, -3); err != nil {
		t.Fatalf("counter write failed: %v", err)
	}
	counter, err = st.OrderCounter(ctx)
	if err != nil {
		t.Fatalf("counter read failed: %v", err)
	}
	if counter != 1 {
		t.Fatalf("expected counter clamped to 1, got %d", counter)
	}
}

func TestPrinterConfigDefaultsBeforeFirstWrite(t *testing.T) {
	st := store.New(memory.New())

	cfg, err := st.PrinterConfig(context.Background())
	if err != nil {
		t.Fatalf("printer config read failed: %v", err)
	}
	if cfg.PaperWidthMM != 58 {
		t.Fatalf("expected default 58mm paper, got %d", cfg.PaperWidthMM)
	}
}
