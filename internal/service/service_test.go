package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"warungpos/internal/domain"
	"warungpos/internal/sequence"
	"warungpos/internal/store"
	"warungpos/internal/store/memory"
)

type countingReplicator struct {
	mu     sync.Mutex
	pushes int
}

func (r *countingReplicator) TriggerPush() {
	r.mu.Lock()
	r.pushes++
	r.mu.Unlock()
}

func (r *countingReplicator) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushes
}

func newTestService(t *testing.T) (*Service, *store.Store, *countingReplicator) {
	t.Helper()
	st := store.New(memory.New())
	replicator := &countingReplicator{}
	svc := New(st, sequence.New(st), replicator, nil, 0)
	return svc, st, replicator
}

func seedRates(t *testing.T, st *store.Store, tax float64, serviceCharge float64) {
	t.Helper()
	settings := domain.DefaultSettings()
	settings.TaxRatePercent = tax
	settings.ServiceChargeRatePercent = serviceCharge
	if err := st.PutSettings(context.Background(), settings); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
}

func simpleCart() []domain.OrderItem {
	return []domain.OrderItem{{Name: "Nasi Goreng", UnitPrice: 1000, Qty: 1}}
}

func TestCreateOrderComputesDineInTotals(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedRates(t, st, 5, 10)
	ctx := WithActor(context.Background(), domain.Actor{Username: "kasir-a", Role: "cashier"})

	order, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{
		Items:     simpleCart(),
		OrderType: domain.OrderTypeDineIn,
		Discount:  domain.Discount{Kind: domain.DiscountPercent, Value: 10},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if order.Total != 1035 {
		t.Fatalf("expected total 1035, got %v", order.Total)
	}
	if order.ServiceCharge != 90 {
		t.Fatalf("expected service charge 90, got %v", order.ServiceCharge)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", order.Status)
	}
	if order.CashierName != "kasir-a" {
		t.Fatalf("expected cashier from actor, got %q", order.CashierName)
	}
	if order.PaymentMethod != "cash" {
		t.Fatalf("expected default payment method cash, got %q", order.PaymentMethod)
	}
	if !strings.HasPrefix(order.ID, "ord-") {
		t.Fatalf("expected ord- id prefix, got %q", order.ID)
	}
}

func TestCreateOrderDeliverySkipsServiceCharge(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedRates(t, st, 5, 10)

	order, err := svc.CreateOrder(context.Background(), domain.CreateOrderRequest{
		Items:     simpleCart(),
		OrderType: domain.OrderTypeDelivery,
		Discount:  domain.Discount{Kind: domain.DiscountPercent, Value: 10},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if order.ServiceCharge != 0 {
		t.Fatalf("expected zero service charge for delivery, got %v", order.ServiceCharge)
	}
	if order.Total != 945 {
		t.Fatalf("expected total 945, got %v", order.Total)
	}
}

func TestCreateOrderAssignsSequentialNumbersNewestFirst(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{Items: simpleCart()})
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{Items: simpleCart()})
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}

	if first.OrderNumber != 1 || second.OrderNumber != 2 {
		t.Fatalf("expected numbers 1 and 2, got %d and %d", first.OrderNumber, second.OrderNumber)
	}

	orders, err := svc.ListOrders(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != second.ID {
		t.Fatalf("expected newest order first")
	}
}

func TestCreateOrderRejectsEmptyCart(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateOrder(context.Background(), domain.CreateOrderRequest{})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for empty cart, got %v", err)
	}
}

func TestCreateOrderRejectsUnknownOrderType(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateOrder(context.Background(), domain.CreateOrderRequest{
		Items:     simpleCart(),
		OrderType: "drive_through",
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for unknown order type, got %v", err)
	}
}

func TestPeekNextOrderNumberDoesNotConsume(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	if err := st.PutOrderCounter(ctx, 7); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	for i := 0; i < 2; i++ {
		number, err := svc.PeekNextOrderNumber(ctx)
		if err != nil {
			t.Fatalf("peek failed: %v", err)
		}
		if number != 7 {
			t.Fatalf("expected peek 7, got %d", number)
		}
	}

	order, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{Items: simpleCart()})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if order.OrderNumber != 7 {
		t.Fatalf("expected order number 7, got %d", order.OrderNumber)
	}

	number, err := svc.PeekNextOrderNumber(ctx)
	if err != nil {
		t.Fatalf("peek failed: %v", err)
	}
	if number != 8 {
		t.Fatalf("expected peek 8 after create, got %d", number)
	}
}

func TestReviseOrderPreservesIdentityAndSkipsSequence(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{Items: simpleCart()})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.HoldOrder(ctx, created.ID); err != nil {
		t.Fatalf("hold failed: %v", err)
	}

	revised, err := svc.ReviseOrder(ctx, created.ID, domain.CreateOrderRequest{
		Items: []domain.OrderItem{{Name: "Ayam Bakar", UnitPrice: 25000, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("revise failed: %v", err)
	}

	if revised.ID != created.ID {
		t.Fatalf("revise must preserve the order id")
	}
	if revised.OrderNumber != created.OrderNumber {
		t.Fatalf("revise must preserve the order number")
	}
	if !revised.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("revise must preserve the creation timestamp")
	}
	if revised.Status != domain.OrderStatusPending {
		t.Fatalf("expected revised order to re-enter pending, got %s", revised.Status)
	}
	if revised.Subtotal != 50000 {
		t.Fatalf("expected recomputed subtotal 50000, got %v", revised.Subtotal)
	}

	next, err := svc.PeekNextOrderNumber(ctx)
	if err != nil {
		t.Fatalf("peek failed: %v", err)
	}
	if next != 2 {
		t.Fatalf("revise must not consume an order number; expected peek 2, got %d", next)
	}
}

func TestReviseOrderUnknownIDLeavesCollectionUntouched(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{Items: simpleCart()}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	before, _ := st.Orders(ctx)

	_, err := svc.ReviseOrder(ctx, "ord-missing", domain.CreateOrderRequest{Items: simpleCart()})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	after, _ := st.Orders(ctx)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("failed revise must not mutate the collection")
	}
}

func TestTransitionStatusWorkflow(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{Items: simpleCart()})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for _, status := range []string{domain.OrderStatusPreparing, domain.OrderStatusReady, domain.OrderStatusCompleted} {
		updated, err := svc.TransitionStatus(ctx, order.ID, status)
		if err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
		if updated.Status != status {
			t.Fatalf("expected status %s, got %s", status, updated.Status)
		}
	}
}

func TestTerminalStatusesAreLocked(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, terminal := range []string{domain.OrderStatusCancelled, domain.OrderStatusRefunded} {
		order, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{Items: simpleCart()})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if _, err := svc.TransitionStatus(ctx, order.ID, terminal); err != nil {
			t.Fatalf("transition to %s failed: %v", terminal, err)
		}
		if _, err := svc.TransitionStatus(ctx, order.ID, domain.OrderStatusPending); !errors.Is(err, store.ErrValidation) {
			t.Fatalf("expected %s order to be locked, got %v", terminal, err)
		}
	}
}

func TestTransitionStatusRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{Items: simpleCart()})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.TransitionStatus(ctx, order.ID, "teleported"); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHoldAndResume(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{Items: simpleCart()})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	held, err := svc.HoldOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	if held.Status != domain.OrderStatusHeld {
		t.Fatalf("expected held status, got %s", held.Status)
	}

	resumed, err := svc.ResumeOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resumed.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending after resume, got %s", resumed.Status)
	}
}

func TestMutationsTriggerReplication(t *testing.T) {
	svc, _, replicator := newTestService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, domain.CreateOrderRequest{Items: simpleCart()})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.TransitionStatus(ctx, order.ID, domain.OrderStatusCompleted); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if _, err := svc.UpdateMenuItems(ctx, []domain.MenuItem{{Name: "Bakso", Price: 10000}}); err != nil {
		t.Fatalf("update menu failed: %v", err)
	}

	if got := replicator.count(); got != 3 {
		t.Fatalf("expected 3 replication triggers, got %d", got)
	}
}

func TestReadsDoNotTriggerReplication(t *testing.T) {
	svc, _, replicator := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ListOrders(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if _, err := svc.MenuItems(ctx); err != nil {
		t.Fatalf("menu read failed: %v", err)
	}
	if _, err := svc.Settings(ctx); err != nil {
		t.Fatalf("settings read failed: %v", err)
	}

	if got := replicator.count(); got != 0 {
		t.Fatalf("expected no replication triggers on reads, got %d", got)
	}
}

func TestUpdateMenuItemsAssignsIDs(t *testing.T) {
	svc, _, _ := newTestService(t)

	items, err := svc.UpdateMenuItems(context.Background(), []domain.MenuItem{
		{Name: "Soto Ayam", Price: 18000, Available: true},
	})
	if err != nil {
		t.Fatalf("update menu failed: %v", err)
	}
	if !strings.HasPrefix(items[0].ID, "menu-") {
		t.Fatalf("expected generated menu id, got %q", items[0].ID)
	}
}

func TestUpdateMenuItemsRejectsInvalid(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.UpdateMenuItems(context.Background(), []domain.MenuItem{{Name: "  ", Price: 100}})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateSettingsRequiresCredentialWhenSyncEnabled(t *testing.T) {
	svc, _, _ := newTestService(t)

	settings := domain.DefaultSettings()
	settings.SyncEnabled = true
	_, err := svc.UpdateSettings(context.Background(), settings)
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateSettingsFillsDefaultRemotePath(t *testing.T) {
	svc, _, _ := newTestService(t)

	settings := domain.DefaultSettings()
	settings.DropboxPath = ""
	saved, err := svc.UpdateSettings(context.Background(), settings)
	if err != nil {
		t.Fatalf("update settings failed: %v", err)
	}
	if saved.DropboxPath != "/warungpos_backup.json" {
		t.Fatalf("expected default remote path, got %q", saved.DropboxPath)
	}
}

func TestUpdateStockTransactionsValidatesKind(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.UpdateStockTransactions(context.Background(), []domain.StockTransaction{
		{InventoryItemID: "inv-1", Kind: "sideways", Qty: 1},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdatePurchasesComputesTotalFromLines(t *testing.T) {
	svc, _, _ := newTestService(t)

	purchases, err := svc.UpdatePurchases(context.Background(), []domain.Purchase{{
		SupplierName: "Pasar Induk",
		Items: []domain.PurchaseLine{
			{Name: "Beras", Qty: 10, UnitCost: 12000},
			{Name: "Minyak", Qty: 2, UnitCost: 18000},
		},
	}})
	if err != nil {
		t.Fatalf("update purchases failed: %v", err)
	}
	if purchases[0].Total != 156000 {
		t.Fatalf("expected computed total 156000, got %v", purchases[0].Total)
	}
}
