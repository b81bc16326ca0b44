package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"warungpos/internal/cache"
	"warungpos/internal/domain"
	"warungpos/internal/pricing"
	"warungpos/internal/sequence"
	"warungpos/internal/store"
	"warungpos/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Replicator is the sync hook fired after every successful local mutation.
// It must not block and must never fail the mutation that triggered it.
type Replicator interface {
	TriggerPush()
}

type noopReplicator struct{}

func (noopReplicator) TriggerPush() {}

const menuCacheKey = "cache:menu_items"

type Service struct {
	store      *store.Store
	seq        *sequence.Generator
	replicator Replicator
	cache      cache.CollectionCache
	menuTTL    time.Duration
}

func New(st *store.Store, seq *sequence.Generator, replicator Replicator, collectionCache cache.CollectionCache, menuTTL time.Duration) *Service {
	if replicator == nil {
		replicator = noopReplicator{}
	}
	if collectionCache == nil {
		collectionCache = cache.NoopCollectionCache{}
	}
	if menuTTL <= 0 {
		menuTTL = 30 * time.Second
	}

	return &Service{
		store:      st,
		seq:        seq,
		replicator: replicator,
		cache:      collectionCache,
		menuTTL:    menuTTL,
	}
}

// PeekNextOrderNumber reads the number the next checkout will receive
// without consuming it. Shown as "Next Order: #N" on the building surface.
func (s *Service) PeekNextOrderNumber(ctx context.Context) (int, error) {
	return s.seq.PeekNext(ctx)
}

func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.store.Orders(ctx)
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	orders, err := s.store.Orders(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	for _, order := range orders {
		if order.ID == orderID {
			return order, nil
		}
	}
	return domain.Order{}, store.ErrNotFound
}

// CreateOrder is the checkout path: validates the cart, prices it against the
// live rates, consumes exactly one order number, and persists the order in
// status pending at the head of the collection.
func (s *Service) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	items, err := normalizeItems(req.Items)
	if err != nil {
		return domain.Order{}, err
	}
	orderType, err := normalizeOrderType(req.OrderType)
	if err != nil {
		return domain.Order{}, err
	}
	discount, err := normalizeDiscount(req.Discount)
	if err != nil {
		return domain.Order{}, err
	}
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	settings, err := s.store.Settings(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	breakdown := pricing.Compute(items, discount, orderType, pricing.Rates{
		TaxRatePercent:           settings.TaxRatePercent,
		ServiceChargeRatePercent: settings.ServiceChargeRatePercent,
	})

	orders, err := s.store.Orders(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	number, err := s.seq.CommitNext(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	actor, _ := ActorFromContext(ctx)
	now := time.Now().UTC()
	order := domain.Order{
		ID:             xid.New("ord"),
		OrderNumber:    number,
		Items:          items,
		OrderType:      orderType,
		Status:         domain.OrderStatusPending,
		PaymentMethod:  paymentMethod,
		Discount:       discount,
		Subtotal:       breakdown.Subtotal,
		DiscountAmount: breakdown.DiscountAmount,
		Tax:            breakdown.Tax,
		ServiceCharge:  breakdown.ServiceCharge,
		Total:          breakdown.Total,
		CashierName:    actor.Username,
		Details:        req.Details,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.PutOrders(ctx, append([]domain.Order{order}, orders...)); err != nil {
		return domain.Order{}, err
	}

	s.replicator.TriggerPush()
	return order, nil
}

// ReviseOrder is the re-edit path: full recompute-and-replace of items,
// payment, and details. The order re-enters the active queue as pending.
// ID, order number, creation timestamp, and cashier are preserved; the
// sequence generator is never re-invoked.
func (s *Service) ReviseOrder(ctx context.Context, orderID string, req domain.CreateOrderRequest) (domain.Order, error) {
	items, err := normalizeItems(req.Items)
	if err != nil {
		return domain.Order{}, err
	}
	orderType, err := normalizeOrderType(req.OrderType)
	if err != nil {
		return domain.Order{}, err
	}
	discount, err := normalizeDiscount(req.Discount)
	if err != nil {
		return domain.Order{}, err
	}
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	orders, err := s.store.Orders(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	idx := indexOfOrder(orders, orderID)
	if idx < 0 {
		return domain.Order{}, store.ErrNotFound
	}

	settings, err := s.store.Settings(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	breakdown := pricing.Compute(items, discount, orderType, pricing.Rates{
		TaxRatePercent:           settings.TaxRatePercent,
		ServiceChargeRatePercent: settings.ServiceChargeRatePercent,
	})

	revised := orders[idx]
	revised.Items = items
	revised.OrderType = orderType
	revised.Status = domain.OrderStatusPending
	revised.PaymentMethod = paymentMethod
	revised.Discount = discount
	revised.Subtotal = breakdown.Subtotal
	revised.DiscountAmount = breakdown.DiscountAmount
	revised.Tax = breakdown.Tax
	revised.ServiceCharge = breakdown.ServiceCharge
	revised.Total = breakdown.Total
	revised.Details = req.Details
	revised.UpdatedAt = time.Now().UTC()
	orders[idx] = revised

	if err := s.store.PutOrders(ctx, orders); err != nil {
		return domain.Order{}, err
	}

	s.replicator.TriggerPush()
	return revised, nil
}

// TransitionStatus moves an order through its workflow. The adjacency rule
// lives in canTransition so the policy can be tightened without touching
// call sites.
func (s *Service) TransitionStatus(ctx context.Context, orderID string, newStatus string) (domain.Order, error) {
	newStatus = strings.ToLower(strings.TrimSpace(newStatus))
	if !isKnownStatus(newStatus) {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", store.ErrValidation, newStatus)
	}

	orders, err := s.store.Orders(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	idx := indexOfOrder(orders, orderID)
	if idx < 0 {
		return domain.Order{}, store.ErrNotFound
	}

	if !canTransition(orders[idx].Status, newStatus) {
		return domain.Order{}, fmt.Errorf("%w: cannot move %s order to %s", store.ErrValidation, orders[idx].Status, newStatus)
	}

	orders[idx].Status = newStatus
	orders[idx].UpdatedAt = time.Now().UTC()

	if err := s.store.PutOrders(ctx, orders); err != nil {
		return domain.Order{}, err
	}

	s.replicator.TriggerPush()
	return orders[idx], nil
}

// HoldOrder parks an order. Held orders are excluded from revenue until
// resumed.
func (s *Service) HoldOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return s.TransitionStatus(ctx, orderID, domain.OrderStatusHeld)
}

// ResumeOrder returns a held order to the active queue. This is the only
// sanctioned way back from held; terminal orders never re-enter here.
func (s *Service) ResumeOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return s.TransitionStatus(ctx, orderID, domain.OrderStatusPending)
}

func indexOfOrder(orders []domain.Order, orderID string) int {
	for i, order := range orders {
		if order.ID == orderID {
			return i
		}
	}
	return -1
}

func isKnownStatus(status string) bool {
	switch status {
	case domain.OrderStatusPending, domain.OrderStatusHeld, domain.OrderStatusPreparing,
		domain.OrderStatusReady, domain.OrderStatusCompleted,
		domain.OrderStatusCancelled, domain.OrderStatusRefunded:
		return true
	}
	return false
}

// canTransition is deliberately permissive: kitchen and staff may move an
// order anywhere in its workflow, park it, or cancel it at will. The only
// hard rule is that cancelled and refunded orders stay where they are.
func canTransition(from string, to string) bool {
	switch from {
	case domain.OrderStatusCancelled, domain.OrderStatusRefunded:
		return false
	}
	return true
}

func normalizeItems(items []domain.OrderItem) ([]domain.OrderItem, error) {
	normalized := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" || item.Qty < 1 || item.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: invalid cart line %q", store.ErrValidation, item.Name)
		}
		normalized = append(normalized, item)
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", store.ErrValidation)
	}
	return normalized, nil
}

func normalizeOrderType(orderType string) (string, error) {
	orderType = strings.ToLower(strings.TrimSpace(orderType))
	switch orderType {
	case domain.OrderTypeDineIn, domain.OrderTypeTakeaway, domain.OrderTypeDelivery:
		return orderType, nil
	case "":
		return domain.OrderTypeDineIn, nil
	}
	return "", fmt.Errorf("%w: unknown order type %q", store.ErrValidation, orderType)
}

func normalizeDiscount(discount domain.Discount) (domain.Discount, error) {
	discount.Kind = strings.ToLower(strings.TrimSpace(discount.Kind))
	switch discount.Kind {
	case "":
		return domain.Discount{}, nil
	case domain.DiscountPercent:
		if discount.Value < 0 || discount.Value > 100 {
			return domain.Discount{}, fmt.Errorf("%w: percent discount out of range", store.ErrValidation)
		}
	case domain.DiscountFixed:
		if discount.Value < 0 {
			return domain.Discount{}, fmt.Errorf("%w: fixed discount is negative", store.ErrValidation)
		}
	default:
		return domain.Discount{}, fmt.Errorf("%w: unknown discount kind %q", store.ErrValidation, discount.Kind)
	}
	return discount, nil
}

// MenuItems serves the hot read path for the order-building surface through
// the collection cache.
func (s *Service) MenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	if raw, hit, err := s.cache.Get(ctx, menuCacheKey); err == nil && hit {
		var items []domain.MenuItem
		if err := json.Unmarshal(raw, &items); err == nil {
			return items, nil
		}
	} else if err != nil {
		log.Printf("[service] WARN: menu cache read failed: %v", err)
	}

	items, err := s.store.MenuItems(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(items); err == nil {
		if err := s.cache.Set(ctx, menuCacheKey, raw, s.menuTTL); err != nil {
			log.Printf("[service] WARN: menu cache write failed: %v", err)
		}
	}
	return items, nil
}

func (s *Service) UpdateMenuItems(ctx context.Context, items []domain.MenuItem) ([]domain.MenuItem, error) {
	normalized := make([]domain.MenuItem, 0, len(items))
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" || item.Price < 0 {
			return nil, fmt.Errorf("%w: invalid menu item %q", store.ErrValidation, item.Name)
		}
		if item.ID == "" {
			item.ID = xid.New("menu")
		}
		normalized = append(normalized, item)
	}

	if err := s.store.PutMenuItems(ctx, normalized); err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate(ctx, menuCacheKey); err != nil {
		log.Printf("[service] WARN: menu cache invalidate failed: %v", err)
	}

	s.replicator.TriggerPush()
	return normalized, nil
}

func (s *Service) InventoryItems(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.store.InventoryItems(ctx)
}

func (s *Service) UpdateInventoryItems(ctx context.Context, items []domain.InventoryItem) ([]domain.InventoryItem, error) {
	now := time.Now().UTC()
	normalized := make([]domain.InventoryItem, 0, len(items))
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			return nil, fmt.Errorf("%w: inventory item without a name", store.ErrValidation)
		}
		if item.ID == "" {
			item.ID = xid.New("inv")
		}
		item.UpdatedAt = now
		normalized = append(normalized, item)
	}

	if err := s.store.PutInventoryItems(ctx, normalized); err != nil {
		return nil, err
	}

	s.replicator.TriggerPush()
	return normalized, nil
}

func (s *Service) Purchases(ctx context.Context) ([]domain.Purchase, error) {
	return s.store.Purchases(ctx)
}

func (s *Service) UpdatePurchases(ctx context.Context, purchases []domain.Purchase) ([]domain.Purchase, error) {
	now := time.Now().UTC()
	normalized := make([]domain.Purchase, 0, len(purchases))
	for _, purchase := range purchases {
		if purchase.ID == "" {
			purchase.ID = xid.New("pur")
		}
		if purchase.CreatedAt.IsZero() {
			purchase.CreatedAt = now
		}
		if purchase.Total == 0 {
			for _, line := range purchase.Items {
				purchase.Total += line.Qty * line.UnitCost
			}
		}
		normalized = append(normalized, purchase)
	}

	if err := s.store.PutPurchases(ctx, normalized); err != nil {
		return nil, err
	}

	s.replicator.TriggerPush()
	return normalized, nil
}

func (s *Service) StockTransactions(ctx context.Context) ([]domain.StockTransaction, error) {
	return s.store.StockTransactions(ctx)
}

func (s *Service) UpdateStockTransactions(ctx context.Context, txs []domain.StockTransaction) ([]domain.StockTransaction, error) {
	now := time.Now().UTC()
	normalized := make([]domain.StockTransaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Kind != domain.StockTxIn && tx.Kind != domain.StockTxOut && tx.Kind != domain.StockTxAdjust {
			return nil, fmt.Errorf("%w: unknown stock transaction kind %q", store.ErrValidation, tx.Kind)
		}
		if tx.ID == "" {
			tx.ID = xid.New("stk")
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = now
		}
		normalized = append(normalized, tx)
	}

	if err := s.store.PutStockTransactions(ctx, normalized); err != nil {
		return nil, err
	}

	s.replicator.TriggerPush()
	return normalized, nil
}

func (s *Service) Expenses(ctx context.Context) ([]domain.Expense, error) {
	return s.store.Expenses(ctx)
}

func (s *Service) UpdateExpenses(ctx context.Context, expenses []domain.Expense) ([]domain.Expense, error) {
	now := time.Now().UTC()
	normalized := make([]domain.Expense, 0, len(expenses))
	for _, expense := range expenses {
		if expense.Amount < 0 {
			return nil, fmt.Errorf("%w: negative expense amount", store.ErrValidation)
		}
		if expense.ID == "" {
			expense.ID = xid.New("exp")
		}
		if expense.CreatedAt.IsZero() {
			expense.CreatedAt = now
		}
		normalized = append(normalized, expense)
	}

	if err := s.store.PutExpenses(ctx, normalized); err != nil {
		return nil, err
	}

	s.replicator.TriggerPush()
	return normalized, nil
}

func (s *Service) Customers(ctx context.Context) ([]domain.Customer, error) {
	return s.store.Customers(ctx)
}

func (s *Service) UpdateCustomers(ctx context.Context, customers []domain.Customer) ([]domain.Customer, error) {
	now := time.Now().UTC()
	normalized := make([]domain.Customer, 0, len(customers))
	for _, customer := range customers {
		customer.Name = strings.TrimSpace(customer.Name)
		if customer.Name == "" {
			return nil, fmt.Errorf("%w: customer without a name", store.ErrValidation)
		}
		if customer.ID == "" {
			customer.ID = xid.New("cus")
		}
		if customer.CreatedAt.IsZero() {
			customer.CreatedAt = now
		}
		normalized = append(normalized, customer)
	}

	if err := s.store.PutCustomers(ctx, normalized); err != nil {
		return nil, err
	}

	s.replicator.TriggerPush()
	return normalized, nil
}

func (s *Service) Settings(ctx context.Context) (domain.SystemSettings, error) {
	return s.store.Settings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, settings domain.SystemSettings) (domain.SystemSettings, error) {
	if settings.TaxRatePercent < 0 || settings.TaxRatePercent > 100 {
		return domain.SystemSettings{}, fmt.Errorf("%w: tax rate out of range", store.ErrValidation)
	}
	if settings.ServiceChargeRatePercent < 0 || settings.ServiceChargeRatePercent > 100 {
		return domain.SystemSettings{}, fmt.Errorf("%w: service charge rate out of range", store.ErrValidation)
	}
	if settings.SyncEnabled && strings.TrimSpace(settings.DropboxToken) == "" {
		return domain.SystemSettings{}, fmt.Errorf("%w: sync enabled without a credential", store.ErrValidation)
	}
	if strings.TrimSpace(settings.DropboxPath) == "" {
		settings.DropboxPath = domain.DefaultSettings().DropboxPath
	}
	settings.UpdatedAt = time.Now().UTC()

	if err := s.store.PutSettings(ctx, settings); err != nil {
		return domain.SystemSettings{}, err
	}

	s.replicator.TriggerPush()
	return settings, nil
}

func (s *Service) PrinterConfig(ctx context.Context) (domain.PrinterConfig, error) {
	return s.store.PrinterConfig(ctx)
}

func (s *Service) UpdatePrinterConfig(ctx context.Context, cfg domain.PrinterConfig) (domain.PrinterConfig, error) {
	if cfg.PaperWidthMM <= 0 {
		cfg.PaperWidthMM = domain.DefaultPrinterConfig().PaperWidthMM
	}

	if err := s.store.PutPrinterConfig(ctx, cfg); err != nil {
		return domain.PrinterConfig{}, err
	}

	s.replicator.TriggerPush()
	return cfg, nil
}
