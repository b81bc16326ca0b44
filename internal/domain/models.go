package domain

import "time"

const (
	OrderStatusPending   = "pending"
	OrderStatusHeld      = "held"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

const (
	OrderTypeDineIn   = "dine_in"
	OrderTypeTakeaway = "takeaway"
	OrderTypeDelivery = "delivery"
)

const (
	DiscountPercent = "percent"
	DiscountFixed   = "fixed"
)

const (
	StockTxIn     = "in"
	StockTxOut    = "out"
	StockTxAdjust = "adjust"
)

// Discount is the discount specification attached to an order at build time.
// Value is a percentage for kind "percent" and an absolute amount for "fixed".
type Discount struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
}

type OrderAddon struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type OrderVariation struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// OrderItem carries price snapshots captured when the cart was built. Stored
// orders are never re-priced against the live menu.
type OrderItem struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	UnitPrice  float64         `json:"unit_price"`
	Qty        int             `json:"qty"`
	Variation  *OrderVariation `json:"variation,omitempty"`
	Addons     []OrderAddon    `json:"addons,omitempty"`
	Note       string          `json:"note,omitempty"`
}

// OrderDetails groups the optional context supplied by the order-building
// surface: table for dine-in, customer/address for delivery, kitchen note.
type OrderDetails struct {
	CustomerName    string `json:"customer_name,omitempty"`
	CustomerPhone   string `json:"customer_phone,omitempty"`
	TableNumber     string `json:"table_number,omitempty"`
	DeliveryAddress string `json:"delivery_address,omitempty"`
	KitchenNote     string `json:"kitchen_note,omitempty"`
}

type Order struct {
	ID             string       `json:"id"`
	OrderNumber    int          `json:"order_number"`
	Items          []OrderItem  `json:"items"`
	OrderType      string       `json:"order_type"`
	Status         string       `json:"status"`
	PaymentMethod  string       `json:"payment_method"`
	Discount       Discount     `json:"discount"`
	Subtotal       float64      `json:"subtotal"`
	DiscountAmount float64      `json:"discount_amount"`
	Tax            float64      `json:"tax"`
	ServiceCharge  float64      `json:"service_charge"`
	Total          float64      `json:"total"`
	CashierName    string       `json:"cashier_name"`
	Details        OrderDetails `json:"details"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type CreateOrderRequest struct {
	Items         []OrderItem  `json:"items"`
	OrderType     string       `json:"order_type"`
	Discount      Discount     `json:"discount"`
	PaymentMethod string       `json:"payment_method"`
	Details       OrderDetails `json:"details"`
}

type MenuVariation struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type MenuAddon struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type MenuItem struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	Price      float64         `json:"price"`
	Available  bool            `json:"available"`
	ImageURL   string          `json:"image_url,omitempty"`
	Variations []MenuVariation `json:"variations,omitempty"`
	Addons     []MenuAddon     `json:"addons,omitempty"`
}

type InventoryItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Unit        string    `json:"unit"`
	Qty         float64   `json:"qty"`
	LowStockAt  float64   `json:"low_stock_at"`
	CostPerUnit float64   `json:"cost_per_unit"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type PurchaseLine struct {
	InventoryItemID string  `json:"inventory_item_id"`
	Name            string  `json:"name"`
	Qty             float64 `json:"qty"`
	UnitCost        float64 `json:"unit_cost"`
}

type Purchase struct {
	ID           string         `json:"id"`
	SupplierName string         `json:"supplier_name"`
	Items        []PurchaseLine `json:"items"`
	Total        float64        `json:"total"`
	Note         string         `json:"note,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type StockTransaction struct {
	ID              string    `json:"id"`
	InventoryItemID string    `json:"inventory_item_id"`
	Kind            string    `json:"kind"`
	Qty             float64   `json:"qty"`
	Reason          string    `json:"reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type Expense struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// SystemSettings is a singleton record. Pricing reads the rates; the sync
// engine reads the remote credential and enabled flag.
type SystemSettings struct {
	RestaurantName           string    `json:"restaurant_name"`
	Currency                 string    `json:"currency"`
	TaxRatePercent           float64   `json:"tax_rate_percent"`
	ServiceChargeRatePercent float64   `json:"service_charge_rate_percent"`
	SyncEnabled              bool      `json:"sync_enabled"`
	DropboxToken             string    `json:"dropbox_token,omitempty"`
	DropboxPath              string    `json:"dropbox_path,omitempty"`
	UpdatedAt                time.Time `json:"updated_at"`
}

type PrinterConfig struct {
	Name         string `json:"name"`
	PaperWidthMM int    `json:"paper_width_mm"`
	AutoPrint    bool   `json:"auto_print"`
	FooterText   string `json:"footer_text,omitempty"`
}

// SnapshotSchemaVersion tags the snapshot container format. Restore rejects
// snapshots written by a newer schema.
const SnapshotSchemaVersion = 1

// Snapshot is the single portable document holding every collection and
// singleton. The same shape is used for local backup files and the cloud
// replica, so the two are interchangeable.
type Snapshot struct {
	SchemaVersion     int                `json:"schema_version"`
	ID                string             `json:"id"`
	CreatedAt         time.Time          `json:"created_at"`
	Orders            []Order            `json:"orders"`
	MenuItems         []MenuItem         `json:"menu_items"`
	InventoryItems    []InventoryItem    `json:"inventory_items"`
	Purchases         []Purchase         `json:"purchases"`
	StockTransactions []StockTransaction `json:"stock_transactions"`
	Expenses          []Expense          `json:"expenses"`
	Users             []UserAccount      `json:"users"`
	Customers         []Customer         `json:"customers"`
	Settings          SystemSettings     `json:"settings"`
	PrinterConfig     PrinterConfig      `json:"printer_config"`
	OrderCounter      int                `json:"order_counter"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultSettings is what a fresh install reads before the settings surface
// has ever written the singleton.
func DefaultSettings() SystemSettings {
	return SystemSettings{
		RestaurantName: "Warung POS",
		Currency:       "Rp",
		SyncEnabled:    false,
		DropboxPath:    "/warungpos_backup.json",
	}
}

func DefaultPrinterConfig() PrinterConfig {
	return PrinterConfig{
		PaperWidthMM: 58,
	}
}
