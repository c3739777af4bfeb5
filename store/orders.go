package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fuelninja/tracking"
)

var ErrOrderNotFound = errors.New("store: order not found")

// Order is a fuel delivery booking. Driver is a snapshot taken at
// assignment time and does not follow later roster edits.
type Order struct {
	ID           string           `json:"id"`
	OwnerID      string           `json:"owner_id"`
	FuelType     string           `json:"fuel_type"`
	Gallons      float64          `json:"gallons"`
	FullTank     bool             `json:"full_tank"`
	Price        string           `json:"price"`
	Address      string           `json:"address"`
	ScheduledFor string           `json:"scheduled_for"`
	VehicleMake  string           `json:"vehicle_make"`
	VehicleModel string           `json:"vehicle_model"`
	VehicleColor string           `json:"vehicle_color"`
	VehicleYear  string           `json:"vehicle_year"`
	Status       string           `json:"status"`
	Driver       *tracking.Driver `json:"driver,omitempty"`
	PaymentRef   string           `json:"payment_ref,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeliveredAt  *time.Time       `json:"delivered_at,omitempty"`
}

type HistoryEntry struct {
	ID        int64     `json:"id"`
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

const orderCols = `id, owner_id, fuel_type, gallons, full_tank, price, address, scheduled_for,
	vehicle_make, vehicle_model, vehicle_color, vehicle_year, status, driver_json, payment_ref,
	created_at, updated_at, delivered_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var driverJSON string
	var createdAt, updatedAt any
	var deliveredAt any
	err := row.Scan(&o.ID, &o.OwnerID, &o.FuelType, &o.Gallons, &o.FullTank, &o.Price,
		&o.Address, &o.ScheduledFor, &o.VehicleMake, &o.VehicleModel, &o.VehicleColor,
		&o.VehicleYear, &o.Status, &driverJSON, &o.PaymentRef,
		&createdAt, &updatedAt, &deliveredAt)
	if err != nil {
		return nil, err
	}
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	o.DeliveredAt = parseTimePtr(deliveredAt)
	if driverJSON != "" {
		var d tracking.Driver
		if err := json.Unmarshal([]byte(driverJSON), &d); err == nil {
			o.Driver = &d
		}
	}
	return &o, nil
}

func (db *DB) CreateOrder(o *Order) error {
	if o.ID == "" {
		return fmt.Errorf("store: order id required")
	}
	if o.Status == "" {
		o.Status = tracking.StepPending
	}
	driverJSON := ""
	if o.Driver != nil {
		b, err := json.Marshal(o.Driver)
		if err != nil {
			return fmt.Errorf("store: marshal driver: %w", err)
		}
		driverJSON = string(b)
	}
	_, err := db.Exec(db.Q(`INSERT INTO orders
		(id, owner_id, fuel_type, gallons, full_tank, price, address, scheduled_for,
		 vehicle_make, vehicle_model, vehicle_color, vehicle_year, status, driver_json, payment_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		o.ID, o.OwnerID, o.FuelType, o.Gallons, o.FullTank, o.Price, o.Address, o.ScheduledFor,
		o.VehicleMake, o.VehicleModel, o.VehicleColor, o.VehicleYear, o.Status, driverJSON, o.PaymentRef)
	if err != nil {
		return fmt.Errorf("store: create order: %w", err)
	}
	return db.AppendOrderHistory(o.ID, o.Status, "order created")
}

// SaveOrder upserts an order by id. When the id already exists, incoming
// non-empty fields overwrite and OwnerID, CreatedAt and DeliveredAt are
// preserved. Returns true when a new row was created.
func (db *DB) SaveOrder(o *Order) (bool, error) {
	existing, err := db.GetOrder(o.ID)
	if errors.Is(err, ErrOrderNotFound) {
		if err := db.CreateOrder(o); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	merged := *existing
	if o.FuelType != "" {
		merged.FuelType = o.FuelType
	}
	if o.Gallons > 0 {
		merged.Gallons = o.Gallons
	}
	if o.FullTank {
		merged.FullTank = true
	} else if o.Gallons > 0 {
		merged.FullTank = false
	}
	if o.Price != "" {
		merged.Price = o.Price
	}
	if o.Address != "" {
		merged.Address = o.Address
	}
	if o.ScheduledFor != "" {
		merged.ScheduledFor = o.ScheduledFor
	}
	if o.VehicleMake != "" {
		merged.VehicleMake = o.VehicleMake
	}
	if o.VehicleModel != "" {
		merged.VehicleModel = o.VehicleModel
	}
	if o.VehicleColor != "" {
		merged.VehicleColor = o.VehicleColor
	}
	if o.VehicleYear != "" {
		merged.VehicleYear = o.VehicleYear
	}
	if o.Status != "" {
		merged.Status = o.Status
	}
	if o.Driver != nil {
		merged.Driver = o.Driver
	}
	if o.PaymentRef != "" {
		merged.PaymentRef = o.PaymentRef
	}

	driverJSON := ""
	if merged.Driver != nil {
		b, err := json.Marshal(merged.Driver)
		if err != nil {
			return false, fmt.Errorf("store: marshal driver: %w", err)
		}
		driverJSON = string(b)
	}
	_, err = db.Exec(db.Q(`UPDATE orders SET fuel_type = ?, gallons = ?, full_tank = ?, price = ?,
		address = ?, scheduled_for = ?, vehicle_make = ?, vehicle_model = ?, vehicle_color = ?,
		vehicle_year = ?, status = ?, driver_json = ?, payment_ref = ?,
		updated_at = datetime('now','localtime') WHERE id = ?`),
		merged.FuelType, merged.Gallons, merged.FullTank, merged.Price, merged.Address,
		merged.ScheduledFor, merged.VehicleMake, merged.VehicleModel, merged.VehicleColor,
		merged.VehicleYear, merged.Status, driverJSON, merged.PaymentRef, o.ID)
	if err != nil {
		return false, fmt.Errorf("store: save order: %w", err)
	}
	return false, nil
}

func (db *DB) GetOrder(id string) (*Order, error) {
	row := db.QueryRow(db.Q(`SELECT `+orderCols+` FROM orders WHERE id = ?`), id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get order: %w", err)
	}
	return o, nil
}

// ListOrders returns orders newest first, optionally filtered by
// status. A limit of zero or less returns every order; callers that
// wipe or resume the whole collection depend on the full scan.
func (db *DB) ListOrders(status string, limit int) ([]*Order, error) {
	query := `SELECT ` + orderCols + ` FROM orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("store: list orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListOrdersByOwner returns the owner's orders, newest first. An empty
// owner id matches nothing rather than everything.
func (db *DB) ListOrdersByOwner(ownerID string) ([]*Order, error) {
	if ownerID == "" {
		return nil, nil
	}
	rows, err := db.Query(db.Q(`SELECT `+orderCols+` FROM orders
		WHERE owner_id = ? ORDER BY created_at DESC`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("store: list orders by owner: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]*Order, error) {
	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateOrderStatus moves an order to the given status. When terminal is
// true, delivered_at is stamped only if it has never been set, so repeat
// terminal updates leave the original delivery time intact. Returns false
// when no order has the id.
func (db *DB) UpdateOrderStatus(id, status string, terminal bool, detail string) (bool, error) {
	res, err := db.Exec(db.Q(`UPDATE orders SET status = ?,
		updated_at = datetime('now','localtime'),
		delivered_at = CASE WHEN ? AND delivered_at IS NULL
			THEN datetime('now','localtime') ELSE delivered_at END
		WHERE id = ?`), status, terminal, id)
	if err != nil {
		return false, fmt.Errorf("store: update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if err := db.AppendOrderHistory(id, status, detail); err != nil {
		return true, err
	}
	return true, nil
}

// AssignOrderDriver writes the driver snapshot onto the order. The order
// keeps this copy even if the roster entry is later edited or removed.
func (db *DB) AssignOrderDriver(id string, d tracking.Driver) (bool, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return false, fmt.Errorf("store: marshal driver: %w", err)
	}
	res, err := db.Exec(db.Q(`UPDATE orders SET driver_json = ?,
		updated_at = datetime('now','localtime') WHERE id = ?`), string(b), id)
	if err != nil {
		return false, fmt.Errorf("store: assign driver: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) AppendOrderHistory(orderID, status, detail string) error {
	_, err := db.Exec(db.Q(`INSERT INTO order_history (order_id, status, detail) VALUES (?, ?, ?)`),
		orderID, status, detail)
	if err != nil {
		return fmt.Errorf("store: append order history: %w", err)
	}
	return nil
}

func (db *DB) OrderHistory(orderID string) ([]HistoryEntry, error) {
	rows, err := db.Query(db.Q(`SELECT id, order_id, status, detail, created_at
		FROM order_history WHERE order_id = ? ORDER BY id ASC`), orderID)
	if err != nil {
		return nil, fmt.Errorf("store: order history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var createdAt any
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Detail, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearOrders wipes every order along with its history and celebration
// flags. Destructive, admin only.
func (db *DB) ClearOrders() error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("store: clear orders: %w", err)
	}
	defer tx.Rollback()
	for _, stmt := range []string{
		`DELETE FROM order_history`,
		`DELETE FROM celebrations`,
		`DELETE FROM orders`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("store: clear orders: %w", err)
		}
	}
	return tx.Commit()
}
