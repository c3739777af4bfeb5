package store

import "fmt"

// MarkOrderCelebrated records that the delivery celebration has fired
// for an order. Returns true only on the first call for a given id; the
// flag survives restarts so the celebration never replays.
func (db *DB) MarkOrderCelebrated(orderID string) (bool, error) {
	res, err := db.Exec(db.Q(`INSERT INTO celebrations (order_id) VALUES (?)
		ON CONFLICT (order_id) DO NOTHING`), orderID)
	if err != nil {
		return false, fmt.Errorf("store: mark celebrated: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) IsOrderCelebrated(orderID string) (bool, error) {
	var n int
	err := db.QueryRow(db.Q(`SELECT COUNT(*) FROM celebrations WHERE order_id = ?`), orderID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: is celebrated: %w", err)
	}
	return n > 0, nil
}
