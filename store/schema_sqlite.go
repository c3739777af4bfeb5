package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL DEFAULT '',
	fuel_type TEXT NOT NULL DEFAULT '',
	gallons REAL NOT NULL DEFAULT 0,
	full_tank INTEGER NOT NULL DEFAULT 0,
	price TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	scheduled_for TEXT NOT NULL DEFAULT '',
	vehicle_make TEXT NOT NULL DEFAULT '',
	vehicle_model TEXT NOT NULL DEFAULT '',
	vehicle_color TEXT NOT NULL DEFAULT '',
	vehicle_year TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	driver_json TEXT NOT NULL DEFAULT '',
	payment_ref TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now','localtime')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now','localtime')),
	delivered_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_orders_owner ON orders(owner_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

CREATE TABLE IF NOT EXISTS order_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	status TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_order_history_order ON order_history(order_id);

CREATE TABLE IF NOT EXISTS tracking_config (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	config TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS celebrations (
	order_id TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS admin_users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	actor TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS outbox (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	topic TEXT NOT NULL,
	msg_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	retries INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now','localtime')),
	sent_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_outbox_unsent ON outbox(sent_at) WHERE sent_at IS NULL;
`
