package storage

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	name: "mysql",
	createTable: `
		CREATE TABLE IF NOT EXISTS cart_slots (
			slot_key   VARCHAR(191) NOT NULL PRIMARY KEY,
			payload    LONGBLOB     NOT NULL,
			version    BIGINT       NOT NULL DEFAULT 0,
			updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
	upsert: `
		INSERT INTO cart_slots (slot_key, payload, version, updated_at)
		VALUES (?, ?, 1, NOW())
		ON DUPLICATE KEY UPDATE payload = VALUES(payload), version = version + 1, updated_at = NOW()`,
}

type MySQLAdapter struct {
	sqlSlotStore
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{sqlSlotStore{db: db, dialect: mysqlDialect}}
}
