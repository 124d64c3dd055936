package casbin

import (
	"database/sql"
	"fmt"

	sqladapter "github.com/Blank-Xu/sql-adapter"
)

// NewSQLAdapter stores policies in tableName. driverName selects the SQL
// dialect ("sqlite3" or "postgres").
func NewSQLAdapter(sqlDB *sql.DB, driverName, tableName string) (*sqladapter.Adapter, error) {
	adapter, err := sqladapter.NewAdapter(sqlDB, driverName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin sql adapter: %w", err)
	}

	return adapter, nil
}
