package storage

import (
	"context"
	"fmt"
)

// Drivers accepted by OpenBackend.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OpenBackend opens the results store selected by driver. The returned Store
// owns its connection and must be closed by the caller.
func OpenBackend(ctx context.Context, driver, dataDir, dsn string) (Store, error) {
	switch driver {
	case "", DriverSQLite:
		s, err := Open(dataDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
