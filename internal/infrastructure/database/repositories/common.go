package repositories

import (
	"context"
	"database/sql"
	"time"
)

// queryExecutor abstracts sql.DB and sql.Tx
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// QueryObserver receives the outcome of every repository query.  The metrics
// layer implements it; nil disables observation.
type QueryObserver interface {
	ObserveQuery(name string, elapsed time.Duration, err error)
}
