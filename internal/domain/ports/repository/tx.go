package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// NoTX runs a repository call on its own pooled connection.
var NoTX interface{}

// TransactionManager executes fn inside one database transaction and passes
// the handle as tx. Repositories detect the handle on their side, take row
// locks (SELECT ... FOR UPDATE) and bind Exec/Query to it.
//
// Repositories MUST accept a nil tx (non-transactional path). Writes made
// with NoTX while a transaction is open are not rolled back with it.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
