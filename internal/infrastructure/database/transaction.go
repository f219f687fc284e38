package database

import (
	"database/sql"

	"github.com/nicklaros/stockengine/internal/application/ports"
	"github.com/nicklaros/stockengine/internal/domain/repositories"
	infraRepos "github.com/nicklaros/stockengine/internal/infrastructure/repositories"
)

// SQLTransaction wraps an open *sql.Tx and hands out repositories scoped to
// it, mirroring the teacher's per-transaction repository factory methods.
type SQLTransaction struct {
	tx *sql.Tx
}

// NewSQLTransaction wraps tx as a ports.TransactionPort.
func NewSQLTransaction(tx *sql.Tx) *SQLTransaction {
	return &SQLTransaction{tx: tx}
}

func (t *SQLTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *SQLTransaction) Rollback() error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

func (t *SQLTransaction) GetInventoryItemRepository() repositories.InventoryItemRepository {
	return infraRepos.NewPostgresInventoryItemRepository(t.tx)
}

func (t *SQLTransaction) GetStockMovementRepository() repositories.StockMovementRepository {
	return infraRepos.NewPostgresStockMovementRepository(t.tx)
}

var _ ports.TransactionPort = (*SQLTransaction)(nil)
