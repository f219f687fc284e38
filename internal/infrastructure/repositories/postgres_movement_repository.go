package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nicklaros/stockengine/internal/domain/entities"
	"github.com/nicklaros/stockengine/internal/domain/repositories"
	"github.com/nicklaros/stockengine/internal/infrastructure/metrics"
	"github.com/nicklaros/stockengine/pkg/errors"
	"github.com/nicklaros/stockengine/pkg/utils"
)

// PostgresStockMovementRepository implements repositories.StockMovementRepository
// against the append-only stock_movements table.
type PostgresStockMovementRepository struct {
	db queryer
}

// NewPostgresStockMovementRepository wraps either a *sql.DB or a *sql.Tx.
func NewPostgresStockMovementRepository(db queryer) *PostgresStockMovementRepository {
	return &PostgresStockMovementRepository{db: db}
}

const selectMovementColumns = `id, inventory_item_id, movement_type, quantity, quantity_before, quantity_after,
	reason, reference_type, reference_id, metadata, created_at`

func (r *PostgresStockMovementRepository) Create(ctx context.Context, movement *entities.StockMovement) error {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("create_movement", time.Since(start)) }()

	metadataJSON, err := marshalMetadata(movement.Metadata)
	if err != nil {
		return errors.NewInternalError("failed to marshal metadata", err)
	}

	query := `
		INSERT INTO stock_movements (id, inventory_item_id, movement_type, quantity, quantity_before,
			quantity_after, reason, reference_type, reference_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		movement.ID, movement.InventoryItemID, movement.MovementType, movement.Quantity,
		movement.QuantityBefore, movement.QuantityAfter, movement.Reason,
		movement.ReferenceType, movement.ReferenceID, metadataJSON, movement.CreatedAt,
	)
	if err != nil {
		return errors.NewInternalError("failed to record stock movement", err)
	}
	return nil
}

func scanMovement(row *sql.Row) (*entities.StockMovement, error) {
	mv := &entities.StockMovement{}
	var metadataRaw []byte
	err := row.Scan(
		&mv.ID, &mv.InventoryItemID, &mv.MovementType, &mv.Quantity, &mv.QuantityBefore, &mv.QuantityAfter,
		&mv.Reason, &mv.ReferenceType, &mv.ReferenceID, &metadataRaw, &mv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	mv.Metadata, err = unmarshalMetadata(metadataRaw)
	if err != nil {
		return nil, err
	}
	return mv, nil
}

func scanMovementRows(rows *sql.Rows) (*entities.StockMovement, error) {
	mv := &entities.StockMovement{}
	var metadataRaw []byte
	err := rows.Scan(
		&mv.ID, &mv.InventoryItemID, &mv.MovementType, &mv.Quantity, &mv.QuantityBefore, &mv.QuantityAfter,
		&mv.Reason, &mv.ReferenceType, &mv.ReferenceID, &metadataRaw, &mv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	mv.Metadata, err = unmarshalMetadata(metadataRaw)
	if err != nil {
		return nil, err
	}
	return mv, nil
}

func (r *PostgresStockMovementRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.StockMovement, error) {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("get_movement_by_id", time.Since(start)) }()

	query := fmt.Sprintf(`SELECT %s FROM stock_movements WHERE id = $1`, selectMovementColumns)
	mv, err := scanMovement(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("stock movement")
		}
		return nil, errors.NewInternalError("failed to get stock movement", err)
	}
	return mv, nil
}

func buildMovementFilter(filter repositories.StockMovementFilter, startIndex int) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}
	argIndex := startIndex

	if filter.MovementType != nil {
		conditions = append(conditions, fmt.Sprintf("movement_type = $%d", argIndex))
		args = append(args, *filter.MovementType)
		argIndex++
	}
	if filter.ReferenceType != "" {
		conditions = append(conditions, fmt.Sprintf("reference_type = $%d", argIndex))
		args = append(args, filter.ReferenceType)
		argIndex++
	}
	if filter.ReferenceID != "" {
		conditions = append(conditions, fmt.Sprintf("reference_id = $%d", argIndex))
		args = append(args, filter.ReferenceID)
		argIndex++
	}
	if filter.FromDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.FromDate)
		argIndex++
	}
	if filter.ToDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filter.ToDate)
		argIndex++
	}
	return conditions, args
}

func (r *PostgresStockMovementRepository) List(ctx context.Context, filter repositories.StockMovementFilter, pagination utils.PaginationInfo) ([]*entities.StockMovement, utils.PaginationInfo, error) {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("list_movements", time.Since(start)) }()

	conditions, args := buildMovementFilter(filter, 1)
	return r.query(ctx, conditions, args, pagination)
}

func (r *PostgresStockMovementRepository) ListByInventoryItemID(ctx context.Context, itemID uuid.UUID, filter repositories.StockMovementFilter, pagination utils.PaginationInfo) ([]*entities.StockMovement, utils.PaginationInfo, error) {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("list_movements_by_item", time.Since(start)) }()

	conditions, args := buildMovementFilter(filter, 2)
	conditions = append([]string{"inventory_item_id = $1"}, conditions...)
	args = append([]interface{}{itemID}, args...)
	return r.query(ctx, conditions, args, pagination)
}

func (r *PostgresStockMovementRepository) query(ctx context.Context, conditions []string, args []interface{}, pagination utils.PaginationInfo) ([]*entities.StockMovement, utils.PaginationInfo, error) {
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM stock_movements %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, pagination, errors.NewInternalError("failed to count stock movements", err)
	}

	pageInfo := utils.CalculatePagination(pagination.Page, pagination.PerPage, total)
	offset := utils.GetOffset(pageInfo.Page, pageInfo.PerPage)

	nextIndex := len(args) + 1
	query := fmt.Sprintf(`SELECT %s FROM stock_movements %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		selectMovementColumns, whereClause, nextIndex, nextIndex+1)
	args = append(args, pageInfo.PerPage, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pageInfo, errors.NewInternalError("failed to list stock movements", err)
	}
	defer rows.Close()

	var movements []*entities.StockMovement
	for rows.Next() {
		mv, err := scanMovementRows(rows)
		if err != nil {
			return nil, pageInfo, errors.NewInternalError("failed to scan stock movement", err)
		}
		movements = append(movements, mv)
	}
	return movements, pageInfo, rows.Err()
}

var _ repositories.StockMovementRepository = (*PostgresStockMovementRepository)(nil)
