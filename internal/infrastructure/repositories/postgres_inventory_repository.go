package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
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

// PostgresInventoryItemRepository implements repositories.InventoryItemRepository
// against PostgreSQL via raw SQL, following the teacher's PostgreSQLStockRepository.
type PostgresInventoryItemRepository struct {
	db queryer
}

// NewPostgresInventoryItemRepository wraps either a *sql.DB (non-transactional
// reads) or a *sql.Tx (row-locked mutations).
func NewPostgresInventoryItemRepository(db queryer) *PostgresInventoryItemRepository {
	return &PostgresInventoryItemRepository{db: db}
}

func marshalMetadata(metadata map[string]interface{}) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(metadata)
}

func unmarshalMetadata(raw []byte) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var metadata map[string]interface{}
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, err
	}
	if len(metadata) == 0 {
		return nil, nil
	}
	return metadata, nil
}

func (r *PostgresInventoryItemRepository) Create(ctx context.Context, item *entities.InventoryItem) error {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("create_item", time.Since(start)) }()

	metadataJSON, err := marshalMetadata(item.Metadata)
	if err != nil {
		return errors.NewInternalError("failed to marshal metadata", err)
	}

	query := `
		INSERT INTO inventory_items (id, sku, location, quantity_on_hand, quantity_reserved,
			reorder_point, reorder_quantity, backorderable, metadata, lock_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.db.ExecContext(ctx, query,
		item.ID, item.SKU, item.Location, item.QuantityOnHand, item.QuantityReserved,
		item.ReorderPoint, item.ReorderQuantity, item.Backorderable, metadataJSON, item.LockVersion,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConflictError("an item already exists at this sku and location")
		}
		return errors.NewInternalError("failed to create inventory item", err)
	}
	return nil
}

const selectInventoryItemColumns = `id, sku, location, quantity_on_hand, quantity_reserved,
	reorder_point, reorder_quantity, backorderable, metadata, lock_version, created_at, updated_at`

func scanInventoryItem(row *sql.Row) (*entities.InventoryItem, error) {
	item := &entities.InventoryItem{}
	var metadataRaw []byte
	err := row.Scan(
		&item.ID, &item.SKU, &item.Location, &item.QuantityOnHand, &item.QuantityReserved,
		&item.ReorderPoint, &item.ReorderQuantity, &item.Backorderable, &metadataRaw, &item.LockVersion,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Metadata, err = unmarshalMetadata(metadataRaw)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func scanInventoryItemRows(rows *sql.Rows) (*entities.InventoryItem, error) {
	item := &entities.InventoryItem{}
	var metadataRaw []byte
	err := rows.Scan(
		&item.ID, &item.SKU, &item.Location, &item.QuantityOnHand, &item.QuantityReserved,
		&item.ReorderPoint, &item.ReorderQuantity, &item.Backorderable, &metadataRaw, &item.LockVersion,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Metadata, err = unmarshalMetadata(metadataRaw)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *PostgresInventoryItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.InventoryItem, error) {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("get_item_by_id", time.Since(start)) }()

	query := fmt.Sprintf(`SELECT %s FROM inventory_items WHERE id = $1`, selectInventoryItemColumns)
	item, err := scanInventoryItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("inventory item")
		}
		return nil, errors.NewInternalError("failed to get inventory item by id", err)
	}
	return item, nil
}

func (r *PostgresInventoryItemRepository) GetBySKULocation(ctx context.Context, sku, location string) (*entities.InventoryItem, error) {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("get_item_by_sku_location", time.Since(start)) }()

	query := fmt.Sprintf(`SELECT %s FROM inventory_items WHERE sku = $1 AND location = $2`, selectInventoryItemColumns)
	item, err := scanInventoryItem(r.db.QueryRowContext(ctx, query, sku, location))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("inventory item")
		}
		return nil, errors.NewInternalError("failed to get inventory item", err)
	}
	return item, nil
}

// GetForUpdate issues SELECT ... FOR UPDATE and must be called within an
// open transaction; it blocks until the row lock is acquired.
func (r *PostgresInventoryItemRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entities.InventoryItem, error) {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("get_item_for_update", time.Since(start)) }()

	query := fmt.Sprintf(`SELECT %s FROM inventory_items WHERE id = $1 FOR UPDATE`, selectInventoryItemColumns)
	item, err := scanInventoryItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("inventory item")
		}
		return nil, errors.NewInternalError("failed to lock inventory item", err)
	}
	return item, nil
}

func (r *PostgresInventoryItemRepository) Update(ctx context.Context, item *entities.InventoryItem, previousLockVersion int64) error {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("update_item", time.Since(start)) }()

	metadataJSON, err := marshalMetadata(item.Metadata)
	if err != nil {
		return errors.NewInternalError("failed to marshal metadata", err)
	}

	query := `
		UPDATE inventory_items
		SET quantity_on_hand = $1, quantity_reserved = $2, reorder_point = $3, reorder_quantity = $4,
		    backorderable = $5, metadata = $6, lock_version = $7, updated_at = $8
		WHERE id = $9 AND lock_version = $10`

	result, err := r.db.ExecContext(ctx, query,
		item.QuantityOnHand, item.QuantityReserved, item.ReorderPoint, item.ReorderQuantity,
		item.Backorderable, metadataJSON, item.LockVersion, item.UpdatedAt,
		item.ID, previousLockVersion,
	)
	if err != nil {
		return errors.NewInternalError("failed to update inventory item", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.NewConflictError("stale lock_version")
	}
	return nil
}

func (r *PostgresInventoryItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("delete_item", time.Since(start)) }()

	result, err := r.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return errors.NewInternalError("failed to delete inventory item", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError("inventory item")
	}
	return nil
}

func (r *PostgresInventoryItemRepository) List(ctx context.Context, filter repositories.InventoryItemFilter, pagination utils.PaginationInfo) ([]*entities.InventoryItem, utils.PaginationInfo, error) {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("list_items", time.Since(start)) }()

	var whereConditions []string
	var args []interface{}
	argIndex := 1

	if filter.SKU != "" {
		whereConditions = append(whereConditions, fmt.Sprintf("sku = $%d", argIndex))
		args = append(args, filter.SKU)
		argIndex++
	}
	if filter.Location != "" {
		whereConditions = append(whereConditions, fmt.Sprintf("location = $%d", argIndex))
		args = append(args, filter.Location)
		argIndex++
	}
	if filter.InStock != nil && *filter.InStock {
		whereConditions = append(whereConditions, "(quantity_on_hand - quantity_reserved) > 0")
	}
	if filter.OutOfStock != nil && *filter.OutOfStock {
		whereConditions = append(whereConditions, "(quantity_on_hand - quantity_reserved) <= 0")
	}
	if filter.LowStock != nil && *filter.LowStock {
		whereConditions = append(whereConditions, "reorder_point IS NOT NULL AND (quantity_on_hand - quantity_reserved) <= reorder_point")
	}

	whereClause := ""
	if len(whereConditions) > 0 {
		whereClause = "WHERE " + strings.Join(whereConditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM inventory_items %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, pagination, errors.NewInternalError("failed to count inventory items", err)
	}

	pageInfo := utils.CalculatePagination(pagination.Page, pagination.PerPage, total)
	offset := utils.GetOffset(pageInfo.Page, pageInfo.PerPage)

	query := fmt.Sprintf(`SELECT %s FROM inventory_items %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		selectInventoryItemColumns, whereClause, argIndex, argIndex+1)
	args = append(args, pageInfo.PerPage, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pageInfo, errors.NewInternalError("failed to list inventory items", err)
	}
	defer rows.Close()

	var items []*entities.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItemRows(rows)
		if err != nil {
			return nil, pageInfo, errors.NewInternalError("failed to scan inventory item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, pageInfo, errors.NewInternalError("failed to iterate inventory items", err)
	}

	return items, pageInfo, nil
}

func (r *PostgresInventoryItemRepository) ListBySKU(ctx context.Context, sku string) ([]*entities.InventoryItem, error) {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("list_items_by_sku", time.Since(start)) }()

	query := fmt.Sprintf(`SELECT %s FROM inventory_items WHERE sku = $1 ORDER BY location`, selectInventoryItemColumns)
	rows, err := r.db.QueryContext(ctx, query, sku)
	if err != nil {
		return nil, errors.NewInternalError("failed to list inventory items by sku", err)
	}
	defer rows.Close()

	var items []*entities.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItemRows(rows)
		if err != nil {
			return nil, errors.NewInternalError("failed to scan inventory item", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *PostgresInventoryItemRepository) ListLowStock(ctx context.Context, pagination utils.PaginationInfo) ([]*entities.InventoryItem, utils.PaginationInfo, error) {
	lowStock := true
	return r.List(ctx, repositories.InventoryItemFilter{LowStock: &lowStock}, pagination)
}

func (r *PostgresInventoryItemRepository) ListLocations(ctx context.Context) ([]string, error) {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("list_locations", time.Since(start)) }()

	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT location FROM inventory_items ORDER BY location`)
	if err != nil {
		return nil, errors.NewInternalError("failed to list locations", err)
	}
	defer rows.Close()

	var locations []string
	for rows.Next() {
		var location string
		if err := rows.Scan(&location); err != nil {
			return nil, errors.NewInternalError("failed to scan location", err)
		}
		locations = append(locations, location)
	}
	return locations, rows.Err()
}

func (r *PostgresInventoryItemRepository) AggregateBySKU(ctx context.Context) ([]repositories.SKUAggregate, error) {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("aggregate_by_sku", time.Since(start)) }()

	query := `
		SELECT sku, SUM(quantity_on_hand), SUM(quantity_reserved), SUM(quantity_on_hand - quantity_reserved)
		FROM inventory_items
		GROUP BY sku
		ORDER BY sku`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewInternalError("failed to aggregate by sku", err)
	}
	defer rows.Close()

	var aggregates []repositories.SKUAggregate
	for rows.Next() {
		var agg repositories.SKUAggregate
		if err := rows.Scan(&agg.SKU, &agg.TotalOnHand, &agg.TotalReserved, &agg.TotalAvailable); err != nil {
			return nil, errors.NewInternalError("failed to scan sku aggregate", err)
		}
		aggregates = append(aggregates, agg)
	}
	return aggregates, rows.Err()
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

var _ repositories.InventoryItemRepository = (*PostgresInventoryItemRepository)(nil)
