package inventory

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/marketplace-backend/internal/apperr"
	"github.com/andreasstove999/marketplace-backend/internal/db"
)

// Repository is the stock ledger. Reserve and Restock run inside a
// caller-owned transaction so order creation, stock mutation, and cart
// cleanup commit or roll back together.
type Repository interface {
	Get(ctx context.Context, productID string) (StockItem, error)
	SetAvailable(ctx context.Context, productID string, available int) error
	ReserveTx(ctx context.Context, q db.Querier, lines []Line) error
	RestockTx(ctx context.Context, q db.Querier, lines []Line) error
}

type PostgresRepository struct {
	pool db.Pool
}

func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, productID string) (StockItem, error) {
	var item StockItem
	row := r.pool.QueryRow(ctx, `SELECT product_id, available FROM inventory_stock WHERE product_id=$1`, productID)
	if err := row.Scan(&item.ProductID, &item.Available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, apperr.New(apperr.KindNotFound, "product %s not in inventory", productID)
		}
		return StockItem{}, apperr.Wrap(apperr.KindStorage, err, "load stock for product %s", productID)
	}
	return item, nil
}

func (r *PostgresRepository) SetAvailable(ctx context.Context, productID string, available int) error {
	if available < 0 {
		return apperr.New(apperr.KindValidation, "available must not be negative")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inventory_stock(product_id, available)
		VALUES($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET available=EXCLUDED.available, updated_at=now()
	`, productID, available)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "set stock for product %s", productID)
	}
	return nil
}

// ReserveTx locks each product row and decrements stock, failing the
// whole reservation on the first missing or short line. Rows are locked
// in product-id order so two concurrent checkouts cannot deadlock.
func (r *PostgresRepository) ReserveTx(ctx context.Context, q db.Querier, lines []Line) error {
	ordered := make([]Line, len(lines))
	copy(ordered, lines)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	for _, line := range ordered {
		if line.Quantity <= 0 {
			return apperr.New(apperr.KindValidation, "quantity for product %s must be positive", line.ProductID)
		}

		var available int
		err := q.QueryRow(ctx, `
			SELECT available
			FROM inventory_stock
			WHERE product_id=$1
			FOR UPDATE
		`, line.ProductID).Scan(&available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.New(apperr.KindNotFound, "product %s not in inventory", line.ProductID)
			}
			return apperr.Wrap(apperr.KindStorage, err, "lock stock for product %s", line.ProductID)
		}

		if available < line.Quantity {
			short := &ShortStockError{ProductID: line.ProductID, Requested: line.Quantity, Available: available}
			return apperr.Wrap(apperr.KindInsufficientStock, short, "not enough stock for product %s", line.ProductID)
		}

		// The available >= quantity floor holds under the row lock taken above.
		tag, err := q.Exec(ctx, `
			UPDATE inventory_stock
			SET available = available - $2, updated_at=now()
			WHERE product_id=$1 AND available >= $2
		`, line.ProductID, line.Quantity)
		if err != nil {
			return apperr.Wrap(apperr.KindStorage, err, "decrement stock for product %s", line.ProductID)
		}
		if tag.RowsAffected() != 1 {
			return apperr.New(apperr.KindInternal, "stock floor violated for product %s", line.ProductID)
		}
	}

	return nil
}

// RestockTx returns reserved quantities to the ledger (cancellation path).
func (r *PostgresRepository) RestockTx(ctx context.Context, q db.Querier, lines []Line) error {
	for _, line := range lines {
		_, err := q.Exec(ctx, `
			INSERT INTO inventory_stock(product_id, available)
			VALUES($1, $2)
			ON CONFLICT (product_id) DO UPDATE
			SET available = inventory_stock.available + EXCLUDED.available, updated_at=now()
		`, line.ProductID, line.Quantity)
		if err != nil {
			return apperr.Wrap(apperr.KindStorage, err, "restock product %s", line.ProductID)
		}
	}
	return nil
}
