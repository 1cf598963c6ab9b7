package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/marketplace-backend/internal/apperr"
	"github.com/andreasstove999/marketplace-backend/internal/db"
)

type Repository interface {
	CreateTx(ctx context.Context, q db.Querier, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	// GetByIDForUpdateTx locks the order row for the remainder of the
	// caller's transaction, so status checks and the following write see
	// a stable order.
	GetByIDForUpdateTx(ctx context.Context, q db.Querier, orderID string) (*Order, error)
	UpdateStatusTx(ctx context.Context, q db.Querier, orderID string, status Status) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	Dashboard(ctx context.Context) (Dashboard, error)
}

type repo struct {
	pool db.Pool
}

func NewRepository(pool db.Pool) Repository {
	return &repo{pool: pool}
}

func (r *repo) CreateTx(ctx context.Context, q db.Querier, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	_, err := q.Exec(ctx,
		`INSERT INTO orders (id, user_id, store_id, address, status, total_amount, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		o.ID, o.UserID, o.StoreID, o.Address, string(o.Status), o.TotalAmount, o.CreatedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "insert order")
	}

	for _, it := range o.Items {
		_, err = q.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity, price)
             VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), o.ID, it.ProductID, it.Quantity, it.Price,
		)
		if err != nil {
			return apperr.Wrap(apperr.KindStorage, err, "insert order item %s", it.ProductID)
		}
	}

	return nil
}

const orderColumns = `id, user_id, store_id, address, status, total_amount, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status string
	err := row.Scan(&o.ID, &o.UserID, &o.StoreID, &o.Address, &status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}

func (r *repo) GetByID(ctx context.Context, orderID string) (*Order, error) {
	return r.getByID(ctx, r.pool, orderID, "")
}

func (r *repo) GetByIDForUpdateTx(ctx context.Context, q db.Querier, orderID string) (*Order, error) {
	return r.getByID(ctx, q, orderID, " FOR UPDATE")
}

func (r *repo) getByID(ctx context.Context, q db.Querier, orderID, suffix string) (*Order, error) {
	row := q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`+suffix, orderID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "order %s not found", orderID)
		}
		return nil, apperr.Wrap(apperr.KindStorage, err, "select order %s", orderID)
	}

	if err := r.loadItems(ctx, q, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repo) loadItems(ctx context.Context, q db.Querier, o *Order) error {
	rows, err := q.Query(ctx,
		`SELECT product_id, quantity, price FROM order_items WHERE order_id = $1`, o.ID)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "select order items")
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.Price); err != nil {
			return apperr.Wrap(apperr.KindStorage, err, "scan order item")
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "iterate order items")
	}
	return nil
}

func (r *repo) UpdateStatusTx(ctx context.Context, q db.Querier, orderID string, status Status) error {
	tag, err := q.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
		orderID, string(status),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "update status of order %s", orderID)
	}
	if tag.RowsAffected() != 1 {
		return apperr.New(apperr.KindNotFound, "order %s not found", orderID)
	}
	return nil
}

func (r *repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *repo) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`)
}

func (r *repo) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "select orders")
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, err, "scan order")
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "iterate orders")
	}

	for i := range orders {
		if err := r.loadItems(ctx, r.pool, &orders[i]); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *repo) Dashboard(ctx context.Context) (Dashboard, error) {
	d := Dashboard{OrdersByStatus: map[Status]int{}}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM orders`,
	).Scan(&d.TotalOrders, &d.TotalRevenue)
	if err != nil {
		return Dashboard{}, apperr.Wrap(apperr.KindStorage, err, "aggregate orders")
	}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return Dashboard{}, apperr.Wrap(apperr.KindStorage, err, "aggregate orders by status")
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Dashboard{}, apperr.Wrap(apperr.KindStorage, err, "scan status count")
		}
		d.OrdersByStatus[Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return Dashboard{}, apperr.Wrap(apperr.KindStorage, err, "iterate status counts")
	}

	return d, nil
}
