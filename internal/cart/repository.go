package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/marketplace-backend/internal/apperr"
	"github.com/andreasstove999/marketplace-backend/internal/db"
)

type Repository interface {
	// Get returns nil when the user has no cart.
	Get(ctx context.Context, userID string) (*Cart, error)
	Upsert(ctx context.Context, c *Cart) error
	// RemoveStoreItemsTx deletes exactly the given line items inside a
	// caller-owned transaction and refreshes the cart total.
	RemoveStoreItemsTx(ctx context.Context, q db.Querier, userID string, productIDs []string) error
}

type repo struct {
	pool db.Pool
}

func NewRepository(pool db.Pool) Repository {
	return &repo{pool: pool}
}

func (r *repo) Get(ctx context.Context, userID string) (*Cart, error) {
	var c Cart
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, total, updated_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&c.ID, &c.UserID, &c.Total, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// caller (service) can turn this into 404
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindStorage, err, "load cart for user %s", userID)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT product_id, store_id, quantity, price FROM cart_items WHERE cart_id = $1`, c.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "load cart items for user %s", userID)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.StoreID, &it.Quantity, &it.Price); err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, err, "scan cart item")
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "iterate cart items")
	}

	return &c, nil
}

func (r *repo) Upsert(ctx context.Context, c *Cart) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "begin cart upsert")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO carts (id, user_id, total, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE
		SET total = EXCLUDED.total, updated_at = now()
		RETURNING id, updated_at
	`, c.ID, c.UserID, c.Total).Scan(&c.ID, &c.UpdatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "upsert cart for user %s", c.UserID)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, c.ID); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "clear cart items")
	}

	for _, it := range c.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO cart_items (id, cart_id, product_id, store_id, quantity, price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), c.ID, it.ProductID, it.StoreID, it.Quantity, it.Price,
		)
		if err != nil {
			return apperr.Wrap(apperr.KindStorage, err, "insert cart item %s", it.ProductID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "commit cart upsert")
	}
	return nil
}

func (r *repo) RemoveStoreItemsTx(ctx context.Context, q db.Querier, userID string, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}

	_, err := q.Exec(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)
		  AND product_id = ANY($2)
	`, userID, productIDs)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "remove ordered items for user %s", userID)
	}

	_, err = q.Exec(ctx, `
		UPDATE carts
		SET total = COALESCE((SELECT SUM(quantity * price) FROM cart_items WHERE cart_id = carts.id), 0),
		    updated_at = now()
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "refresh cart total for user %s", userID)
	}
	return nil
}
