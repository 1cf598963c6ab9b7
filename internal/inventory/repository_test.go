package inventory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/marketplace-backend/internal/apperr"
	"github.com/andreasstove999/marketplace-backend/internal/db"
)

func TestGet(t *testing.T) {
	ctx := context.Background()
	m := newMockDB(map[string]int{"p1": 7})
	repo := NewPostgresRepository(m)

	item, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, StockItem{ProductID: "p1", Available: 7}, item)
}

func TestGet_Missing(t *testing.T) {
	repo := NewPostgresRepository(newMockDB(nil))

	_, err := repo.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSetAvailable(t *testing.T) {
	ctx := context.Background()
	m := newMockDB(nil)
	repo := NewPostgresRepository(m)

	require.NoError(t, repo.SetAvailable(ctx, "p1", 10))
	require.NoError(t, repo.SetAvailable(ctx, "p1", 4))
	assert.Equal(t, 4, m.stocks["p1"])
}

func TestSetAvailable_Negative(t *testing.T) {
	repo := NewPostgresRepository(newMockDB(nil))

	err := repo.SetAvailable(context.Background(), "p1", -1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestReserveTx(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements every line", func(t *testing.T) {
		m := newMockDB(map[string]int{"p1": 5, "p2": 3})
		repo := NewPostgresRepository(m)

		err := repo.ReserveTx(ctx, m, []Line{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, m.stocks["p1"])
		assert.Equal(t, 2, m.stocks["p2"])
	})

	t.Run("short line fails with detail", func(t *testing.T) {
		m := newMockDB(map[string]int{"p1": 1})
		repo := NewPostgresRepository(m)

		err := repo.ReserveTx(ctx, m, []Line{{ProductID: "p1", Quantity: 2}})
		require.Error(t, err)
		assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))

		var short *ShortStockError
		require.ErrorAs(t, err, &short)
		assert.Equal(t, "p1", short.ProductID)
		assert.Equal(t, 2, short.Requested)
		assert.Equal(t, 1, short.Available)
		assert.Equal(t, 1, m.stocks["p1"])
	})

	t.Run("unknown product fails", func(t *testing.T) {
		m := newMockDB(map[string]int{"p1": 2})
		repo := NewPostgresRepository(m)

		err := repo.ReserveTx(ctx, m, []Line{{ProductID: "missing", Quantity: 1}})
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		assert.Equal(t, 2, m.stocks["p1"])
	})

	t.Run("non-positive quantity rejected", func(t *testing.T) {
		m := newMockDB(map[string]int{"p1": 2})
		repo := NewPostgresRepository(m)

		err := repo.ReserveTx(ctx, m, []Line{{ProductID: "p1", Quantity: 0}})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("exec failure surfaces as storage", func(t *testing.T) {
		m := newMockDB(map[string]int{"p1": 3})
		m.execErr = errors.New("update fail")
		repo := NewPostgresRepository(m)

		err := repo.ReserveTx(ctx, m, []Line{{ProductID: "p1", Quantity: 1}})
		require.Error(t, err)
		assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
		assert.Equal(t, 3, m.stocks["p1"])
	})
}

func TestRestockTx(t *testing.T) {
	ctx := context.Background()
	m := newMockDB(map[string]int{"p1": 2})
	repo := NewPostgresRepository(m)

	err := repo.RestockTx(ctx, m, []Line{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "gone", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, m.stocks["p1"])
	assert.Equal(t, 1, m.stocks["gone"])
}

type mockDB struct {
	stocks  map[string]int
	execErr error
}

func newMockDB(initial map[string]int) *mockDB {
	cp := make(map[string]int, len(initial))
	for k, v := range initial {
		cp[k] = v
	}
	return &mockDB{stocks: cp}
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	productID := args[0].(string)
	available, ok := m.stocks[productID]
	if !ok {
		return mockRow{err: pgx.ErrNoRows}
	}

	if strings.Contains(sql, "SELECT product_id") {
		return mockRow{values: []any{productID, available}}
	}
	return mockRow{values: []any{available}}
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execErr != nil {
		return pgconn.CommandTag{}, m.execErr
	}

	productID := args[0].(string)
	quantity := args[1].(int)

	switch {
	case strings.Contains(sql, "available - $2"):
		if m.stocks[productID] < quantity {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		m.stocks[productID] -= quantity
		return pgconn.NewCommandTag("UPDATE 1"), nil
	case strings.Contains(sql, "inventory_stock.available + EXCLUDED.available"):
		m.stocks[productID] += quantity
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	default:
		m.stocks[productID] = quantity
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (m *mockDB) Begin(ctx context.Context) (db.Tx, error) {
	return nil, errors.New("not implemented")
}

type mockRow struct {
	values []any
	err    error
}

func (r mockRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int:
			*d = v.(int)
		default:
			return errors.New("unsupported scan dest")
		}
	}
	return nil
}
