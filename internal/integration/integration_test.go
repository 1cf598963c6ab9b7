package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andreasstove999/marketplace-backend/internal/apperr"
	"github.com/andreasstove999/marketplace-backend/internal/cart"
	"github.com/andreasstove999/marketplace-backend/internal/catalog"
	"github.com/andreasstove999/marketplace-backend/internal/db"
	"github.com/andreasstove999/marketplace-backend/internal/identity"
	"github.com/andreasstove999/marketplace-backend/internal/inventory"
	"github.com/andreasstove999/marketplace-backend/internal/order"
	"github.com/andreasstove999/marketplace-backend/internal/testutil"
)

type product struct {
	ID      string  `json:"productId"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	StoreID string  `json:"storeId"`
}

var stubProducts = map[string]product{
	"p1": {ID: "p1", Name: "Espresso Beans", Price: 12.5, StoreID: "store-a"},
	"p2": {ID: "p2", Name: "Filter Paper", Price: 4.0, StoreID: "store-a"},
	"p3": {ID: "p3", Name: "Ceramic Mug", Price: 9.0, StoreID: "store-b"},
}

func startStubCatalog(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/products/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/api/products/"):]
		p, ok := stubProducts[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p)
	})
	mux.HandleFunc("/api/stores/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/api/stores/"):]
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"storeId": id, "name": "Store " + id})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func startStubIdentity(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/api/users/"):]
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"userId": id, "name": "User " + id, "email": id + "@example.com"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type env struct {
	orders *order.Service
	carts  *cart.Service
	stock  inventory.Repository
}

func setup(t *testing.T) *env {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	pgxPool, cleanup := testutil.StartPostgres(ctx, t)
	t.Cleanup(cleanup)
	pool := db.WrapPool(pgxPool)

	catalogSrv := startStubCatalog(t)
	identitySrv := startStubIdentity(t)

	catalogClient := catalog.NewClient(catalogSrv.URL, 2*time.Second)
	identityClient := identity.NewClient(identitySrv.URL, 2*time.Second)

	logger := zap.NewNop()
	stockRepo := inventory.NewPostgresRepository(pool)
	cartRepo := cart.NewRepository(pool)
	orderRepo := order.NewRepository(pool)

	return &env{
		orders: order.NewService(pool, orderRepo, cartRepo, stockRepo, catalogClient, identityClient, nil, logger),
		carts:  cart.NewService(cartRepo, catalogClient, logger),
		stock:  stockRepo,
	}
}

func TestOrderCore(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	require.NoError(t, e.stock.SetAvailable(ctx, "p1", 5))
	require.NoError(t, e.stock.SetAvailable(ctx, "p2", 10))
	require.NoError(t, e.stock.SetAvailable(ctx, "p3", 10))

	t.Run("buy now reserves stock", func(t *testing.T) {
		o, err := e.orders.BuyNow(ctx, order.BuyNowInput{
			UserID: "alice", ProductID: "p1", Quantity: 3, StoreID: "store-a", Address: "7 Home Ln",
		})
		require.NoError(t, err)
		assert.Equal(t, order.StatusPending, o.Status)
		assert.Equal(t, 37.5, o.TotalAmount)

		left, err := e.stock.Get(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 2, left.Available)
	})

	t.Run("buy now rejects short stock and changes nothing", func(t *testing.T) {
		_, err := e.orders.BuyNow(ctx, order.BuyNowInput{
			UserID: "alice", ProductID: "p1", Quantity: 3, StoreID: "store-a", Address: "7 Home Ln",
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
		assert.Contains(t, err.Error(), "Espresso Beans")

		left, err := e.stock.Get(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 2, left.Available)

		history, err := e.orders.History(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("checkout consumes only the chosen store", func(t *testing.T) {
		_, err := e.carts.AddItem(ctx, "bob", "p2", 2)
		require.NoError(t, err)
		_, err = e.carts.AddItem(ctx, "bob", "p3", 1)
		require.NoError(t, err)

		o, err := e.orders.CheckoutCart(ctx, order.CheckoutInput{
			UserID: "bob", StoreID: "store-a", Address: "3 Side St",
		})
		require.NoError(t, err)
		require.Len(t, o.Items, 1)
		assert.Equal(t, "p2", o.Items[0].ProductID)
		assert.Equal(t, 8.0, o.TotalAmount)

		// store-b's mug stays in the cart
		detail, err := e.carts.Get(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, detail.Items, 1)
		assert.Equal(t, "p3", detail.Items[0].ProductID)

		left, err := e.stock.Get(ctx, "p2")
		require.NoError(t, err)
		assert.Equal(t, 8, left.Available)
	})

	t.Run("checkout failure leaves cart and ledger untouched", func(t *testing.T) {
		_, err := e.carts.AddItem(ctx, "carol", "p2", 2)
		require.NoError(t, err)
		_, err = e.carts.AddItem(ctx, "carol", "p1", 50)
		require.NoError(t, err)

		_, err = e.orders.CheckoutCart(ctx, order.CheckoutInput{
			UserID: "carol", StoreID: "store-a", Address: "9 Back Rd",
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))

		left, err := e.stock.Get(ctx, "p2")
		require.NoError(t, err)
		assert.Equal(t, 8, left.Available)

		detail, err := e.carts.Get(ctx, "carol")
		require.NoError(t, err)
		assert.Len(t, detail.Items, 2)
	})

	t.Run("cancel returns stock and is final", func(t *testing.T) {
		o, err := e.orders.BuyNow(ctx, order.BuyNowInput{
			UserID: "dave", ProductID: "p3", Quantity: 4, StoreID: "store-b", Address: "1 Hill Ave",
		})
		require.NoError(t, err)

		before, err := e.stock.Get(ctx, "p3")
		require.NoError(t, err)

		cancelled, err := e.orders.Cancel(ctx, o.ID, "dave")
		require.NoError(t, err)
		assert.Equal(t, order.StatusCancelled, cancelled.Status)

		after, err := e.stock.Get(ctx, "p3")
		require.NoError(t, err)
		assert.Equal(t, before.Available+4, after.Available)

		_, err = e.orders.Cancel(ctx, o.ID, "dave")
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

		after2, err := e.stock.Get(ctx, "p3")
		require.NoError(t, err)
		assert.Equal(t, after.Available, after2.Available)
	})

	t.Run("track enriches from upstreams", func(t *testing.T) {
		history, err := e.orders.History(ctx, "alice")
		require.NoError(t, err)
		require.NotEmpty(t, history)

		detail, err := e.orders.Track(ctx, history[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "User alice", detail.User.Name)
		require.Len(t, detail.Products, 1)
		assert.Equal(t, "Espresso Beans", detail.Products[0].Name)
	})

	t.Run("status lifecycle", func(t *testing.T) {
		o, err := e.orders.BuyNow(ctx, order.BuyNowInput{
			UserID: "erin", ProductID: "p2", Quantity: 1, StoreID: "store-a", Address: "2 Dock St",
		})
		require.NoError(t, err)

		for _, next := range []string{"processing", "shipped", "delivered"} {
			o, err = e.orders.UpdateStatus(ctx, o.ID, next)
			require.NoError(t, err)
		}
		assert.Equal(t, order.StatusDelivered, o.Status)

		_, err = e.orders.UpdateStatus(ctx, o.ID, "pending")
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
	})

	t.Run("dashboard aggregates", func(t *testing.T) {
		d, err := e.orders.Dashboard(ctx)
		require.NoError(t, err)
		assert.Greater(t, d.TotalOrders, 0)
		assert.Greater(t, d.TotalRevenue, 0.0)
		assert.Greater(t, d.OrdersByStatus[order.StatusCancelled], 0)
		assert.Greater(t, d.OrdersByStatus[order.StatusDelivered], 0)

		total := 0
		for _, n := range d.OrdersByStatus {
			total += n
		}
		assert.Equal(t, d.TotalOrders, total)
	})

	t.Run("admin listing covers every order", func(t *testing.T) {
		entries, err := e.orders.ListAll(ctx)
		require.NoError(t, err)

		d, err := e.orders.Dashboard(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, d.TotalOrders)
		for _, entry := range entries {
			assert.NotEmpty(t, entry.User.Name)
			assert.NotEmpty(t, entry.Store.Name)
		}
	})
}

func TestConcurrentReservations(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	const available = 5
	require.NoError(t, e.stock.SetAvailable(ctx, "p1", available))

	const buyers = 10
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.orders.BuyNow(ctx, order.BuyNowInput{
				UserID:    fmt.Sprintf("buyer-%d", i),
				ProductID: "p1",
				Quantity:  1,
				StoreID:   "store-a",
				Address:   "7 Home Ln",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
		}
	}
	assert.Equal(t, available, succeeded)

	left, err := e.stock.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, left.Available)
}
