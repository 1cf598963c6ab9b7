package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andreasstove999/marketplace-backend/internal/apperr"
	"github.com/andreasstove999/marketplace-backend/internal/cart"
	"github.com/andreasstove999/marketplace-backend/internal/catalog"
	"github.com/andreasstove999/marketplace-backend/internal/db"
	"github.com/andreasstove999/marketplace-backend/internal/identity"
	"github.com/andreasstove999/marketplace-backend/internal/inventory"
)

type CatalogClient interface {
	GetProduct(ctx context.Context, productID string) (catalog.Product, error)
	GetStore(ctx context.Context, storeID string) (catalog.Store, error)
}

type IdentityClient interface {
	GetUser(ctx context.Context, userID string) (identity.User, error)
}

type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, o *Order) error
	PublishOrderCancelled(ctx context.Context, o *Order) error
}

// Service is the order builder and lifecycle manager. Placement runs as
// one transaction over the order insert, the stock reservations, and
// (for checkout) the cart line removal; any failure rolls all of it
// back. Events are published after commit, best-effort.
type Service struct {
	pool      db.Pool
	orders    Repository
	carts     cart.Repository
	stock     inventory.Repository
	catalog   CatalogClient
	identity  IdentityClient
	publisher EventPublisher
	logger    *zap.Logger
}

func NewService(
	pool db.Pool,
	orders Repository,
	carts cart.Repository,
	stock inventory.Repository,
	catalogClient CatalogClient,
	identityClient IdentityClient,
	publisher EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		pool:      pool,
		orders:    orders,
		carts:     carts,
		stock:     stock,
		catalog:   catalogClient,
		identity:  identityClient,
		publisher: publisher,
		logger:    logger,
	}
}

type BuyNowInput struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	StoreID   string `json:"storeId"`
	Address   string `json:"address"`
}

func (s *Service) BuyNow(ctx context.Context, in BuyNowInput) (*Order, error) {
	if in.UserID == "" || in.ProductID == "" || in.StoreID == "" || in.Address == "" {
		return nil, apperr.New(apperr.KindValidation, "userId, productId, storeId and address are required")
	}
	if in.Quantity <= 0 {
		return nil, apperr.New(apperr.KindValidation, "quantity must be positive")
	}

	product, err := s.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product.StoreID != "" && product.StoreID != in.StoreID {
		return nil, apperr.New(apperr.KindValidation, "product %s does not belong to store %s", in.ProductID, in.StoreID)
	}

	o := &Order{
		ID:      uuid.NewString(),
		UserID:  in.UserID,
		StoreID: in.StoreID,
		Address: in.Address,
		Items: []Item{
			{ProductID: in.ProductID, Quantity: in.Quantity, Price: product.Price},
		},
		TotalAmount: product.Price * float64(in.Quantity),
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	o.UpdatedAt = o.CreatedAt

	err = s.withTx(ctx, func(tx db.Tx) error {
		lines := []inventory.Line{{ProductID: in.ProductID, Quantity: in.Quantity}}
		if err := s.stock.ReserveTx(ctx, tx, lines); err != nil {
			return s.nameShortStock(err, map[string]string{in.ProductID: product.Name})
		}
		return s.orders.CreateTx(ctx, tx, o)
	})
	if err != nil {
		return nil, err
	}

	s.publishCreated(ctx, o)
	return o, nil
}

type CheckoutInput struct {
	UserID  string `json:"userId"`
	StoreID string `json:"storeId"`
	Address string `json:"address"`
}

func (s *Service) CheckoutCart(ctx context.Context, in CheckoutInput) (*Order, error) {
	if in.UserID == "" || in.StoreID == "" || in.Address == "" {
		return nil, apperr.New(apperr.KindValidation, "userId, storeId and address are required")
	}

	c, err := s.carts.Get(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if c == nil || len(c.Items) == 0 {
		return nil, apperr.New(apperr.KindEmptyCart, "cart is empty")
	}

	matched := c.ItemsForStore(in.StoreID)
	if len(matched) == 0 {
		return nil, apperr.New(apperr.KindNoItemsForStore, "no products from store %s in cart", in.StoreID)
	}

	// Resolve order-time prices and names from the catalog; the cart
	// snapshot is only a selection, the order snapshots its own prices.
	names := make(map[string]string, len(matched))
	total := 0.0
	items := make([]Item, 0, len(matched))
	lines := make([]inventory.Line, 0, len(matched))
	productIDs := make([]string, 0, len(matched))
	for _, it := range matched {
		product, err := s.catalog.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		names[it.ProductID] = product.Name

		total += product.Price * float64(it.Quantity)
		items = append(items, Item{ProductID: it.ProductID, Quantity: it.Quantity, Price: product.Price})
		lines = append(lines, inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity})
		productIDs = append(productIDs, it.ProductID)
	}

	o := &Order{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		StoreID:     in.StoreID,
		Address:     in.Address,
		Items:       items,
		TotalAmount: total,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	o.UpdatedAt = o.CreatedAt

	err = s.withTx(ctx, func(tx db.Tx) error {
		if err := s.stock.ReserveTx(ctx, tx, lines); err != nil {
			return s.nameShortStock(err, names)
		}
		if err := s.orders.CreateTx(ctx, tx, o); err != nil {
			return err
		}
		return s.carts.RemoveStoreItemsTx(ctx, tx, in.UserID, productIDs)
	})
	if err != nil {
		return nil, err
	}

	s.publishCreated(ctx, o)
	return o, nil
}

// nameShortStock rewrites an insufficient-stock failure with the product
// name, matching what shoppers see in the cart.
func (s *Service) nameShortStock(err error, names map[string]string) error {
	var short *inventory.ShortStockError
	if errors.As(err, &short) {
		name := names[short.ProductID]
		if name == "" {
			name = short.ProductID
		}
		return apperr.Wrap(apperr.KindInsufficientStock, short, "not enough stock for %s", name)
	}
	return err
}

func (s *Service) Cancel(ctx context.Context, orderID, userID string) (*Order, error) {
	if orderID == "" || userID == "" {
		return nil, apperr.New(apperr.KindValidation, "orderId and userId are required")
	}

	var o *Order
	err := s.withTx(ctx, func(tx db.Tx) error {
		var err error
		o, err = s.orders.GetByIDForUpdateTx(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if o.UserID != userID {
			return apperr.New(apperr.KindForbidden, "you can only cancel your own orders")
		}
		if !o.Status.Cancellable() {
			return apperr.New(apperr.KindInvalidTransition, "order cannot be cancelled in status %s", o.Status)
		}

		lines := make([]inventory.Line, 0, len(o.Items))
		for _, it := range o.Items {
			lines = append(lines, inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		if err := s.stock.RestockTx(ctx, tx, lines); err != nil {
			return err
		}

		return s.orders.UpdateStatusTx(ctx, tx, orderID, StatusCancelled)
	})
	if err != nil {
		return nil, err
	}

	o.Status = StatusCancelled
	s.publishCancelled(ctx, o)
	return o, nil
}

func (s *Service) UpdateStatus(ctx context.Context, orderID, newStatus string) (*Order, error) {
	if orderID == "" {
		return nil, apperr.New(apperr.KindValidation, "orderId is required")
	}
	st, err := ParseStatus(newStatus)
	if err != nil {
		return nil, err
	}

	var o *Order
	err = s.withTx(ctx, func(tx db.Tx) error {
		var err error
		o, err = s.orders.GetByIDForUpdateTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(st) {
			return apperr.New(apperr.KindInvalidTransition, "cannot move order from %s to %s", o.Status, st)
		}
		return s.orders.UpdateStatusTx(ctx, tx, orderID, st)
	})
	if err != nil {
		return nil, err
	}

	o.Status = st
	return o, nil
}

func (s *Service) Track(ctx context.Context, orderID string) (*Detail, error) {
	if orderID == "" {
		return nil, apperr.New(apperr.KindValidation, "orderId is required")
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	detail := &Detail{Order: *o, User: s.userSummary(ctx, o.UserID)}
	for _, it := range o.Items {
		d := ItemDetail{Item: it}
		if product, err := s.catalog.GetProduct(ctx, it.ProductID); err == nil {
			d.Name = product.Name
		} else {
			s.logger.Warn("resolve order product", zap.String("productId", it.ProductID), zap.Error(err))
		}
		detail.Products = append(detail.Products, d)
	}

	return detail, nil
}

// History returns a user's orders newest first. A user with no orders
// gets an empty list, not an error.
func (s *Service) History(ctx context.Context, userID string) ([]Order, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindValidation, "userId is required")
	}
	return s.orders.ListByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]AdminEntry, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	users := map[string]UserSummary{}
	stores := map[string]StoreSummary{}

	entries := make([]AdminEntry, 0, len(orders))
	for _, o := range orders {
		user, ok := users[o.UserID]
		if !ok {
			user = s.userSummary(ctx, o.UserID)
			users[o.UserID] = user
		}

		store, ok := stores[o.StoreID]
		if !ok {
			store = StoreSummary{ID: o.StoreID}
			if st, err := s.catalog.GetStore(ctx, o.StoreID); err == nil {
				store.Name = st.Name
				store.Address = st.Address
			} else {
				s.logger.Warn("resolve store", zap.String("storeId", o.StoreID), zap.Error(err))
			}
			stores[o.StoreID] = store
		}

		entries = append(entries, AdminEntry{Order: o, User: user, Store: store})
	}

	return entries, nil
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	return s.orders.Dashboard(ctx)
}

func (s *Service) userSummary(ctx context.Context, userID string) UserSummary {
	summary := UserSummary{ID: userID}
	if u, err := s.identity.GetUser(ctx, userID); err == nil {
		summary.Name = u.Name
		summary.Email = u.Email
	} else {
		s.logger.Warn("resolve user", zap.String("userId", userID), zap.Error(err))
	}
	return summary
}

func (s *Service) withTx(ctx context.Context, fn func(tx db.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "commit transaction")
	}
	return nil
}

func (s *Service) publishCreated(ctx context.Context, o *Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderCreated(ctx, o); err != nil {
		s.logger.Warn("publish order created", zap.String("orderId", o.ID), zap.Error(err))
	}
}

func (s *Service) publishCancelled(ctx context.Context, o *Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderCancelled(ctx, o); err != nil {
		s.logger.Warn("publish order cancelled", zap.String("orderId", o.ID), zap.Error(err))
	}
}
