package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andreasstove999/marketplace-backend/internal/apperr"
	"github.com/andreasstove999/marketplace-backend/internal/catalog"
)

// ProductGetter is the slice of the catalog client the cart needs.
type ProductGetter interface {
	GetProduct(ctx context.Context, productID string) (catalog.Product, error)
}

// Service implements the cart operations: merge-on-add, item removal,
// and catalog-enriched reads. Prices and store ownership are snapshotted
// from the catalog when an item is added.
type Service struct {
	repo    Repository
	catalog ProductGetter
	logger  *zap.Logger
}

func NewService(repo Repository, catalog ProductGetter, logger *zap.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, logger: logger}
}

func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if userID == "" || productID == "" {
		return nil, apperr.New(apperr.KindValidation, "userId and productId are required")
	}
	if quantity <= 0 {
		return nil, apperr.New(apperr.KindValidation, "quantity must be positive")
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = &Cart{ID: uuid.NewString(), UserID: userID}
	}

	// Merge-on-add: one line item per product, quantities accumulate.
	merged := false
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			c.Items[i].Price = product.Price
			merged = true
			break
		}
	}
	if !merged {
		c.Items = append(c.Items, Item{
			ProductID: productID,
			StoreID:   product.StoreID,
			Quantity:  quantity,
			Price:     product.Price,
		})
	}

	c.recalcTotal()
	c.UpdatedAt = time.Now()

	if err := s.repo.Upsert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	if userID == "" || productID == "" {
		return nil, apperr.New(apperr.KindValidation, "userId and productId are required")
	}

	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.New(apperr.KindNotFound, "cart for user %s not found", userID)
	}

	// Removing an item that is not in the cart is a no-op, not an error.
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	c.Items = kept

	c.recalcTotal()
	c.UpdatedAt = time.Now()

	if err := s.repo.Upsert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*Detail, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindValidation, "userId is required")
	}

	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.New(apperr.KindNotFound, "cart for user %s not found", userID)
	}

	detail := &Detail{
		ID:        c.ID,
		UserID:    c.UserID,
		Total:     c.Total,
		UpdatedAt: c.UpdatedAt,
	}
	for _, it := range c.Items {
		d := DetailItem{Item: it, Subtotal: float64(it.Quantity) * it.Price}
		product, err := s.catalog.GetProduct(ctx, it.ProductID)
		if err != nil {
			// Enrichment is best-effort; the cart itself is still readable.
			s.logger.Warn("resolve cart product", zap.String("productId", it.ProductID), zap.Error(err))
		} else {
			d.Name = product.Name
		}
		detail.Items = append(detail.Items, d)
	}

	return detail, nil
}
