package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/pricing"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/product"
)

// AddItemRequest holds the input for adding a product to a cart.
type AddItemRequest struct {
	ProductID string
	Quantity  int
	Size      string
	Color     string
}

// Service implements the cart operations. It reads catalog stock to
// validate quantities but never reserves it.
type Service struct {
	carts    Repository
	products product.Repository
	newID    func() string
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
		newID:    func() string { return uuid.New().String() },
	}
}

// Get returns the user's cart, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		if err := s.carts.Create(ctx, userID); err != nil {
			return nil, errors.Wrap(err, "create cart")
		}
		c, err = s.carts.Get(ctx, userID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	c.Recalculate()
	return c, nil
}

// AddItem adds quantity units of a product. A product already in the cart
// is merged into its existing line regardless of size and color, and the
// line takes the current catalog price.
func (s *Service) AddItem(ctx context.Context, userID string, req AddItemRequest) (*Cart, error) {
	if req.Quantity <= 0 || req.Quantity > MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}

	p, err := s.availableProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	line, exists := c.LineByProduct(req.ProductID)
	if !exists {
		line = Line{ID: s.newID(), ProductID: p.ID}
	}
	qty := line.Quantity + req.Quantity
	if qty > MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}
	if err := p.CheckStock(qty); err != nil {
		return nil, err
	}

	line.Quantity = qty
	line.UnitPrice = p.Price
	if req.Size != "" {
		line.Size = req.Size
	}
	if req.Color != "" {
		line.Color = req.Color
	}
	if err := s.carts.SaveLine(ctx, userID, line); err != nil {
		return nil, errors.Wrap(err, "save cart line")
	}
	return s.reload(ctx, userID)
}

// UpdateItem sets a line's quantity and re-captures the catalog price.
func (s *Service) UpdateItem(ctx context.Context, userID, lineID string, quantity int) (*Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return nil, ErrLineNotFound
		}
		return nil, errors.Wrap(err, "get cart")
	}
	line, ok := c.LineByID(lineID)
	if !ok {
		return nil, ErrLineNotFound
	}
	if quantity <= 0 || quantity > MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}

	p, err := s.availableProduct(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if err := p.CheckStock(quantity); err != nil {
		return nil, err
	}

	line.Quantity = quantity
	line.UnitPrice = p.Price
	if err := s.carts.SaveLine(ctx, userID, line); err != nil {
		return nil, errors.Wrap(err, "save cart line")
	}
	return s.reload(ctx, userID)
}

// RemoveItem deletes one line from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, lineID string) (*Cart, error) {
	if err := s.carts.DeleteLine(ctx, userID, lineID); err != nil {
		if errors.Is(err, ErrLineNotFound) {
			return nil, ErrLineNotFound
		}
		return nil, errors.Wrap(err, "delete cart line")
	}
	return s.reload(ctx, userID)
}

// Clear removes every line. The promo code stays applied.
func (s *Service) Clear(ctx context.Context, userID string) (*Cart, error) {
	if _, err := s.existing(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.carts.DeleteLines(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}
	return s.reload(ctx, userID)
}

// ApplyPromo attaches a promo code from the static table. An unknown code
// leaves the cart unchanged.
func (s *Service) ApplyPromo(ctx context.Context, userID, code string) (*Cart, error) {
	if _, err := pricing.Lookup(code); err != nil {
		return nil, err
	}
	if _, err := s.existing(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.carts.SetPromo(ctx, userID, pricing.NormalizeCode(code)); err != nil {
		return nil, errors.Wrap(err, "set promo code")
	}
	return s.reload(ctx, userID)
}

// RemovePromo clears the promo code and its discount.
func (s *Service) RemovePromo(ctx context.Context, userID string) (*Cart, error) {
	if _, err := s.existing(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.carts.SetPromo(ctx, userID, ""); err != nil {
		return nil, errors.Wrap(err, "clear promo code")
	}
	return s.reload(ctx, userID)
}

func (s *Service) availableProduct(ctx context.Context, id string) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, &ProductUnavailableError{ProductID: id, Missing: true}
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	if !p.IsActive {
		return nil, &ProductUnavailableError{ProductID: id}
	}
	return p, nil
}

func (s *Service) existing(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, errors.Wrap(err, "get cart")
	}
	return c, nil
}

func (s *Service) reload(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "reload cart")
	}
	c.Recalculate()
	return c, nil
}
