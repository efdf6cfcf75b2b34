package application

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/storefront/internal/cart/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/identity"
)

type Service struct {
	log      *slog.Logger
	repo     CartRepository
	products ProductLookup
}

func NewService(log *slog.Logger, repo CartRepository, products ProductLookup) *Service {
	return &Service{log: log, repo: repo, products: products}
}

func (s *Service) GetOrCreate(ctx context.Context, owner identity.Identity) (domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return domain.Cart{}, apperr.Validation("%s", err)
	}
	return s.repo.GetOrCreate(ctx, owner)
}

func (s *Service) Find(ctx context.Context, owner identity.Identity) (domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return domain.Cart{}, apperr.Validation("%s", err)
	}
	return s.repo.Find(ctx, owner)
}

func (s *Service) AddItem(ctx context.Context, cartID string, productID int64, quantity int) (domain.Item, error) {
	if quantity < 1 {
		return domain.Item{}, domain.ErrInvalidQuantity
	}
	if quantity > domain.MaxQuantity {
		return domain.Item{}, domain.ErrQuantityTooLarge
	}
	ok, err := s.products.Exists(ctx, productID)
	if err != nil {
		return domain.Item{}, err
	}
	if !ok {
		return domain.Item{}, domain.ErrProductNotFound
	}

	item, err := s.repo.AddItem(ctx, cartID, productID, quantity)
	if err != nil {
		return domain.Item{}, err
	}
	s.log.Debug("cart item added", "cart_id", cartID, "product_id", productID, "quantity", item.Quantity)
	return item, nil
}

// UpdateItemQuantity overwrites the quantity of an item. A quantity of zero or
// less removes the item and reports removed.
func (s *Service) UpdateItemQuantity(ctx context.Context, cartID string, itemID int64, quantity int) (item domain.Item, removed bool, err error) {
	if quantity <= 0 {
		if err := s.repo.RemoveItem(ctx, cartID, itemID); err != nil {
			return domain.Item{}, false, err
		}
		return domain.Item{}, true, nil
	}
	if quantity > domain.MaxQuantity {
		return domain.Item{}, false, domain.ErrQuantityTooLarge
	}
	item, err = s.repo.SetQuantity(ctx, cartID, itemID, quantity)
	return item, false, err
}

func (s *Service) RemoveItem(ctx context.Context, cartID string, itemID int64) error {
	return s.repo.RemoveItem(ctx, cartID, itemID)
}

func (s *Service) Clear(ctx context.Context, cartID string) error {
	return s.repo.Clear(ctx, cartID)
}
