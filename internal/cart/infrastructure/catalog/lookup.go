// Package catalog adapts the catalog service to the cart's ProductLookup port.
package catalog

import (
	"context"
	"errors"

	catalogapp "github.com/dmehra2102/storefront/internal/catalog/application"
	catalogdom "github.com/dmehra2102/storefront/internal/catalog/domain"
)

type Lookup struct {
	products *catalogapp.Service
}

func NewLookup(products *catalogapp.Service) *Lookup {
	return &Lookup{products: products}
}

func (l *Lookup) Exists(ctx context.Context, productID int64) (bool, error) {
	_, err := l.products.GetProduct(ctx, productID)
	if errors.Is(err, catalogdom.ErrProductNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
