// Package catalog lists the categories and products customers can buy.
package catalog

import (
	"context"

	"ppobmart/internal/app/model"
)

// Provider is a read-only product lookup.
type Provider interface {
	// Categories returns all categories
	Categories(ctx context.Context) ([]model.Category, error)
	// Products returns active products of a category, of any type when typ is empty
	Products(ctx context.Context, category string, typ model.ProductType) ([]model.Product, error)
	// Product returns an active product or apperr.ErrNotFound
	Product(ctx context.Context, code string) (*model.Product, error)
}

func filterProducts(all []model.Product, category string, typ model.ProductType) []model.Product {
	res := make([]model.Product, 0)
	for _, p := range all {
		if !p.IsActive {
			continue
		}
		if category != "" && p.CategoryCode != category {
			continue
		}
		if typ != "" && p.Type != typ {
			continue
		}
		res = append(res, p)
	}
	return res
}
