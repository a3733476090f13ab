package catalog

import (
	"context"
	"fmt"
	"strings"

	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/logger"
	"ppobmart/internal/app/model"
	"ppobmart/pkg/indotel"
)

var _ Provider = (*Remote)(nil)

// Source is the part of the provider client the remote catalog reads from.
type Source interface {
	Categories(ctx context.Context) ([]indotel.Category, error)
	Products(ctx context.Context, category string) ([]indotel.Product, error)
}

// Remote asks the provider for its catalog. With a fallback set, provider failures
// are answered from the fallback instead of being returned.
type Remote struct {
	src      Source
	fallback Provider
}

func NewRemote(src Source, fallback Provider) *Remote {
	return &Remote{src: src, fallback: fallback}
}

func (c *Remote) LoggerComponent() string {
	return "Catalog.Remote"
}

func (c *Remote) Categories(ctx context.Context) ([]model.Category, error) {
	cc, err := c.src.Categories(ctx)
	if err != nil {
		if c.fallback == nil {
			return nil, fmt.Errorf("remote categories: %w", err)
		}
		l := logger.Get(ctx, c)
		l.Warn().Err(err).Msg("Remote categories failed, using fallback")
		return c.fallback.Categories(ctx)
	}

	res := make([]model.Category, 0, len(cc))
	for _, v := range cc {
		res = append(res, model.Category{
			Code:        v.Code,
			Name:        v.Name,
			Icon:        v.Icon,
			Description: v.Description,
		})
	}
	return res, nil
}

func (c *Remote) Products(ctx context.Context, category string, typ model.ProductType) ([]model.Product, error) {
	pp, err := c.src.Products(ctx, category)
	if err != nil {
		if c.fallback == nil {
			return nil, fmt.Errorf("remote products: %w", err)
		}
		l := logger.Get(ctx, c)
		l.Warn().Err(err).Str("category", category).Msg("Remote products failed, using fallback")
		return c.fallback.Products(ctx, category, typ)
	}

	return filterProducts(convertProducts(pp, category), category, typ), nil
}

func (c *Remote) Product(ctx context.Context, code string) (*model.Product, error) {
	pp, err := c.src.Products(ctx, "")
	if err != nil {
		if c.fallback == nil {
			return nil, fmt.Errorf("remote products: %w", err)
		}
		l := logger.Get(ctx, c)
		l.Warn().Err(err).Str("product", code).Msg("Remote products failed, using fallback")
		return c.fallback.Product(ctx, code)
	}

	for _, p := range convertProducts(pp, "") {
		if p.Code == code {
			p := p
			return &p, nil
		}
	}

	return nil, fmt.Errorf("product %s: %w", code, apperr.ErrNotFound)
}

func convertProducts(pp []indotel.Product, category string) []model.Product {
	res := make([]model.Product, 0, len(pp))
	for _, v := range pp {
		typ := model.ProductType(strings.ToUpper(v.Type))
		if !typ.Valid() {
			typ = model.ProductTypePrepaid
		}
		cat := v.Category
		if cat == "" {
			cat = category
		}
		res = append(res, model.Product{
			Code:         v.Code,
			Name:         v.Name,
			CategoryCode: cat,
			Operator:     v.Operator,
			Price:        v.Price,
			Description:  v.Description,
			Type:         typ,
			IsActive:     v.Price > 0,
		})
	}
	return res
}
