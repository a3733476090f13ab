package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/model"
)

//go:embed default.yaml
var defaultCatalog []byte

var _ Provider = (*Static)(nil)

type Static struct {
	categories []model.Category
	products   []model.Product
}

type staticFile struct {
	Categories []model.Category `yaml:"categories"`
	Products   []model.Product  `yaml:"products"`
}

// NewStatic parses a YAML catalog.
func NewStatic(data []byte) (*Static, error) {
	f := staticFile{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("catalog decode: %w", err)
	}

	known := make(map[string]bool, len(f.Categories))
	for _, c := range f.Categories {
		if c.Code == "" {
			return nil, fmt.Errorf("%w: category without code", apperr.ErrInvalidInput)
		}
		known[c.Code] = true
	}

	codes := make(map[string]bool, len(f.Products))
	for _, p := range f.Products {
		switch {
		case p.Code == "":
			return nil, fmt.Errorf("%w: product without code", apperr.ErrInvalidInput)
		case codes[p.Code]:
			return nil, fmt.Errorf("%w: duplicate product %s", apperr.ErrInvalidInput, p.Code)
		case !known[p.CategoryCode]:
			return nil, fmt.Errorf("%w: product %s has unknown category %q", apperr.ErrInvalidInput, p.Code, p.CategoryCode)
		case !p.Type.Valid():
			return nil, fmt.Errorf("%w: product %s has unknown type %q", apperr.ErrInvalidInput, p.Code, p.Type)
		case p.Price <= 0:
			return nil, fmt.Errorf("%w: product %s has no price", apperr.ErrInvalidInput, p.Code)
		}
		codes[p.Code] = true
	}

	return &Static{categories: f.Categories, products: f.Products}, nil
}

// Default is the embedded catalog.
func Default() *Static {
	s, err := NewStatic(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return s
}

// LoadStatic reads path, or returns the embedded catalog for an empty path.
func LoadStatic(path string) (*Static, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog read: %w", err)
	}

	return NewStatic(data)
}

func (s *Static) Categories(context.Context) ([]model.Category, error) {
	res := make([]model.Category, len(s.categories))
	copy(res, s.categories)
	return res, nil
}

func (s *Static) Products(_ context.Context, category string, typ model.ProductType) ([]model.Product, error) {
	return filterProducts(s.products, category, typ), nil
}

func (s *Static) Product(_ context.Context, code string) (*model.Product, error) {
	for _, p := range s.products {
		if p.Code == code && p.IsActive {
			p := p
			return &p, nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", code, apperr.ErrNotFound)
}
