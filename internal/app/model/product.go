package model

type ProductType string

const (
	ProductTypePrepaid  ProductType = "PRABAYAR"
	ProductTypePostpaid ProductType = "PASCABAYAR"
)

func (t ProductType) Valid() bool {
	return t == ProductTypePrepaid || t == ProductTypePostpaid
}

type Category struct {
	Code        string `json:"code" yaml:"code"`
	Name        string `json:"name" yaml:"name"`
	Icon        string `json:"icon" yaml:"icon"`
	Description string `json:"description,omitempty" yaml:"description"`
}

type Product struct {
	Code         string      `json:"code" yaml:"code"`
	Name         string      `json:"name" yaml:"name"`
	CategoryCode string      `json:"categoryCode" yaml:"category"`
	Operator     string      `json:"operator,omitempty" yaml:"operator"`
	Price        int64       `json:"price" yaml:"price"`
	Description  string      `json:"description,omitempty" yaml:"description"`
	Type         ProductType `json:"type" yaml:"type"`
	IsActive     bool        `json:"isActive" yaml:"active"`
}
