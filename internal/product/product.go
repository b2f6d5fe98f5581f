package product

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Product identifies a traded grain or oilseed product.
type Product string

const (
	Corn     Product = "corn"
	Wheat    Product = "wheat"
	Soybeans Product = "soybeans"
	SoyMeal  Product = "soymeal"
	SoyOil   Product = "soyoil"
	Barley   Product = "barley"
)

var (
	ErrUnknownProduct = errors.New("unknown product")
	ErrNoContractSize = errors.New("product has no futures contract size")
)

// Spec holds the static conversion constants of a product: the tonnage of one
// futures contract and the factor converting a quoted price unit (cents per
// bushel, or cents per pound for oils) into USD per tonne.
//
// Products quoted directly in USD per tonne carry a factor of 1 and, when no
// exchange contract exists, a zero contract size. Such products only support
// tonnage-denominated hedging.
type Spec struct {
	ContractTonnes decimal.Decimal
	PriceFactor    decimal.Decimal
}

// ContractHedging reports whether contract-denominated hedge input is
// supported for this product.
func (s Spec) ContractHedging() bool {
	return s.ContractTonnes.IsPositive()
}

// Canonical table. Contract sizes follow CME lot definitions (5,000 bu for
// grains, 100 short tons for meal, 60,000 lb for oil). The soy meal factor is
// fixed at 0.9072; see DESIGN.md for the discrepancy this resolves.
var specs = map[Product]Spec{
	Corn: {
		ContractTonnes: decimal.RequireFromString("127.0059"),
		PriceFactor:    decimal.RequireFromString("0.3937"),
	},
	Wheat: {
		ContractTonnes: decimal.RequireFromString("136.0777"),
		PriceFactor:    decimal.RequireFromString("0.3674"),
	},
	Soybeans: {
		ContractTonnes: decimal.RequireFromString("136.0777"),
		PriceFactor:    decimal.RequireFromString("0.3674"),
	},
	SoyMeal: {
		ContractTonnes: decimal.RequireFromString("90.7185"),
		PriceFactor:    decimal.RequireFromString("0.9072"),
	},
	SoyOil: {
		ContractTonnes: decimal.RequireFromString("27.2155"),
		PriceFactor:    decimal.RequireFromString("22.0462"),
	},
	Barley: {
		PriceFactor: decimal.NewFromInt(1),
	},
}

// Lookup returns the conversion spec of a product.
func Lookup(p Product) (Spec, error) {
	spec, ok := specs[Product(strings.ToLower(strings.TrimSpace(string(p))))]
	if !ok {
		return Spec{}, ErrUnknownProduct
	}
	return spec, nil
}

// Factor returns the price-unit conversion factor of a product.
func Factor(p Product) (decimal.Decimal, error) {
	spec, err := Lookup(p)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return spec.PriceFactor, nil
}

// ContractSize returns the tonnage of one futures contract, or
// ErrNoContractSize for tonnage-only products.
func ContractSize(p Product) (decimal.Decimal, error) {
	spec, err := Lookup(p)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !spec.ContractHedging() {
		return decimal.Decimal{}, ErrNoContractSize
	}
	return spec.ContractTonnes, nil
}

// All lists the supported products in a stable order.
func All() []Product {
	return []Product{Corn, Wheat, Soybeans, SoyMeal, SoyOil, Barley}
}
