package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product categories carried by the storefront.
const (
	CategoryGemstones      = "Gemstones"
	CategoryGoldsmithTools = "Goldsmith Tools"
	CategoryPlasticBags    = "Plastic bags"
	CategoryWeighingScales = "Weighing scales"
	CategoryMachines       = "Machines"
)

// Subcategories, valid only for Gemstones and Goldsmith Tools.
const (
	SubcategoryNatural   = "Natural"
	SubcategoryPlastic   = "Plastic"
	SubcategoryCrucible  = "Crucible"
	SubcategoryFile      = "File"
	SubcategorySoldering = "Soldering"
)

// Product represents a product in the catalog. Inactive products are hidden
// from public listing and rejected at checkout.
type Product struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	Image        string    `json:"image" db:"image"`
	Images       []string  `json:"images" db:"images"`
	Category     string    `json:"category" db:"category"`
	Subcategory  *string   `json:"subcategory" db:"subcategory"`
	Price        float64   `json:"price" db:"price"`
	CountInStock int       `json:"count_in_stock" db:"count_in_stock"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryGemstones, CategoryGoldsmithTools, CategoryPlasticBags,
		CategoryWeighingScales, CategoryMachines:
		return true
	}
	return false
}

// subcategoriesByCategory lists the allowed subcategories per category.
// Categories absent from the map carry no subcategory.
var subcategoriesByCategory = map[string][]string{
	CategoryGemstones:      {SubcategoryNatural, SubcategoryPlastic},
	CategoryGoldsmithTools: {SubcategoryCrucible, SubcategoryFile, SubcategorySoldering},
}

// NormalizeSubcategory validates sub against the rules for category and
// returns the value to store. Categories without subcategories normalize to
// nil; an unknown subcategory for Gemstones or Goldsmith Tools is rejected.
func NormalizeSubcategory(category string, sub *string) (*string, error) {
	allowed, ok := subcategoriesByCategory[category]
	if !ok {
		return nil, nil
	}
	if sub == nil || *sub == "" {
		return nil, nil
	}
	for _, a := range allowed {
		if *sub == a {
			return sub, nil
		}
	}
	return nil, &InvalidRequestError{Message: "invalid subcategory for " + category}
}
