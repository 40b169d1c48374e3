package models

import "github.com/shopspring/decimal"

// MenuItem is a drink/food/bottle offered by a club.
type MenuItem struct {
	ID           string           `json:"id"`
	ClubID       string           `json:"clubId"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	CategoryName string           `json:"categoryName"`
	ImageURL     string           `json:"imageUrl"`
	Price        decimal.Decimal  `json:"price"`
	DynamicPrice *decimal.Decimal `json:"dynamicPrice,omitempty"`
	HasVariants  bool             `json:"hasVariants"`
	Variants     []MenuVariant    `json:"variants,omitempty"`
	IsActive     bool             `json:"isActive"`
}

// MenuVariant is a size/presentation of a menu item with its own price.
type MenuVariant struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Price        decimal.Decimal  `json:"price"`
	DynamicPrice *decimal.Decimal `json:"dynamicPrice,omitempty"`
}

// Variant finds a variant by id.
func (m MenuItem) Variant(id string) (MenuVariant, bool) {
	for _, v := range m.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return MenuVariant{}, false
}

// MenuCategory groups menu items for display.
type MenuCategory struct {
	Name  string
	Items []MenuItem
}

// GroupMenu keeps the backend order of categories.
func GroupMenu(items []MenuItem) []MenuCategory {
	var groups []MenuCategory
	index := make(map[string]int)
	for _, item := range items {
		name := item.CategoryName
		if name == "" {
			name = "Other"
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, MenuCategory{Name: name})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}
