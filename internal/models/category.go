package models

import (
	"fmt"
	"strings"
)

// Category is one of the three fixed expense buckets of a budget.
type Category string

const (
	CategoryLeisure    Category = "leisure"
	CategoryEssentials Category = "essentials"
	CategorySavings    Category = "savings"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryLeisure, CategoryEssentials, CategorySavings}

// ParseCategory accepts any letter case and surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("category must be one of leisure, essentials or savings, got %q", s)
	}
	return c, nil
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryLeisure, CategoryEssentials, CategorySavings:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }
