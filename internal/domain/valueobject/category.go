package valueobject

import (
	"fmt"
	"strings"
)

// Category is a transaction category from the fixed taxonomy.
type Category struct {
	value string
}

// The fixed category taxonomy.
var (
	CategoryIncome    = Category{"INCOME"}
	CategoryFood      = Category{"FOOD"}
	CategoryTransport = Category{"TRANSPORT"}
	CategoryHousing   = Category{"HOUSING"}
	CategoryHealth    = Category{"HEALTH"}
	CategoryLeisure   = Category{"LEISURE"}
	CategoryShopping  = Category{"SHOPPING"}
	CategoryBills     = Category{"BILLS"}
	CategoryDining    = Category{"DINING"}
	CategoryTransfer  = Category{"TRANSFER"}
	CategoryOther     = Category{"OTHER"}
)

var knownCategories = map[string]Category{
	"INCOME":    CategoryIncome,
	"FOOD":      CategoryFood,
	"TRANSPORT": CategoryTransport,
	"HOUSING":   CategoryHousing,
	"HEALTH":    CategoryHealth,
	"LEISURE":   CategoryLeisure,
	"SHOPPING":  CategoryShopping,
	"BILLS":     CategoryBills,
	"DINING":    CategoryDining,
	"TRANSFER":  CategoryTransfer,
	"OTHER":     CategoryOther,
}

// NewCategory validates and creates a Category from a string.
func NewCategory(s string) (Category, error) {
	c, ok := knownCategories[strings.ToUpper(s)]
	if !ok {
		return Category{}, fmt.Errorf("unknown transaction category %q", s)
	}
	return c, nil
}

// String returns the string representation of the category.
func (c Category) String() string {
	return c.value
}

// IsZero returns true if the category is empty.
func (c Category) IsZero() bool {
	return c.value == ""
}

// Equal returns true if two categories are equal.
func (c Category) Equal(other Category) bool {
	return c.value == other.value
}

// categoryRule pairs a category with the merchant keywords that select it.
// The table is ordered: the first category with a matching keyword wins.
type categoryRule struct {
	category Category
	keywords []string
}

var categoryRules = []categoryRule{
	{CategoryFood, []string{"carrefour", "leclerc", "auchan", "lidl", "intermarche", "monoprix", "picard"}},
	{CategoryTransport, []string{"sncf", "ratp", "uber", "bolt", "blablacar", "essence", "total", "shell"}},
	{CategoryHousing, []string{"loyer", "edf", "engie", "veolia", "eau", "electricite"}},
	{CategoryHealth, []string{"pharmacie", "medecin", "hopital", "mutuelle", "laboratoire"}},
	{CategoryLeisure, []string{"netflix", "spotify", "cinema", "amazon", "fnac", "steam"}},
	{CategoryDining, []string{"restaurant", "mcdo", "deliveroo", "uber eats"}},
}

// Categorize classifies a raw transaction description and counterparty name
// into the taxonomy using keyword matching. It is deterministic and total:
// unrecognized inputs yield CategoryOther.
func Categorize(description, counterparty string) Category {
	combined := strings.ToLower(description) + " " + strings.ToLower(counterparty)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(combined, keyword) {
				return rule.category
			}
		}
	}
	return CategoryOther
}
