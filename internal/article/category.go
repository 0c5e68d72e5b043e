package article

import "strings"

// Category is the topical bucket assigned by the summarizer.
type Category string

const (
	CategoryEquipment  Category = "equipment"
	CategoryTechnology Category = "technology"
	CategoryAutomotive Category = "automotive"
	CategoryRegulation Category = "regulation"
	CategoryMarket     Category = "market"
	CategoryCompany    Category = "company"
	CategoryOther      Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryEquipment,
	CategoryTechnology,
	CategoryAutomotive,
	CategoryRegulation,
	CategoryMarket,
	CategoryCompany,
	CategoryOther,
}

var categoryLabels = map[Category]string{
	CategoryEquipment:  "塗装設備",
	CategoryTechnology: "塗装技術",
	CategoryAutomotive: "自動車塗装",
	CategoryRegulation: "環境規制",
	CategoryMarket:     "市場動向",
	CategoryCompany:    "企業ニュース",
	CategoryOther:      "その他",
}

// Label returns the Japanese display label.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return categoryLabels[CategoryOther]
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// NormalizeCategory maps s onto a known category; anything unrecognised
// becomes CategoryOther.
func NormalizeCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// CategoryCount is the number of articles in one category.
type CategoryCount struct {
	Category Category
	Label    string
	Count    int
}

// CountCategories returns one entry per known category, in display order,
// including categories with no articles.
func CountCategories(articles []*Article) []CategoryCount {
	counts := make(map[Category]int, len(Categories))
	for _, a := range articles {
		counts[a.Category]++
	}
	out := make([]CategoryCount, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, CategoryCount{Category: c, Label: c.Label(), Count: counts[c]})
	}
	return out
}
