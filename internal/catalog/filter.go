package catalog

import (
	"sort"
	"strings"
)

// Filter restricts products by category equality and a case-insensitive
// substring match over name, brand and description. With no category and
// no query it returns nothing: the UI shows a placeholder until the user
// narrows the view.
func Filter(products []Product, category, query string) []Product {
	query = strings.ToLower(strings.TrimSpace(query))
	if category == "" && query == "" {
		return nil
	}

	var filtered []Product
	for _, p := range products {
		if category != "" && p.Category != category {
			continue
		}
		if query != "" {
			hay := strings.ToLower(p.Name + " " + p.Brand + " " + p.Description)
			if !strings.Contains(hay, query) {
				continue
			}
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// Categories returns the sorted distinct categories present in products.
func Categories(products []Product) []string {
	seen := make(map[string]bool)
	var categories []string
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories
}
