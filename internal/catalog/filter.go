package catalog

import (
	"sort"
	"strings"
)

// SortOrder is a listing sort option.
type SortOrder int

const (
	SortNewest SortOrder = iota
	SortPriceAsc
	SortPriceDesc
	SortName
)

var sortLabels = map[SortOrder]string{
	SortNewest:    "Newest",
	SortPriceAsc:  "Price: low to high",
	SortPriceDesc: "Price: high to low",
	SortName:      "Name",
}

func (s SortOrder) String() string {
	return sortLabels[s]
}

// Next cycles to the following sort option.
func (s SortOrder) Next() SortOrder {
	return (s + 1) % SortOrder(len(sortLabels))
}

// ListFilter is the client-side listing filter.
type ListFilter struct {
	Search   string
	Category string
	Sort     SortOrder
}

// Apply filters and sorts products without modifying the input slice.
func (f ListFilter) Apply(products []Product) []Product {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		out = append(out, p)
	}

	switch f.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case SortName:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}

// CategoryCycle orders the categories the listing filter steps through:
// names from the categories table that some product uses, in table order,
// then any other product category in first-seen order.
func CategoryCycle(known []string, products []Product) []string {
	used := Categories(products)
	inUse := make(map[string]bool, len(used))
	for _, c := range used {
		inUse[strings.ToLower(c)] = true
	}

	var out []string
	seen := make(map[string]bool, len(used))
	for _, name := range known {
		key := strings.ToLower(name)
		if inUse[key] && !seen[key] {
			seen[key] = true
			out = append(out, name)
		}
	}
	for _, c := range used {
		if !seen[strings.ToLower(c)] {
			out = append(out, c)
		}
	}
	return out
}

// Categories returns the distinct categories of products in first-seen order.
func Categories(products []Product) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range products {
		key := strings.ToLower(p.Category)
		if p.Category == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p.Category)
	}
	return out
}
