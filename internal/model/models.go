package model

import "fmt"

// TableMapping pairs a relational source table with the document
// collection it is imported into.
type TableMapping struct {
	Source string `json:"source"` // e.g., tp1_ind500_orders
	Dest   string `json:"dest"`   // e.g., orders
}

// Catalog is the ordered list of tables moved by the harness. The order
// is the export/import processing order.
type Catalog []TableMapping

// DefaultCatalog returns the tp1_ind500 table catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		{Source: "tp1_ind500_orders", Dest: "orders"},
		{Source: "tp1_ind500_customers", Dest: "customers"},
		{Source: "tp1_ind500_products", Dest: "products"},
		{Source: "tp1_ind500_product_category_name_translation", Dest: "product_category_name_translation"},
		{Source: "tp1_ind500_order_items", Dest: "order_items"},
		{Source: "tp1_ind500_order_payments", Dest: "order_payments"},
		{Source: "tp1_ind500_order_reviews", Dest: "order_reviews"},
		{Source: "tp1_ind500_sellers", Dest: "sellers"},
		{Source: "tp1_ind500_geolocation", Dest: "geolocation"},
		{Source: "tp1_ind500_leads_qualified", Dest: "leads_qualified"},
		{Source: "tp1_ind500_leads_closed", Dest: "leads_closed"},
	}
}

// Validate checks that source and destination names are set and unique.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("catalog is empty")
	}
	sources := make(map[string]bool, len(c))
	dests := make(map[string]bool, len(c))
	for i, m := range c {
		if m.Source == "" || m.Dest == "" {
			return fmt.Errorf("catalog entry %d: source and dest are required", i)
		}
		if sources[m.Source] {
			return fmt.Errorf("catalog entry %d: duplicate source table %q", i, m.Source)
		}
		if dests[m.Dest] {
			return fmt.Errorf("catalog entry %d: duplicate destination collection %q", i, m.Dest)
		}
		sources[m.Source] = true
		dests[m.Dest] = true
	}
	return nil
}

// Collections returns the destination collection names in catalog order.
func (c Catalog) Collections() []string {
	names := make([]string, len(c))
	for i, m := range c {
		names[i] = m.Dest
	}
	return names
}

// ModeledCollections are the collections built by the transformation
// scripts. The report counts them and lists their indexes.
var ModeledCollections = []string{
	"tp2_orders",
	"tp2_products",
	"tp2_sellers_geo",
	"tp2_leads",
}
