package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Product is one premium catalog entry. A lifetime product never expires
// once purchased; everything else is a renewing subscription.
type Product struct {
	ID       string `json:"id"`
	Lifetime bool   `json:"lifetime"`
}

type productsFile struct {
	Products []Product `json:"products"`
}

// Catalog is the fixed set of premium product identifiers. It is built
// once at startup and never mutated afterwards.
type Catalog struct {
	products map[string]Product
	lifetime string
}

func New(products []Product) (*Catalog, error) {
	c := &Catalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry with empty product id")
		}
		if p.Lifetime {
			if c.lifetime != "" {
				return nil, fmt.Errorf("catalog has more than one lifetime product: %s and %s", c.lifetime, p.ID)
			}
			c.lifetime = p.ID
		}
		c.products[p.ID] = p
	}
	return c, nil
}

// Default returns the Braindumpster premium catalog.
func Default() *Catalog {
	c, _ := New([]Product{
		{ID: "brain_dumpster_monthly_premium"},
		{ID: "brain_dumpster_yearly_premium"},
		{ID: "brain_dumpster_lifetime_premium", Lifetime: true},
	})
	return c
}

// LoadFromFile reads a product catalog from a JSON file. An empty path
// falls back to the compiled-in default catalog.
func LoadFromFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read products config: %w", err)
	}

	var file productsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse products config: %w", err)
	}
	if len(file.Products) == 0 {
		return nil, fmt.Errorf("products config %s lists no products", path)
	}

	return New(file.Products)
}

// Contains reports whether productID is a known premium product.
func (c *Catalog) Contains(productID string) bool {
	_, ok := c.products[productID]
	return ok
}

// IsLifetime reports whether productID is the designated non-expiring product.
func (c *Catalog) IsLifetime(productID string) bool {
	return productID != "" && productID == c.lifetime
}

func (c *Catalog) Len() int {
	return len(c.products)
}
