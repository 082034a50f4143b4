package seed

import (
	"context"
	"fmt"

	"storecheckout/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type productSeed struct {
	Key        string
	SKU        string
	Name       string
	PriceCents int64
	// Stock < 0 means the item does not track stock.
	Stock       int
	Backorders  bool
	Purchasable bool
	Parent      string
}

var products = []productSeed{
	{Key: "demo-shirt", SKU: "SKU-DEMO-TSHIRT", Name: "Demo T-Shirt", PriceCents: 1999, Stock: 10, Purchasable: true},
	{Key: "demo-shirt-red", SKU: "SKU-DEMO-TSHIRT-RED", Name: "Demo T-Shirt Red", PriceCents: 1999, Stock: -1, Purchasable: true, Parent: "demo-shirt"},
	{Key: "demo-shirt-blue", SKU: "SKU-DEMO-TSHIRT-BLUE", Name: "Demo T-Shirt Blue", PriceCents: 1999, Stock: -1, Purchasable: true, Parent: "demo-shirt"},
	{Key: "demo-mug", SKU: "SKU-DEMO-MUG", Name: "Demo Mug", PriceCents: 1299, Stock: 1, Purchasable: true},
	{Key: "demo-poster", SKU: "SKU-DEMO-POSTER", Name: "Demo Poster", PriceCents: 800, Stock: 0, Backorders: true, Purchasable: true},
	{Key: "demo-ebook", SKU: "SKU-DEMO-EBOOK", Name: "Demo E-Book", PriceCents: 0, Stock: -1, Purchasable: true},
	{Key: "demo-retired", SKU: "SKU-DEMO-RETIRED", Name: "Retired Item", PriceCents: 500, Stock: 3, Purchasable: false},
}

// Apply inserts demo catalog items for manual testing. It is idempotent because
// products are upserted by key.
func Apply(ctx context.Context, repo ProductWriter, currency string) error {
	if currency == "" {
		currency = "USD"
	}
	ids := make(map[string]string, len(products))
	for _, s := range products {
		p := domain.Product{
			Key:               s.Key,
			SKU:               s.SKU,
			Name:              s.Name,
			PriceCents:        s.PriceCents,
			Currency:          currency,
			Purchasable:       s.Purchasable,
			ManageStock:       s.Stock >= 0,
			BackordersAllowed: s.Backorders,
		}
		if s.Stock > 0 {
			p.StockQuantity = s.Stock
		}
		if s.Parent != "" {
			parentID, ok := ids[s.Parent]
			if !ok {
				return fmt.Errorf("seed %s: parent %s not seeded yet", s.Key, s.Parent)
			}
			p.ManagedBy = parentID
		}
		saved, err := repo.Upsert(ctx, p)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", s.Key, err)
		}
		ids[s.Key] = saved.ID
	}
	return nil
}
