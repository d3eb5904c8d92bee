package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/service"
)

// Fixed ids so issued tokens survive a reseed.
const (
	demoUserID  = "00000000-0000-4000-8000-000000000001"
	demoAdminID = "00000000-0000-4000-8000-000000000002"
)

type seedCategory struct {
	name, parent, description string
}

type seedProduct struct {
	sku, name, description, price, image, brand string
	stock                                       int
	categories                                  []string
}

var seedCategories = []seedCategory{
	{name: "Electronics", description: "Devices and peripherals"},
	{name: "Audio", parent: "Electronics", description: "Headphones and speakers"},
	{name: "Computer Accessories", parent: "Electronics", description: "Keyboards, monitors and more"},
	{name: "Furniture", description: "Office and home furniture"},
	{name: "Home", description: "Lighting and decor"},
	{name: "Accessories", description: "Bags and everyday carry"},
}

var seedProducts = []seedProduct{
	{sku: "AUD-HP-001", name: "Wireless Noise-Cancelling Headphones", description: "Premium over-ear headphones with active noise cancellation and 30-hour battery life.", price: "349.99", image: "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=400", brand: "Sonance", stock: 50, categories: []string{"Electronics", "Audio"}},
	{sku: "CMP-KB-002", name: "Mechanical Keyboard RGB", description: "Cherry MX switches with per-key RGB lighting and aluminum frame.", price: "179.99", image: "https://images.unsplash.com/photo-1618384887929-16ec33fab9ef?w=400", brand: "Keyforge", stock: 120, categories: []string{"Computer Accessories"}},
	{sku: "CMP-MN-003", name: "Ultrawide Curved Monitor 34\"", description: "UWQHD 3440x1440 144Hz IPS panel with USB-C connectivity.", price: "699.99", image: "https://images.unsplash.com/photo-1527443224154-c4a3942d3acf?w=400", brand: "Viewline", stock: 30, categories: []string{"Computer Accessories"}},
	{sku: "FUR-CH-004", name: "Ergonomic Office Chair", description: "Adjustable lumbar support, breathable mesh, and 4D armrests.", price: "549.99", image: "https://images.unsplash.com/photo-1592078615290-033ee584e267?w=400", brand: "Postura", stock: 25, categories: []string{"Furniture"}},
	{sku: "HOM-LP-005", name: "Smart LED Desk Lamp", description: "Adjustable color temperature, brightness levels, and USB charging port.", price: "89.99", image: "https://images.unsplash.com/photo-1507473885765-e6ed057ab6fe?w=400", brand: "Lumo", stock: 200, categories: []string{"Home"}},
	{sku: "ACC-BP-006", name: "Premium Laptop Backpack", description: "Water-resistant 17\" laptop compartment with anti-theft design.", price: "129.99", image: "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=400", brand: "Trailpack", stock: 80, categories: []string{"Accessories"}},
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load demo categories, products and users into an empty catalog",
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig(c)
			if err != nil {
				return err
			}
			a, err := newApp(c.Context, cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close()
			return seed(c.Context, a)
		},
	}
}

// seed fills the catalog through the services so every validation and
// event applies. It does nothing when products already exist.
func seed(ctx context.Context, a *app) error {
	if err := seedUsers(ctx, a); err != nil {
		return err
	}

	count, err := a.products.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		slog.Info("Catalog already seeded", "products", count)
		return nil
	}

	ids := make(map[string]string, len(seedCategories))
	for _, sc := range seedCategories {
		in := service.CategoryInput{Name: sc.name, Description: sc.description}
		if sc.parent != "" {
			parent := ids[sc.parent]
			in.ParentID = &parent
		}
		cat, err := a.categories.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", sc.name, err)
		}
		ids[sc.name] = cat.ID
	}

	for _, sp := range seedProducts {
		categoryIDs := make([]string, 0, len(sp.categories))
		for _, name := range sp.categories {
			categoryIDs = append(categoryIDs, ids[name])
		}
		p, err := a.products.Create(ctx, service.ProductInput{
			Name:        sp.name,
			Description: sp.description,
			Price:       decimal.RequireFromString(sp.price),
			SKU:         sp.sku,
			Quantity:    sp.stock,
			Brand:       sp.brand,
			CategoryIDs: categoryIDs,
		})
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", sp.sku, err)
		}
		if _, err := a.products.SetMainImage(ctx, p.ID, sp.image); err != nil {
			return fmt.Errorf("failed to seed image for %s: %w", sp.sku, err)
		}
	}

	slog.Info("Seeded catalog", "categories", len(seedCategories), "products", len(seedProducts))
	return nil
}

func seedUsers(ctx context.Context, a *app) error {
	now := time.Now().UTC()
	users := []entity.User{
		{ID: demoUserID, Email: "demo@storefront.local", FirstName: "Demo", LastName: "Shopper", Address: "1 Market St", Role: entity.RoleUser, CreatedAt: now},
		{ID: demoAdminID, Email: "admin@storefront.local", FirstName: "Store", LastName: "Admin", Role: entity.RoleAdmin, CreatedAt: now},
	}
	for i := range users {
		u := &users[i]
		_, err := a.store.Users().FindByID(ctx, u.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, entity.ErrNotFound) {
			return err
		}
		if err := a.store.Users().Create(ctx, u); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
		slog.Info("Seeded user", "id", u.ID, "role", u.Role)
	}
	return nil
}
