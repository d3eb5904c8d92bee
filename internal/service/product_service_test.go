package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
)

func TestProductCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.products.Create(ctx, ProductInput{
		Name: " Headphones ", SKU: " HP-1 ", Price: decimal.RequireFromString("79.50"), Quantity: 4, Brand: "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "Headphones", p.Name)
	assert.Equal(t, "HP-1", p.SKU)
	assert.Equal(t, entity.ProductActive, p.Status)
	assert.Equal(t, fixedNow, p.CreatedAt)

	tests := []struct {
		name string
		in   ProductInput
		want error
	}{
		{"duplicate sku", ProductInput{Name: "Other", SKU: "HP-1", Price: decimal.NewFromInt(1)}, entity.ErrDuplicateSKU},
		{"negative price", ProductInput{Name: "X", SKU: "X-1", Price: decimal.NewFromInt(-1)}, entity.ErrInvalidPrice},
		{"three decimals", ProductInput{Name: "X", SKU: "X-1", Price: decimal.RequireFromString("1.005")}, entity.ErrInvalidPrice},
		{"negative quantity", ProductInput{Name: "X", SKU: "X-1", Price: decimal.NewFromInt(1), Quantity: -1}, entity.ErrInvalidInput},
		{"missing sku", ProductInput{Name: "X", Price: decimal.NewFromInt(1)}, entity.ErrInvalidInput},
		{"bad status", ProductInput{Name: "X", SKU: "X-1", Price: decimal.NewFromInt(1), Status: "ARCHIVED"}, entity.ErrInvalidStatus},
		{"unknown category", ProductInput{Name: "X", SKU: "X-1", Price: decimal.NewFromInt(1), CategoryIDs: []string{"nope"}}, entity.ErrCategoryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.products.Create(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	n, err := f.products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProductUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cat := mustCategory(t, f.categories, "Audio", nil)
	p := f.product(t, "HP-1", "10.00", 5)
	f.product(t, "HP-2", "10.00", 5)

	updated, err := f.products.Update(ctx, p.ID, ProductInput{
		Name: "Headphones Pro", SKU: "HP-1", Price: decimal.RequireFromString("12.00"), Quantity: 8,
		CategoryIDs: []string{cat.ID, cat.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Headphones Pro", updated.Name)
	assert.Equal(t, 8, updated.Quantity)
	assert.Equal(t, []string{cat.ID}, updated.CategoryIDs)
	assert.Equal(t, entity.ProductActive, updated.Status)

	_, err = f.products.Update(ctx, p.ID, ProductInput{Name: "X", SKU: "HP-2", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, entity.ErrDuplicateSKU)

	_, err = f.products.Update(ctx, "missing", ProductInput{Name: "X", SKU: "X", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, entity.ErrProductNotFound)
}

func TestProductSoftDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "SKU-1", "10.00", 5)

	require.NoError(t, f.products.Delete(ctx, p.ID))

	got, err := f.products.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProductInactive, got.Status)

	_, err = f.products.GetActive(ctx, p.ID)
	assert.ErrorIs(t, err, entity.ErrProductNotFound)

	bySKU, err := f.products.GetBySKU(ctx, " SKU-1 ")
	require.NoError(t, err)
	assert.Equal(t, p.ID, bySKU.ID)

	assert.ErrorIs(t, f.products.Delete(ctx, "missing"), entity.ErrProductNotFound)
}

func TestProductImages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "SKU-1", "10.00", 5)

	got, err := f.products.SetMainImage(ctx, p.ID, "https://cdn.example.com/main.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/main.jpg", got.MainImageURL)

	_, err = f.products.SetMainImage(ctx, p.ID, " ")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	got, err = f.products.AddImages(ctx, p.ID, []string{"a.jpg", " ", "b.jpg", "c.jpg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, got.AdditionalImages)

	got, removed, err := f.products.RemoveImage(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "b.jpg", removed)
	assert.Equal(t, []string{"a.jpg", "c.jpg"}, got.AdditionalImages)

	_, _, err = f.products.RemoveImage(ctx, p.ID, 2)
	assert.ErrorIs(t, err, entity.ErrInvalidImageIndex)
	_, _, err = f.products.RemoveImage(ctx, p.ID, -1)
	assert.ErrorIs(t, err, entity.ErrInvalidImageIndex)

	got, err = f.products.ClearMainImage(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.MainImageURL)

	stored, err := f.products.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "c.jpg"}, stored.AdditionalImages)
}

func TestProductList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	audio := mustCategory(t, f.categories, "Audio", nil)

	mk := func(name, sku, price string, qty int, brand string, cats ...string) *entity.Product {
		p, err := f.products.Create(ctx, ProductInput{
			Name: name, SKU: sku, Price: decimal.RequireFromString(price), Quantity: qty, Brand: brand, CategoryIDs: cats,
		})
		require.NoError(t, err)
		return p
	}
	mk("Wireless Headphones", "A-1", "99.00", 3, "Acme", audio.ID)
	mk("Wired Headphones", "A-2", "19.00", 0, "Acme", audio.ID)
	mk("Laptop", "L-1", "999.00", 2, "Bolt")
	gone := mk("Old Speaker", "S-1", "49.00", 1, "Acme", audio.ID)
	require.NoError(t, f.products.Delete(ctx, gone.ID))

	lo := decimal.RequireFromString("20.00")
	hi := decimal.RequireFromString("500.00")
	tests := []struct {
		name   string
		filter repository.ProductFilter
		want   []string
	}{
		{"active only", repository.ProductFilter{Status: entity.ProductActive}, []string{"A-1", "A-2", "L-1"}},
		{"category", repository.ProductFilter{CategoryID: audio.ID}, []string{"S-1", "A-2", "A-1"}},
		{"search", repository.ProductFilter{Search: "headphones"}, []string{"A-2", "A-1"}},
		{"brand", repository.ProductFilter{Brand: "bolt"}, []string{"L-1"}},
		{"price range", repository.ProductFilter{MinPrice: &lo, MaxPrice: &hi}, []string{"S-1", "A-1"}},
		{"in stock", repository.ProductFilter{InStock: true, Status: entity.ProductActive}, []string{"A-1", "L-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.products.List(ctx, tt.filter, entity.PageRequest{})
			require.NoError(t, err)
			var skus []string
			for _, p := range page.Items {
				skus = append(skus, p.SKU)
			}
			assert.ElementsMatch(t, tt.want, skus)
			assert.Equal(t, len(tt.want), page.Total)
		})
	}

	_, err := f.products.List(ctx, repository.ProductFilter{MinPrice: &hi, MaxPrice: &lo}, entity.PageRequest{})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestStockMovementsUnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.products.StockMovements(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrProductNotFound)
}
