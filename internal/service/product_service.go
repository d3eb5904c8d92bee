package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
)

// ProductInput carries the editable fields of a product. An empty Status
// keeps the current one on update and means ACTIVE on create.
type ProductInput struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Price       decimal.Decimal      `json:"price"`
	SKU         string               `json:"sku"`
	Quantity    int                  `json:"quantity"`
	Status      entity.ProductStatus `json:"status"`
	Brand       string               `json:"brand"`
	CategoryIDs []string             `json:"category_ids"`
}

// ProductService manages the catalog and is the attachment point for
// product images stored elsewhere.
type ProductService struct {
	store  repository.Store
	ledger *InventoryLedger
	now    func() time.Time
}

func NewProductService(store repository.Store, ledger *InventoryLedger) *ProductService {
	return &ProductService{store: store, ledger: ledger, now: func() time.Time { return time.Now().UTC() }}
}

func (s *ProductService) validate(in *ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	if in.Name == "" || in.SKU == "" {
		return fmt.Errorf("%w: name and sku are required", entity.ErrInvalidInput)
	}
	if in.Price.IsNegative() || !in.Price.Equal(in.Price.Round(2)) {
		return entity.ErrInvalidPrice
	}
	if in.Quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", entity.ErrInvalidInput)
	}
	if in.Status != "" {
		status, err := entity.ParseProductStatus(string(in.Status))
		if err != nil {
			return err
		}
		in.Status = status
	}
	slices.Sort(in.CategoryIDs)
	in.CategoryIDs = slices.Compact(in.CategoryIDs)
	return nil
}

func checkCategories(ctx context.Context, tx repository.Store, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := tx.Categories().FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return entity.ErrCategoryNotFound
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*entity.Product, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	slog.Info("Service: Creating product", "sku", in.SKU)

	now := s.now()
	p := &entity.Product{
		ID:               uuid.NewString(),
		Name:             in.Name,
		Description:      in.Description,
		Price:            in.Price.Round(2),
		SKU:              in.SKU,
		Quantity:         in.Quantity,
		Status:           cmpStatus(in.Status, entity.ProductActive),
		Brand:            in.Brand,
		AdditionalImages: []string{},
		CategoryIDs:      in.CategoryIDs,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		exists, err := tx.Products().ExistsBySKU(ctx, p.SKU)
		if err != nil {
			return err
		}
		if exists {
			return entity.ErrDuplicateSKU
		}
		if err := checkCategories(ctx, tx, p.CategoryIDs); err != nil {
			return err
		}
		return tx.Products().Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id string, in ProductInput) (*entity.Product, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	slog.Info("Service: Updating product", "product_id", id)

	var p *entity.Product
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		p, err = tx.Products().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.SKU != p.SKU {
			exists, err := tx.Products().ExistsBySKU(ctx, in.SKU)
			if err != nil {
				return err
			}
			if exists {
				return entity.ErrDuplicateSKU
			}
		}
		if err := checkCategories(ctx, tx, in.CategoryIDs); err != nil {
			return err
		}

		p.Name = in.Name
		p.Description = in.Description
		p.Price = in.Price.Round(2)
		p.SKU = in.SKU
		p.Quantity = in.Quantity
		p.Status = cmpStatus(in.Status, p.Status)
		p.Brand = in.Brand
		p.CategoryIDs = in.CategoryIDs
		p.UpdatedAt = s.now()
		return tx.Products().Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Delete deactivates the product. Rows are kept for historical orders.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	slog.Info("Service: Deactivating product", "product_id", id)
	_, err := s.mutate(ctx, id, func(p *entity.Product) error {
		p.Status = entity.ProductInactive
		return nil
	})
	return err
}

// Get returns a product in any status.
func (s *ProductService) Get(ctx context.Context, id string) (*entity.Product, error) {
	return s.store.Products().FindByID(ctx, id)
}

// GetActive hides inactive products.
func (s *ProductService) GetActive(ctx context.Context, id string) (*entity.Product, error) {
	p, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, entity.ErrProductNotFound
	}
	return p, nil
}

func (s *ProductService) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	return s.store.Products().FindBySKU(ctx, strings.TrimSpace(sku))
}

func (s *ProductService) List(ctx context.Context, filter repository.ProductFilter, page entity.PageRequest) (entity.Page[entity.Product], error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return entity.Page[entity.Product]{}, fmt.Errorf("%w: min price above max price", entity.ErrInvalidInput)
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.store.Products().List(ctx, filter, page.Normalize())
}

// Count reports how many products exist in any status.
func (s *ProductService) Count(ctx context.Context) (int, error) {
	return s.store.Products().Count(ctx)
}

func (s *ProductService) SetMainImage(ctx context.Context, id, url string) (*entity.Product, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: image url is required", entity.ErrInvalidInput)
	}
	return s.mutate(ctx, id, func(p *entity.Product) error {
		p.MainImageURL = url
		return nil
	})
}

func (s *ProductService) ClearMainImage(ctx context.Context, id string) (*entity.Product, error) {
	return s.mutate(ctx, id, func(p *entity.Product) error {
		p.MainImageURL = ""
		return nil
	})
}

// AddImages replaces the additional image list.
func (s *ProductService) AddImages(ctx context.Context, id string, urls []string) (*entity.Product, error) {
	clean := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}
	return s.mutate(ctx, id, func(p *entity.Product) error {
		p.AdditionalImages = clean
		return nil
	})
}

// RemoveImage drops the additional image at index and returns the URL that
// was removed so the caller can delete the file.
func (s *ProductService) RemoveImage(ctx context.Context, id string, index int) (*entity.Product, string, error) {
	var removed string
	p, err := s.mutate(ctx, id, func(p *entity.Product) error {
		if index < 0 || index >= len(p.AdditionalImages) {
			return entity.ErrInvalidImageIndex
		}
		removed = p.AdditionalImages[index]
		p.AdditionalImages = slices.Delete(p.AdditionalImages, index, index+1)
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return p, removed, nil
}

// StockMovements returns the reservation and release history of a product.
func (s *ProductService) StockMovements(ctx context.Context, id string) (*entity.StockLedger, error) {
	return s.ledger.Movements(ctx, id)
}

// mutate applies fn to the current product inside a transaction and saves it.
func (s *ProductService) mutate(ctx context.Context, id string, fn func(p *entity.Product) error) (*entity.Product, error) {
	var p *entity.Product
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		p, err = tx.Products().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		p.UpdatedAt = s.now()
		return tx.Products().Update(ctx, p)
	})
	if err != nil {
		if !errors.Is(err, entity.ErrNotFound) && !errors.Is(err, entity.ErrInvalidInput) {
			slog.Error("Service: Product update failed", "product_id", id, "err", err)
		}
		return nil, err
	}
	return p, nil
}

func cmpStatus(s, fallback entity.ProductStatus) entity.ProductStatus {
	if s == "" {
		return fallback
	}
	return s
}
