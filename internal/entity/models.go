package entity

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus marks whether a product can be ordered.
type ProductStatus string

const (
	ProductActive   ProductStatus = "ACTIVE"
	ProductInactive ProductStatus = "INACTIVE"
)

// ParseProductStatus accepts a status name in any case.
func ParseProductStatus(s string) (ProductStatus, error) {
	switch st := ProductStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case ProductActive, ProductInactive:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// Product represents a sellable item in the catalog.
type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	SKU              string          `json:"sku"`
	Quantity         int             `json:"quantity"`
	Status           ProductStatus   `json:"status"`
	Brand            string          `json:"brand"`
	MainImageURL     string          `json:"main_image_url"`
	AdditionalImages []string        `json:"additional_images"`
	CategoryIDs      []string        `json:"category_ids"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsActive reports whether the product may appear on new orders.
func (p *Product) IsActive() bool {
	return p.Status == ProductActive
}

// InStock reports whether at least qty units are on hand.
func (p *Product) InStock(qty int) bool {
	return p.Quantity >= qty
}

// InCategory reports whether the product is assigned to categoryID.
func (p *Product) InCategory(categoryID string) bool {
	return slices.Contains(p.CategoryIDs, categoryID)
}

// Category is a node in the category forest. A nil ParentID marks a root.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ParentID    *string   `json:"parent_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryDetails is a category together with its direct children and the
// number of products assigned to it.
type CategoryDetails struct {
	Category
	Subcategories []Category `json:"subcategories"`
	ProductCount  int        `json:"product_count"`
}

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is a registered customer. Authentication lives outside this service;
// only the profile needed to place orders is stored.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
