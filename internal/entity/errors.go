package entity

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("forbidden")
	ErrCircularReference = errors.New("circular category reference")
	ErrHasChildren       = errors.New("category has subcategories")
	ErrHasProducts       = errors.New("category has products")
)

var (
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrParentNotFound   = fmt.Errorf("parent category %w", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	ErrDuplicateName        = fmt.Errorf("%w: category name already exists", ErrConflict)
	ErrDuplicateSKU         = fmt.Errorf("%w: sku already exists", ErrConflict)
	ErrDuplicateOrderNumber = fmt.Errorf("%w: order number already exists", ErrConflict)

	ErrInvalidQuantity      = fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	ErrInvalidPrice         = fmt.Errorf("%w: price must be non-negative with at most 2 decimals", ErrInvalidInput)
	ErrInvalidStatus        = fmt.Errorf("%w: unknown status", ErrInvalidInput)
	ErrInvalidPaymentMethod = fmt.Errorf("%w: unknown payment method", ErrInvalidInput)
	ErrEmptyOrder           = fmt.Errorf("%w: order has no items", ErrInvalidInput)
	ErrInvalidImageIndex    = fmt.Errorf("%w: image index out of range", ErrInvalidInput)
)
