package catalog

import "github.com/glowcare/storefront/internal/platform/httpx"

// Catalog sentinels match the httpx class they belong to, so handlers can hand
// any catalog error to httpx.RespondError.
var (
	// ErrInvalidQuery reports malformed pagination or filter input.
	ErrInvalidQuery = httpx.NewError("invalid query", httpx.ErrValidation)
	// ErrInvalidProduct reports admin input that fails validation.
	ErrInvalidProduct = httpx.NewError("invalid product", httpx.ErrValidation)
	// ErrNotFound reports a product lookup with no match.
	ErrNotFound = httpx.NewError("product not found", httpx.ErrNotFound)
	// ErrStorageUnavailable wraps every failure of the underlying store.
	ErrStorageUnavailable = httpx.NewError("catalog storage unavailable", httpx.ErrUnavailable)
)
