package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowcare/storefront/internal/platform/httpx"
)

type stubImages struct {
	saved []string
	err   error
}

func (s *stubImages) Save(field string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	path := "/uploads/" + field + "-new.png"
	s.saved = append(s.saved, path)
	return path, nil
}

type stubCleaner struct {
	paths []string
}

func (s *stubCleaner) Cleanup(_ context.Context, path string) error {
	s.paths = append(s.paths, path)
	return nil
}

type stubRecorder struct {
	calls []string
}

func (s *stubRecorder) ObserveCatalogQuery(access, outcome string) {
	s.calls = append(s.calls, access+":"+outcome)
}

// headerGuard admits requests carrying X-Admin: yes.
func headerGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin") != "yes" {
			httpx.RespondError(w, httpx.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type handlerFixture struct {
	router   http.Handler
	store    *MemoryStore
	images   *stubImages
	cleaner  *stubCleaner
	recorder *stubRecorder
}

func newHandlerFixture(t *testing.T, store ReadWriter, seed ...Product) *handlerFixture {
	t.Helper()
	f := &handlerFixture{images: &stubImages{}, cleaner: &stubCleaner{}, recorder: &stubRecorder{}}
	if store == nil {
		f.store = NewMemoryStore(seed...)
		store = f.store
	}
	h := NewHandler(HandlerParams{
		Engine:     NewEngine(store),
		Admin:      NewAdminService(store),
		Images:     f.images,
		Cleaner:    f.cleaner,
		Metrics:    f.recorder,
		AdminGuard: headerGuard,
	})
	r := chi.NewRouter()
	r.Route("/products", h.MountRoutes)
	r.Route("/admin/products", h.MountAdminRoutes)
	f.router = r
	return f
}

func (f *handlerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func multipartBody(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withImage {
		fw, err := mw.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = fw.Write([]byte("\x89PNG\r\n\x1a\n"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestListProductsEndpoint(t *testing.T) {
	f := newHandlerFixture(t, nil, seedCatalog(15)...)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/products?page=2&limit=12", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body ProductPage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Products, 3)
	assert.Equal(t, Pagination{CurrentPage: 2, TotalPages: 2, TotalProducts: 15, HasPrev: true}, body.Pagination)
	assert.Equal(t, []string{"public:ok"}, f.recorder.calls)
}

func TestListProductsEndpointEmptyPageIsArray(t *testing.T) {
	f := newHandlerFixture(t, nil)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/products", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"products":[]`)
}

func TestListProductsEndpointRejectsBadPage(t *testing.T) {
	f := newHandlerFixture(t, nil)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/products?page=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	assert.Equal(t, []string{"public:invalid"}, f.recorder.calls)
}

func TestListProductsEndpointStorageFailure(t *testing.T) {
	f := newHandlerFixture(t, failingStore{})

	rr := f.do(httptest.NewRequest(http.MethodGet, "/products", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "5432")
	assert.Equal(t, []string{"public:error"}, f.recorder.calls)
}

func TestFilterOptionsEndpoint(t *testing.T) {
	f := newHandlerFixture(t, nil, newProduct(0, "A", withBrand("Luma"), withPrice(8)))

	rr := f.do(httptest.NewRequest(http.MethodGet, "/products/filters/options", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body FilterOptions
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []string{"Luma"}, body.Brands)
	assert.Equal(t, PriceRange{MinPrice: 8, MaxPrice: 8}, body.PriceRange)
}

func TestShowProductEndpoint(t *testing.T) {
	visible := newProduct(0, "Visible")
	hidden := newProduct(1, "Hidden", withStatus(StatusInactive))
	f := newHandlerFixture(t, nil, visible, hidden)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/products/"+visible.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"Visible"`)

	rr = f.do(httptest.NewRequest(http.MethodGet, "/products/"+hidden.ID, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminRoutesRequireGuard(t *testing.T) {
	f := newHandlerFixture(t, nil)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/admin/products", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAdminListIncludesInactive(t *testing.T) {
	f := newHandlerFixture(t, nil, newProduct(0, "A"), newProduct(1, "B", withStatus(StatusInactive)))

	req := httptest.NewRequest(http.MethodGet, "/admin/products", nil)
	req.Header.Set("X-Admin", "yes")
	rr := f.do(req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body []Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []string{"B", "A"}, names(body))
	assert.Equal(t, []string{"admin:ok"}, f.recorder.calls)
}

func TestCreateProductEndpoint(t *testing.T) {
	f := newHandlerFixture(t, nil)
	body, contentType := multipartBody(t, map[string]string{
		"name":          "Herbal Shampoo",
		"price":         "12.50",
		"category":      "Haircare",
		"brand":         "Luma",
		"stockQuantity": "4",
		"featured":      "true",
	}, true)

	req := httptest.NewRequest(http.MethodPost, "/admin/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Admin", "yes")
	rr := f.do(req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp productResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Product added successfully", resp.Message)
	assert.Equal(t, "/uploads/image-new.png", resp.Product.Image)
	assert.Equal(t, 4, resp.Product.StockQuantity)
	assert.True(t, resp.Product.Featured)
	assert.Empty(t, f.cleaner.paths)
}

func TestCreateProductEndpointValidationCleansImage(t *testing.T) {
	f := newHandlerFixture(t, nil)
	body, contentType := multipartBody(t, map[string]string{"name": "No price", "category": "c", "brand": "b"}, true)

	req := httptest.NewRequest(http.MethodPost, "/admin/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Admin", "yes")
	rr := f.do(req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Price is required")
	assert.Equal(t, []string{"/uploads/image-new.png"}, f.cleaner.paths)
}

func TestCreateProductEndpointRejectsBadNumber(t *testing.T) {
	f := newHandlerFixture(t, nil)
	form := "name=x&category=c&brand=b&price=twelve"

	req := httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Admin", "yes")
	rr := f.do(req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "price must be a number")
}

func TestCreateProductEndpointImageRejected(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.images.err = errors.Join(httpx.ErrValidation, errors.New("unsupported image type"))
	body, contentType := multipartBody(t, map[string]string{"name": "x", "price": "1", "category": "c", "brand": "b"}, true)

	req := httptest.NewRequest(http.MethodPost, "/admin/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Admin", "yes")
	rr := f.do(req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, f.store.products)
}

func TestUpdateProductEndpointSchedulesOldImageCleanup(t *testing.T) {
	existing := newProduct(0, "Old", withImage("/uploads/image-old.png"))
	f := newHandlerFixture(t, nil, existing)
	body, contentType := multipartBody(t, map[string]string{"name": "New", "price": "3", "category": "c", "brand": "b"}, true)

	req := httptest.NewRequest(http.MethodPut, "/admin/products/"+existing.ID, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Admin", "yes")
	rr := f.do(req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Contains(t, rr.Body.String(), "Product updated successfully")
	assert.Equal(t, []string{"/uploads/image-old.png"}, f.cleaner.paths)
}

func TestUpdateProductEndpointWithoutImageKeepsFile(t *testing.T) {
	existing := newProduct(0, "Old", withImage("/uploads/image-old.png"))
	f := newHandlerFixture(t, nil, existing)
	body, contentType := multipartBody(t, map[string]string{"name": "New", "price": "3", "category": "c", "brand": "b"}, false)

	req := httptest.NewRequest(http.MethodPut, "/admin/products/"+existing.ID, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Admin", "yes")
	rr := f.do(req)
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Contains(t, rr.Body.String(), `"image":"/uploads/image-old.png"`)
	assert.Empty(t, f.cleaner.paths)
}

func TestUpdateProductEndpointEmptyOriginalPriceClears(t *testing.T) {
	existing := newProduct(0, "Old")
	existing.OriginalPrice = floatPtr(20)
	f := newHandlerFixture(t, nil, existing)
	body, contentType := multipartBody(t, map[string]string{"name": "New", "price": "3", "category": "c", "brand": "b", "originalPrice": ""}, false)

	req := httptest.NewRequest(http.MethodPut, "/admin/products/"+existing.ID, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Admin", "yes")
	rr := f.do(req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "originalPrice")
}

func TestCreateProductEndpointRejectsHugePrice(t *testing.T) {
	f := newHandlerFixture(t, nil)
	body, contentType := multipartBody(t, map[string]string{"name": "Gold", "price": "1e12", "category": "c", "brand": "b"}, false)

	req := httptest.NewRequest(http.MethodPost, "/admin/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Admin", "yes")
	assert.Equal(t, http.StatusBadRequest, f.do(req).Code)
}

func TestUpdateProductEndpointNotFound(t *testing.T) {
	f := newHandlerFixture(t, nil)
	body, contentType := multipartBody(t, map[string]string{"name": "New", "price": "3", "category": "c", "brand": "b"}, false)

	req := httptest.NewRequest(http.MethodPut, "/admin/products/"+newProduct(0, "ghost").ID, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Admin", "yes")
	assert.Equal(t, http.StatusNotFound, f.do(req).Code)
}

func TestDeleteProductEndpoint(t *testing.T) {
	existing := newProduct(0, "Doomed", withImage("/uploads/image-doomed.png"))
	f := newHandlerFixture(t, nil, existing)

	req := httptest.NewRequest(http.MethodDelete, "/admin/products/"+existing.ID, nil)
	req.Header.Set("X-Admin", "yes")
	rr := f.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Product deleted successfully"}`, rr.Body.String())
	assert.Equal(t, []string{"/uploads/image-doomed.png"}, f.cleaner.paths)

	req = httptest.NewRequest(http.MethodDelete, "/admin/products/"+existing.ID, nil)
	req.Header.Set("X-Admin", "yes")
	assert.Equal(t, http.StatusNotFound, f.do(req).Code)
}
