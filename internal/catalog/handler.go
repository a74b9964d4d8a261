package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/glowcare/storefront/internal/platform/httpx"
)

// ImageSaver stores an uploaded product image and returns its public path.
type ImageSaver interface {
	Save(field string, r io.Reader) (string, error)
}

// ImageCleaner schedules removal of an image that is no longer referenced.
type ImageCleaner interface {
	Cleanup(ctx context.Context, path string) error
}

// QueryRecorder counts catalog reads by access level and outcome.
type QueryRecorder interface {
	ObserveCatalogQuery(access, outcome string)
}

// HandlerParams collects the handler dependencies.
type HandlerParams struct {
	Logger  *slog.Logger
	Engine  *Engine
	Admin   *AdminService
	Images  ImageSaver
	Cleaner ImageCleaner
	Metrics QueryRecorder
	// AdminGuard rejects requests without an admin principal.
	AdminGuard func(http.Handler) http.Handler
	// MaxBodyBytes bounds multipart admin requests.
	MaxBodyBytes int64
}

// Handler serves the public catalog and the admin product endpoints.
type Handler struct {
	logger       *slog.Logger
	engine       *Engine
	admin        *AdminService
	images       ImageSaver
	cleaner      ImageCleaner
	metrics      QueryRecorder
	guard        func(http.Handler) http.Handler
	maxBodyBytes int64
}

const defaultMaxBodyBytes = 6 << 20

// NewHandler builds Handler instance.
func NewHandler(p HandlerParams) *Handler {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	guard := p.AdminGuard
	if guard == nil {
		guard = func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				httpx.RespondError(w, httpx.ErrForbidden)
			})
		}
	}
	maxBody := p.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Handler{
		logger:       logger,
		engine:       p.Engine,
		admin:        p.Admin,
		images:       p.Images,
		cleaner:      p.Cleaner,
		metrics:      p.Metrics,
		guard:        guard,
		maxBodyBytes: maxBody,
	}
}

// MountRoutes registers the public catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listProducts)
	r.Get("/filters/options", h.filterOptions)
	r.Get("/{id}", h.showProduct)
}

// MountAdminRoutes registers the admin product routes behind the admin guard.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard)
		r.Get("/", h.listAllProducts)
		r.Post("/", h.createProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		h.observe(AccessPublic, err)
		httpx.RespondError(w, err)
		return
	}
	page, err := h.engine.ListProducts(r.Context(), q)
	h.observe(AccessPublic, err)
	if err != nil {
		h.fail(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) filterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.engine.GetFilterOptions(r.Context())
	if err != nil {
		h.fail(w, "filter options", err)
		return
	}
	httpx.JSON(w, http.StatusOK, opts)
}

func (h *Handler) showProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.GetProduct(r.Context(), chi.URLParam(r, "id"), AccessPublic)
	if err != nil {
		h.fail(w, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) listAllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.engine.ListAllProducts(r.Context())
	h.observe(AccessAdmin, err)
	if err != nil {
		h.fail(w, "list all products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

type productResponse struct {
	Message string  `json:"message"`
	Product Product `json:"product"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	in, err := h.readProductForm(w, r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.admin.CreateProduct(r.Context(), in)
	if err != nil {
		h.discard(r.Context(), in.Image)
		h.fail(w, "create product", err)
		return
	}
	h.logger.Info("product created", slog.String("id", p.ID))
	httpx.JSON(w, http.StatusCreated, productResponse{Message: "Product added successfully", Product: p})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	in, err := h.readProductForm(w, r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, previous, err := h.admin.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.discard(r.Context(), in.Image)
		h.fail(w, "update product", err)
		return
	}
	if in.Image != "" && previous != in.Image {
		h.discard(r.Context(), previous)
	}
	httpx.JSON(w, http.StatusOK, productResponse{Message: "Product updated successfully", Product: p})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	removed, err := h.admin.DeleteProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "delete product", err)
		return
	}
	h.discard(r.Context(), removed.Image)
	httpx.JSON(w, http.StatusOK, httpx.Message{Message: "Product deleted successfully"})
}

// readProductForm decodes a multipart or urlencoded product form and stores
// the optional image file.
func (h *Handler) readProductForm(w http.ResponseWriter, r *http.Request) (ProductInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := r.ParseMultipartForm(h.maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return ProductInput{}, fmt.Errorf("%w: request body too large", ErrInvalidProduct)
		}
		return ProductInput{}, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	in, err := productInputFromForm(r)
	if err != nil {
		return ProductInput{}, err
	}
	if h.images == nil {
		return in, nil
	}
	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return in, nil
	}
	if err != nil {
		return ProductInput{}, fmt.Errorf("%w: image: %v", ErrInvalidProduct, err)
	}
	defer file.Close()
	path, err := h.images.Save("image", file)
	if err != nil {
		return ProductInput{}, err
	}
	in.Image = path
	return in, nil
}

func productInputFromForm(r *http.Request) (ProductInput, error) {
	form := formReader{r: r}
	in := ProductInput{
		Name:          r.FormValue("name"),
		Description:   r.FormValue("description"),
		Category:      r.FormValue("category"),
		Brand:         r.FormValue("brand"),
		Color:         r.FormValue("color"),
		Material:      r.FormValue("material"),
		Size:          r.FormValue("size"),
		Status:        Status(r.FormValue("status")),
		Price:         form.float("price"),
		OriginalPrice: form.float("originalPrice"),
		Discount:      form.float("discount"),
		StockQuantity: form.int("stockQuantity"),
		InStock:       form.bool("inStock"),
		Featured:      form.bool("featured"),
	}
	in.ClearOriginalPrice = in.OriginalPrice == nil && form.present("originalPrice")
	if len(form.errs) > 0 {
		return ProductInput{}, fmt.Errorf("%w: %s", ErrInvalidProduct, strings.Join(form.errs, ", "))
	}
	return in, nil
}

// formReader parses optional numeric form values, collecting errors.
type formReader struct {
	r    *http.Request
	errs []string
}

func (f *formReader) value(key string) string {
	return strings.TrimSpace(f.r.FormValue(key))
}

// present reports whether key was sent, even with an empty value.
func (f *formReader) present(key string) bool {
	_, ok := f.r.Form[key]
	return ok
}

func (f *formReader) float(key string) *float64 {
	raw := f.value(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		f.errs = append(f.errs, key+" must be a number")
		return nil
	}
	return &v
}

func (f *formReader) int(key string) *int {
	raw := f.value(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		f.errs = append(f.errs, key+" must be an integer")
		return nil
	}
	return &v
}

func (f *formReader) bool(key string) *bool {
	raw := f.value(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		f.errs = append(f.errs, key+" must be true or false")
		return nil
	}
	return &v
}

func (h *Handler) discard(ctx context.Context, path string) {
	if path == "" || h.cleaner == nil {
		return
	}
	if err := h.cleaner.Cleanup(ctx, path); err != nil {
		h.logger.Warn("image cleanup", slog.String("path", path), slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrStorageUnavailable) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) observe(access AccessLevel, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidQuery):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	h.metrics.ObserveCatalogQuery(access.String(), outcome)
}
