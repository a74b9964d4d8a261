package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glowcare/storefront/internal/platform/httpx"
)

// AvatarSaver stores an uploaded avatar and returns its public path.
type AvatarSaver interface {
	Save(field string, r io.Reader) (string, error)
}

// AvatarCleaner schedules removal of a replaced avatar.
type AvatarCleaner interface {
	Cleanup(ctx context.Context, path string) error
}

// HandlerParams collects the handler dependencies.
type HandlerParams struct {
	Logger  *slog.Logger
	Service *Service
	Avatars AvatarSaver
	Cleaner AvatarCleaner
	// CredentialLimiter wraps the signup and login routes.
	CredentialLimiter func(http.Handler) http.Handler
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	middleware Middleware
	avatars    AvatarSaver
	cleaner    AvatarCleaner
	limiter    func(http.Handler) http.Handler
}

var (
	errBadUserLogin  = httpx.NewError("invalid username or password", httpx.ErrUnauthorized)
	errBadAdminLogin = httpx.NewError("invalid email or password", httpx.ErrUnauthorized)
)

const (
	maxJSONBody   = 1 << 20
	maxAvatarBody = 6 << 20
)

// NewHandler constructs a Handler instance.
func NewHandler(p HandlerParams) *Handler {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := p.CredentialLimiter
	if limiter == nil {
		limiter = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		logger:     logger,
		service:    p.Service,
		middleware: NewMiddleware(p.Service, logger),
		avatars:    p.Avatars,
		cleaner:    p.Cleaner,
		limiter:    limiter,
	}
}

// Middleware exposes the route guards backed by the same service.
func (h *Handler) Middleware() Middleware {
	return h.middleware
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.limiter)
		r.Post("/signup", h.signUp)
		r.Post("/login", h.login)
		r.Post("/admin/register", h.registerAdmin)
		r.Post("/admin/login", h.adminLogin)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireUser)
		r.Get("/profile", h.showProfile)
		r.Put("/profile", h.updateProfile)
		r.Post("/auth/logout", h.logout)
	})
}

type accountView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type userLoginResponse struct {
	Token string      `json:"token"`
	User  accountView `json:"user"`
}

type adminLoginResponse struct {
	Token string      `json:"token"`
	Admin accountView `json:"admin"`
}

type profileView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Avatar   string `json:"avatar"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

func newProfileView(u User) profileView {
	return profileView{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
		Avatar:   u.Avatar,
		Address:  u.Address,
		Phone:    u.Phone,
	}
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var in SignUpInput
	if err := decodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := h.service.SignUp(r.Context(), in); err != nil {
		h.fail(w, "sign up", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, httpx.Message{Message: "User registered successfully"})
}

type userCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in userCredentials
	if err := decodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess, u, err := h.service.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.RespondError(w, errBadUserLogin)
			return
		}
		h.fail(w, "login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, userLoginResponse{
		Token: sess.Token,
		User:  accountView{ID: u.ID, Name: u.Name, Email: u.Email, Username: u.Username, Role: u.Role},
	})
}

func (h *Handler) registerAdmin(w http.ResponseWriter, r *http.Request) {
	var in AdminSignUpInput
	if err := decodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	a, err := h.service.RegisterAdmin(r.Context(), in)
	if err != nil {
		h.fail(w, "register admin", err)
		return
	}
	h.logger.Info("admin registered", slog.String("username", a.Username))
	httpx.JSON(w, http.StatusCreated, httpx.Message{Message: "Admin registered successfully"})
}

type adminCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var in adminCredentials
	if err := decodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess, a, err := h.service.AdminLogin(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.RespondError(w, errBadAdminLogin)
			return
		}
		h.fail(w, "admin login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, adminLoginResponse{
		Token: sess.Token,
		Admin: accountView{ID: a.ID, Name: a.Name, Email: a.Email, Username: a.Username, Role: RoleAdmin},
	})
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	u, err := h.service.Profile(r.Context(), p)
	if err != nil {
		h.fail(w, "profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newProfileView(u))
}

type profileForm struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Avatar  *string `json:"avatar"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	upd, err := h.readProfileForm(w, r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, replaced, err := h.service.UpdateProfile(r.Context(), p, upd)
	if err != nil {
		if upd.Avatar != nil {
			h.discard(r.Context(), *upd.Avatar)
		}
		h.fail(w, "update profile", err)
		return
	}
	h.discard(r.Context(), replaced)
	httpx.JSON(w, http.StatusOK, newProfileView(u))
}

// readProfileForm accepts either a JSON body or a multipart form with an
// optional avatarFile part.
func (h *Handler) readProfileForm(w http.ResponseWriter, r *http.Request) (ProfileUpdate, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var form profileForm
		if err := decodeJSON(w, r, &form); err != nil {
			return ProfileUpdate{}, err
		}
		return ProfileUpdate(form), nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBody)
	if err := r.ParseMultipartForm(maxAvatarBody); err != nil {
		return ProfileUpdate{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	var upd ProfileUpdate
	for key, dst := range map[string]**string{"name": &upd.Name, "address": &upd.Address, "phone": &upd.Phone, "avatar": &upd.Avatar} {
		if vals, ok := r.MultipartForm.Value[key]; ok && len(vals) > 0 {
			v := vals[0]
			*dst = &v
		}
	}
	file, _, err := r.FormFile("avatarFile")
	if errors.Is(err, http.ErrMissingFile) {
		return upd, nil
	}
	if err != nil {
		return ProfileUpdate{}, fmt.Errorf("%w: avatarFile: %v", ErrInvalidInput, err)
	}
	defer file.Close()
	if h.avatars == nil {
		return ProfileUpdate{}, fmt.Errorf("%w: avatar uploads are disabled", ErrInvalidInput)
	}
	path, err := h.avatars.Save("avatarFile", file)
	if err != nil {
		return ProfileUpdate{}, err
	}
	upd.Avatar = &path
	return upd, nil
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	if err := h.service.Logout(r.Context(), p); err != nil {
		h.fail(w, "logout", fmt.Errorf("%w: %w", httpx.ErrUnavailable, err))
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Message{Message: "Logged out successfully"})
}

func (h *Handler) discard(ctx context.Context, path string) {
	if path == "" || h.cleaner == nil {
		return
	}
	if err := h.cleaner.Cleanup(ctx, path); err != nil {
		h.logger.Warn("avatar cleanup", slog.String("path", path), slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrDuplicate),
		errors.Is(err, httpx.ErrUnauthorized), errors.Is(err, httpx.ErrNotFound):
	default:
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := httpx.DecodeJSON(r, dst); err != nil {
		return fmt.Errorf("%w: malformed request body", ErrInvalidInput)
	}
	return nil
}
