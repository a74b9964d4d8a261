package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/glowcare/storefront/internal/platform/httpx"
)

// SignUpInput is the shopper registration form.
type SignUpInput struct {
	Name       string `json:"name" validate:"required,max=100"`
	MiddleName string `json:"middleName" validate:"max=100"`
	Email      string `json:"email" validate:"required,email"`
	Username   string `json:"username" validate:"required,min=3,max=50"`
	Password   string `json:"password" validate:"required,min=6"`
}

// AdminSignUpInput is the administrator registration form.
type AdminSignUpInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	Principal Principal
}

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	tokens    *TokenIssuer
	denylist  Denylist
	validator *validator.Validate
	now       func() time.Time
	hashCost  int
}

// NewService constructs a new Service. A nil denylist keeps revocations in process.
func NewService(repo Repository, tokens *TokenIssuer, denylist Denylist) *Service {
	if denylist == nil {
		denylist = NewMemoryDenylist()
	}
	return &Service{
		repo:      repo,
		tokens:    tokens,
		denylist:  denylist,
		validator: validator.New(),
		now:       time.Now,
		hashCost:  bcrypt.DefaultCost,
	}
}

// SignUp registers a shopper account.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.MiddleName = strings.TrimSpace(in.MiddleName)
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate(in); err != nil {
		return User{}, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		MiddleName:   in.MiddleName,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         RoleUser,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login authenticates a shopper by username and password.
func (s *Service) Login(ctx context.Context, username, password string) (Session, User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, User{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	u, err := s.repo.FindUserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, User{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Session{}, User{}, ErrInvalidCredentials
	}
	sess, err := s.issue(Principal{Subject: u.ID, Role: RoleUser, Username: u.Username})
	return sess, u, err
}

// RegisterAdmin creates an administrator. The username is derived from the
// email local part with an "_admin" suffix, numbered on collision.
func (s *Service) RegisterAdmin(ctx context.Context, in AdminSignUpInput) (Admin, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := s.validate(in); err != nil {
		return Admin{}, err
	}
	if _, err := s.repo.FindAdminByEmail(ctx, in.Email); err == nil {
		return Admin{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return Admin{}, err
	}
	username, err := s.adminUsername(ctx, in.Email)
	if err != nil {
		return Admin{}, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return Admin{}, err
	}
	a := Admin{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateAdmin(ctx, a); err != nil {
		return Admin{}, err
	}
	return a, nil
}

func (s *Service) adminUsername(ctx context.Context, email string) (string, error) {
	local, _, _ := strings.Cut(email, "@")
	base := local + "_admin"
	candidate := base
	for counter := 1; ; counter++ {
		taken, err := s.repo.AdminUsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(counter)
	}
}

// AdminLogin authenticates an administrator by email and password.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (Session, Admin, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, Admin{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	a, err := s.repo.FindAdminByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, Admin{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, Admin{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return Session{}, Admin{}, ErrInvalidCredentials
	}
	sess, err := s.issue(Principal{Subject: a.ID, Role: RoleAdmin, Username: a.Username, Email: a.Email})
	return sess, a, err
}

// Profile returns the shopper identified by p.
func (s *Service) Profile(ctx context.Context, p Principal) (User, error) {
	if p.Role != RoleUser {
		return User{}, ErrUserNotFound
	}
	if _, err := uuid.Parse(p.Subject); err != nil {
		return User{}, ErrUserNotFound
	}
	return s.repo.FindUserByID(ctx, p.Subject)
}

// UpdateProfile applies upd to the shopper identified by p. It returns the
// updated user and the avatar path it replaced, if any.
func (s *Service) UpdateProfile(ctx context.Context, p Principal, upd ProfileUpdate) (User, string, error) {
	current, err := s.Profile(ctx, p)
	if err != nil {
		return User{}, "", err
	}
	for _, field := range []*string{upd.Name, upd.Address, upd.Phone} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
	if upd.Name != nil && *upd.Name == "" {
		return User{}, "", fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}
	updated, err := s.repo.UpdateUser(ctx, current.ID, upd)
	if err != nil {
		return User{}, "", err
	}
	replaced := ""
	if upd.Avatar != nil && current.Avatar != updated.Avatar {
		replaced = current.Avatar
	}
	return updated, replaced, nil
}

// Authenticate verifies a bearer token and rejects revoked ones.
func (s *Service) Authenticate(ctx context.Context, raw string) (Principal, error) {
	p, err := s.tokens.Parse(raw)
	if err != nil {
		return Principal{}, err
	}
	revoked, err := s.denylist.IsRevoked(ctx, p.TokenID)
	if err != nil {
		return Principal{}, fmt.Errorf("auth: check revocation: %w: %w", httpx.ErrUnavailable, err)
	}
	if revoked {
		return Principal{}, ErrInvalidToken
	}
	return p, nil
}

// Logout revokes the token carried by p until it would have expired.
func (s *Service) Logout(ctx context.Context, p Principal) error {
	return s.denylist.Revoke(ctx, p.TokenID, p.ExpiresAt)
}

func (s *Service) issue(p Principal) (Session, error) {
	token, issued, err := s.tokens.Issue(p)
	if err != nil {
		return Session{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return Session{Token: token, Principal: issued}, nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) validate(in any) error {
	err := s.validator.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "email":
			msgs = append(msgs, fe.Field()+" must be a valid email")
		case "min":
			msgs = append(msgs, fe.Field()+" must be at least "+fe.Param()+" characters long")
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, ", "))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
