package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/glowcare/storefront/internal/platform/httpx"
)

func newTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	repo := NewMemoryRepository()
	svc := NewService(repo, tokens, NewMemoryDenylist())
	svc.hashCost = bcrypt.MinCost
	return svc, repo
}

func signUpInput() SignUpInput {
	return SignUpInput{Name: "Ada", Email: " Ada@Glow.test ", Username: "ada", Password: "secret1"}
}

func TestSignUpAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.SignUp(ctx, signUpInput())
	require.NoError(t, err)
	assert.Equal(t, "ada@glow.test", u.Email)
	assert.Equal(t, RoleUser, u.Role)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	sess, logged, err := svc.Login(ctx, "ada", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
	assert.NotEmpty(t, sess.Token)

	p, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.Subject)
	assert.False(t, p.IsAdmin())
}

func TestSignUpRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, signUpInput())
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, signUpInput())
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, httpx.ErrDuplicate)

	in := signUpInput()
	in.Email = "other@glow.test"
	_, err = svc.SignUp(ctx, in)
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestSignUpValidation(t *testing.T) {
	svc, _ := newTestService(t)

	in := signUpInput()
	in.Password = "123"
	in.Email = "not-an-email"
	_, err := svc.SignUp(context.Background(), in)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "Password must be at least 6 characters long")
	assert.Contains(t, err.Error(), "Email must be a valid email")
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, signUpInput())
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "ada", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterAdminGeneratesUsernames(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.RegisterAdmin(ctx, AdminSignUpInput{Name: "Jo", Email: "jo@glow.test", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "jo_admin", first.Username)

	second, err := svc.RegisterAdmin(ctx, AdminSignUpInput{Name: "Jo", Email: "jo@other.test", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "jo_admin1", second.Username)

	third, err := svc.RegisterAdmin(ctx, AdminSignUpInput{Name: "Jo", Email: "jo@third.test", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "jo_admin2", third.Username)

	_, err = svc.RegisterAdmin(ctx, AdminSignUpInput{Name: "Jo", Email: "JO@glow.test", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.RegisterAdmin(ctx, AdminSignUpInput{Name: "Jo", Email: "short@glow.test", Password: "12345"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAdminLoginIssuesAdminToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.RegisterAdmin(ctx, AdminSignUpInput{Name: "Jo", Email: "jo@glow.test", Password: "secret1"})
	require.NoError(t, err)

	sess, a, err := svc.AdminLogin(ctx, "Jo@Glow.test", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "jo_admin", a.Username)
	assert.True(t, sess.Principal.IsAdmin())

	_, _, err = svc.AdminLogin(ctx, "jo@glow.test", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, signUpInput())
	require.NoError(t, err)
	sess, _, err := svc.Login(ctx, "ada", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sess.Principal))
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	u, err := svc.SignUp(ctx, signUpInput())
	require.NoError(t, err)
	p := Principal{Subject: u.ID, Role: RoleUser}

	first := "/uploads/avatarFile-1.png"
	updated, replaced, err := svc.UpdateProfile(ctx, p, ProfileUpdate{Avatar: &first, Phone: strPtr(" 555-0100 ")})
	require.NoError(t, err)
	assert.Empty(t, replaced)
	assert.Equal(t, "555-0100", updated.Phone)
	assert.Equal(t, "Ada", updated.Name)

	second := "/uploads/avatarFile-2.png"
	_, replaced, err = svc.UpdateProfile(ctx, p, ProfileUpdate{Avatar: &second})
	require.NoError(t, err)
	assert.Equal(t, first, replaced)

	_, _, err = svc.UpdateProfile(ctx, p, ProfileUpdate{Name: strPtr("  ")})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProfileRejectsAdminPrincipal(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Profile(context.Background(), Principal{Subject: "a-1", Role: RoleAdmin})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func strPtr(s string) *string { return &s }
