package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/studyhub-api/internal/models"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
)

type mockAuthRepo struct {
	users     map[string]*models.User
	findErr   error
	createErr error
	created   []*models.User
}

func (m *mockAuthRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if user, ok := m.users[username]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = int64(len(m.users) + 1)
	if m.users == nil {
		m.users = map[string]*models.User{}
	}
	m.users[user.Username] = user
	m.created = append(m.created, user)
	return nil
}

type queryObserverStub struct {
	labels []string
}

func (q *queryObserverStub) ObserveDBQuery(label string, _ time.Duration) {
	q.labels = append(q.labels, label)
}

func newAuthServiceForTest(t *testing.T, repo *mockAuthRepo) (*AuthService, *queryObserverStub) {
	t.Helper()
	observer := &queryObserverStub{}
	svc := NewAuthService(repo, nil, observer, nil, AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "studyhub",
	})
	return svc, observer
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{users: map[string]*models.User{
		"kim": {ID: 7, Username: "kim", Email: "kim@example.com", PasswordHash: hashPassword(t, "password1")},
	}}
	svc, observer := newAuthServiceForTest(t, repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "kim", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleStudent, resp.User.Role)
	assert.Equal(t, []string{"users_find_by_username"}, observer.labels)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "kim", claims.Username)
	assert.False(t, claims.IsAdmin())
	assert.Equal(t, models.Actor{UserID: 7, Username: "kim"}, claims.Actor())
}

func TestAuthServiceLoginFailures(t *testing.T) {
	repo := &mockAuthRepo{users: map[string]*models.User{
		"kim": {ID: 7, Username: "kim", PasswordHash: hashPassword(t, "password1")},
	}}
	svc, _ := newAuthServiceForTest(t, repo)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Username: "kim", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "nobody", Password: "x"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "kim"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	repo.findErr = errors.New("db down")
	_, err = svc.Login(ctx, models.LoginRequest{Username: "kim", Password: "password1"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestValidateToken(t *testing.T) {
	repo := &mockAuthRepo{users: map[string]*models.User{
		"admin": {ID: 1, Username: "admin", IsAdmin: true, PasswordHash: hashPassword(t, "admin123")},
	}}
	svc, _ := newAuthServiceForTest(t, repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())

	other := NewAuthService(repo, nil, nil, nil, AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Hour, Issuer: "studyhub"})
	_, err = other.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	expired := NewAuthService(repo, nil, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "studyhub"})
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := expired.generateAccessToken(repo.users["admin"])
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceBootstrapAdmin(t *testing.T) {
	repo := &mockAuthRepo{}
	svc, _ := newAuthServiceForTest(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.BootstrapAdmin(ctx, AdminBootstrap{Username: "admin"}))
	assert.Empty(t, repo.created)

	require.NoError(t, svc.BootstrapAdmin(ctx, AdminBootstrap{Username: "admin", Email: "a@b.c", Password: "admin123"}))
	require.Len(t, repo.created, 1)
	assert.True(t, repo.created[0].IsAdmin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created[0].PasswordHash), []byte("admin123")))

	require.NoError(t, svc.BootstrapAdmin(ctx, AdminBootstrap{Username: "admin", Password: "admin123"}))
	assert.Len(t, repo.created, 1)

	info, err := svc.Me(ctx, repo.created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, info.Role)

	_, err = svc.Me(ctx, 999)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func validRegisterRequest() models.RegisterRequest {
	return models.RegisterRequest{Username: "newbie", Email: "newbie@example.com", Password: "secret1", PasswordConfirm: "secret1"}
}

func TestAuthServiceRegister(t *testing.T) {
	repo := &mockAuthRepo{}
	svc, observer := newAuthServiceForTest(t, repo)
	ctx := context.Background()

	req := validRegisterRequest()
	req.Username = "  newbie "
	info, err := svc.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "newbie", info.Username)
	assert.Equal(t, models.RoleStudent, info.Role)
	require.Len(t, repo.created, 1)
	assert.False(t, repo.created[0].IsAdmin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created[0].PasswordHash), []byte("secret1")))
	assert.Equal(t, []string{"users_find_by_username", "users_create"}, observer.labels)

	resp, err := svc.Login(ctx, models.LoginRequest{Username: "newbie", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, info.ID, resp.User.ID)

	_, err = svc.Register(ctx, validRegisterRequest())
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Len(t, repo.created, 1)
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	svc, _ := newAuthServiceForTest(t, &mockAuthRepo{})

	cases := map[string]func(*models.RegisterRequest){
		"short username":     func(r *models.RegisterRequest) { r.Username = "abc" },
		"multiline username": func(r *models.RegisterRequest) { r.Username = "kim\n사용자: admin" },
		"bad email":          func(r *models.RegisterRequest) { r.Email = "not-an-email" },
		"short password":     func(r *models.RegisterRequest) { r.Password, r.PasswordConfirm = "12345", "12345" },
		"mismatch":           func(r *models.RegisterRequest) { r.PasswordConfirm = "secret2" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRegisterRequest()
			mutate(&req)
			_, err := svc.Register(context.Background(), req)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
}

func TestAuthServiceRegisterStoreErrors(t *testing.T) {
	repo := &mockAuthRepo{createErr: models.ErrDuplicateUser}
	svc, _ := newAuthServiceForTest(t, repo)

	_, err := svc.Register(context.Background(), validRegisterRequest())
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	repo.createErr = errors.New("db down")
	_, err = svc.Register(context.Background(), validRegisterRequest())
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	repo.createErr = nil
	repo.findErr = errors.New("db down")
	_, err = svc.Register(context.Background(), validRegisterRequest())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
