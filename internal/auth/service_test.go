package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/eventhub/internal/model"
)

// --- モック定義 ---

type mockUserStore struct {
	insertFn      func(ctx context.Context, user *model.User) error
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
}

func (m *mockUserStore) Insert(ctx context.Context, user *model.User) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, user)
	}
	user.ID = "11111111-1111-4111-8111-111111111111"
	return nil
}

func (m *mockUserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

var _ UserStore = (*mockUserStore)(nil)

func newTestService(t *testing.T, users UserStore) (*Service, *TokenService) {
	t.Helper()
	tokens := newTestTokenService(t, time.Now())
	return NewService(users, tokens, NewPasswordHasher(bcrypt.MinCost), NewMemoryRevocationStore(), nil), tokens
}

func apiErrorCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr), "expected *model.APIError, got %v", err)
	return apiErr.Code
}

// --- テスト ---

func TestRegister_DefaultsToAttendeeAndHashesPassword(t *testing.T) {
	var inserted *model.User
	svc, _ := newTestService(t, &mockUserStore{
		insertFn: func(_ context.Context, user *model.User) error {
			inserted = user
			user.ID = "u-1"
			return nil
		},
	})

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "pw123456",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAttendee, user.Role)
	assert.Empty(t, inserted.Password, "plain password must be cleared before persisting")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(inserted.PasswordHash), []byte("pw123456")))
}

func TestRegister_Errors(t *testing.T) {
	existing := &model.User{ID: "u-0", Email: "taken@example.com"}
	store := &mockUserStore{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			if email == existing.Email {
				return existing, nil
			}
			return nil, nil
		},
	}
	svc, _ := newTestService(t, store)

	tests := []struct {
		name     string
		in       RegisterInput
		wantCode string
	}{
		{"missing password", RegisterInput{Username: "a", Email: "a@example.com"}, model.ErrCodeValidation},
		{"invalid email", RegisterInput{Username: "a", Email: "nope", Password: "pw"}, model.ErrCodeValidation},
		{"unknown role", RegisterInput{Username: "a", Email: "a@example.com", Password: "pw", Role: "root"}, model.ErrCodeValidation},
		{"admin self-registration", RegisterInput{Username: "a", Email: "a@example.com", Password: "pw", Role: model.RoleAdmin}, model.ErrCodeForbidden},
		{"duplicate email", RegisterInput{Username: "a", Email: "taken@example.com", Password: "pw"}, model.ErrCodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			assert.Equal(t, tt.wantCode, apiErrorCode(t, err))
		})
	}
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{ID: "22222222-2222-4222-8222-222222222222", Email: "bob@example.com", PasswordHash: string(hash), Role: model.RoleOrganizer}

	svc, tokens := newTestService(t, &mockUserStore{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			if email == user.Email {
				return user, nil
			}
			return nil, nil
		},
	})
	ctx := context.Background()

	result, err := svc.Login(ctx, "bob@example.com", "correct")
	require.NoError(t, err)
	identity, err := tokens.Verify(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.ID)
	assert.Equal(t, model.RoleOrganizer, identity.Role)
	assert.NotEmpty(t, result.RefreshToken.Token)

	_, err = svc.Login(ctx, "bob@example.com", "wrong")
	assert.Equal(t, model.ErrCodeInvalidCredentials, apiErrorCode(t, err))

	_, err = svc.Login(ctx, "nobody@example.com", "correct")
	assert.Equal(t, model.ErrCodeInvalidCredentials, apiErrorCode(t, err))

	_, err = svc.Login(ctx, "", "")
	assert.Equal(t, model.ErrCodeValidation, apiErrorCode(t, err))
}

func TestRefresh_PicksUpRoleChange(t *testing.T) {
	user := &model.User{ID: "33333333-3333-4333-8333-333333333333", Role: model.RoleAttendee}
	svc, tokens := newTestService(t, &mockUserStore{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			if id == user.ID {
				return user, nil
			}
			return nil, nil
		},
	})
	ctx := context.Background()

	refresh, err := tokens.IssueRefreshToken(user)
	require.NoError(t, err)

	user.Role = model.RoleOrganizer
	access, err := svc.Refresh(ctx, refresh.Token)
	require.NoError(t, err)

	identity, err := tokens.Verify(access)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOrganizer, identity.Role)
}

func TestRefresh_Errors(t *testing.T) {
	svc, tokens := newTestService(t, &mockUserStore{})
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "")
	assert.Equal(t, model.ErrCodeUnauthenticated, apiErrorCode(t, err))

	_, err = svc.Refresh(ctx, "garbage")
	assert.Equal(t, model.ErrCodeForbidden, apiErrorCode(t, err))

	refresh, err := tokens.IssueRefreshToken(&model.User{ID: "44444444-4444-4444-8444-444444444444", Role: model.RoleAttendee})
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, refresh.Token)
	assert.Equal(t, model.ErrCodeForbidden, apiErrorCode(t, err), "deleted user")
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	user := &model.User{ID: "55555555-5555-4555-8555-555555555555", Role: model.RoleAttendee}
	svc, tokens := newTestService(t, &mockUserStore{
		findByIDFn: func(_ context.Context, _ string) (*model.User, error) { return user, nil },
	})
	ctx := context.Background()

	refresh, err := tokens.IssueRefreshToken(user)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, refresh.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, refresh.Token))
	_, err = svc.Refresh(ctx, refresh.Token)
	assert.Equal(t, model.ErrCodeForbidden, apiErrorCode(t, err))

	assert.NoError(t, svc.Logout(ctx, "garbage"), "logout with an unusable token is a no-op")
	assert.NoError(t, svc.Logout(ctx, ""))
}

func TestCurrentUser(t *testing.T) {
	user := &model.User{ID: "66666666-6666-4666-8666-666666666666"}
	svc, _ := newTestService(t, &mockUserStore{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			if id == user.ID {
				return user, nil
			}
			return nil, nil
		},
	})
	ctx := context.Background()

	got, err := svc.CurrentUser(ctx, &model.Identity{ID: user.ID, Role: model.RoleAttendee})
	require.NoError(t, err)
	assert.Same(t, user, got)

	_, err = svc.CurrentUser(ctx, nil)
	assert.Equal(t, model.ErrCodeUnauthenticated, apiErrorCode(t, err))

	_, err = svc.CurrentUser(ctx, &model.Identity{ID: "gone"})
	assert.Equal(t, model.ErrCodeNotFound, apiErrorCode(t, err))
}
