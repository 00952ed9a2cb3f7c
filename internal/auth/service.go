// Package auth はトークン発行・検証、パスワードハッシュ、ユーザー登録とログインを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/eventhub/internal/model"
)

// UserStore は認証に必要なユーザー永続化操作。
// repository.UserRepositoryの部分集合として定義する。
type UserStore interface {
	Insert(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Role      model.Role `json:"role"`
}

// LoginResult はログイン成功時に発行されるトークンとユーザー。
type LoginResult struct {
	AccessToken  string
	RefreshToken *RefreshToken
	User         *model.User
}

// Service は登録・ログイン・トークン更新・ログアウトのビジネスロジックを提供する。
type Service struct {
	users       UserStore
	tokens      *TokenService
	hasher      *PasswordHasher
	revocations RevocationStore
	sanitize    func(string) string
	now         func() time.Time
}

// NewService はServiceを生成する。sanitizeがnilの場合は入力をそのまま使う。
func NewService(users UserStore, tokens *TokenService, hasher *PasswordHasher, revocations RevocationStore, sanitize func(string) string) *Service {
	if sanitize == nil {
		sanitize = func(s string) string { return s }
	}
	return &Service{
		users:       users,
		tokens:      tokens,
		hasher:      hasher,
		revocations: revocations,
		sanitize:    sanitize,
		now:         time.Now,
	}
}

// Register は新規ユーザーを登録する。
// ロール未指定時はattendeeとし、adminの自己登録は拒否する。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, model.NewValidationError("Please enter all required fields.")
	}
	if in.Role == "" {
		in.Role = model.RoleAttendee
	}
	if !in.Role.Valid() {
		return nil, model.NewValidationError("Validation error.", "role must be one of admin, organizer, attendee")
	}
	if in.Role == model.RoleAdmin {
		return nil, model.NewForbiddenError("Forbidden: admin accounts cannot be self-registered")
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, model.NewConflictError("User with this email already exists.")
	}

	user := &model.User{
		Username:  strings.TrimSpace(in.Username),
		Email:     strings.TrimSpace(in.Email),
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      in.Role,
	}
	user.SanitizeText(s.sanitize)
	if errs := user.Validate(); len(errs) > 0 {
		return nil, model.NewValidationError("Validation error.", errs...)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.Password = ""

	if err := s.users.Insert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Login はメールアドレスとパスワードを検証し、トークンを発行する。
// ユーザー不在とパスワード不一致は区別せず同じエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, model.NewValidationError("Please enter all required fields.")
	}

	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewInvalidCredentialsError()
	}

	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh はリフレッシュトークンから新しいアクセストークンを発行する。
// ユーザーを再取得するため、ロール変更はこの時点で反映される。
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (string, error) {
	if rawRefresh == "" {
		return "", model.NewUnauthenticatedError("No refresh token provided.")
	}

	rc, err := s.tokens.VerifyRefresh(rawRefresh)
	if err != nil {
		slog.Warn("refresh token rejected", slog.String("error", err.Error()))
		return "", model.NewForbiddenError("Invalid or expired refresh token.")
	}

	revoked, err := s.revocations.IsRevoked(ctx, rc.TokenID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", model.NewForbiddenError("Invalid or expired refresh token.")
	}

	user, err := s.users.FindByID(ctx, rc.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", model.NewForbiddenError("Invalid refresh token.")
	}

	return s.tokens.IssueAccessToken(user)
}

// Logout はリフレッシュトークンを残り有効期間だけ失効させる。
// 不正なトークンは失効対象がないため何もしない。
func (s *Service) Logout(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	rc, err := s.tokens.VerifyRefresh(rawRefresh)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil
		}
		return err
	}
	if err := s.revocations.Revoke(ctx, rc.TokenID, rc.ExpiresAt.Sub(s.now())); err != nil {
		return err
	}
	slog.Info("user logged out", slog.String("user_id", rc.UserID))
	return nil
}

// CurrentUser は認証済みユーザーの最新情報を取得する。
func (s *Service) CurrentUser(ctx context.Context, identity *model.Identity) (*model.User, error) {
	if identity == nil {
		return nil, model.NewUnauthenticatedError("Not authorized, no token")
	}
	user, err := s.users.FindByID(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewNotFoundError("User")
	}
	return user, nil
}
