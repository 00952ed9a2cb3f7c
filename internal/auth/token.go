package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/hitoshi/eventhub/internal/model"
)

// ErrInvalidToken は署名不正・期限切れ・形式不正のトークンを表す。
var ErrInvalidToken = errors.New("invalid token")

// claims はトークンに埋め込む独自クレーム。
type claims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// TokenConfig はトークン発行の設定。
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// RefreshToken は発行済みリフレッシュトークンとその識別子。
type RefreshToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// RefreshClaims は検証済みリフレッシュトークンの内容。
type RefreshClaims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// TokenService はHS256署名のアクセストークンとリフレッシュトークンを発行・検証する。
type TokenService struct {
	config        TokenConfig
	accessSigner  jose.Signer
	refreshSigner jose.Signer
	now           func() time.Time
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(config TokenConfig) (*TokenService, error) {
	if config.AccessSecret == "" || config.RefreshSecret == "" {
		return nil, fmt.Errorf("token secrets must not be empty")
	}
	accessSigner, err := newSigner(config.AccessSecret)
	if err != nil {
		return nil, err
	}
	refreshSigner, err := newSigner(config.RefreshSecret)
	if err != nil {
		return nil, err
	}
	return &TokenService{
		config:        config,
		accessSigner:  accessSigner,
		refreshSigner: refreshSigner,
		now:           time.Now,
	}, nil
}

func newSigner(secret string) (jose.Signer, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte(secret)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}
	return signer, nil
}

// SetClock は現在時刻の取得関数を差し替える。テスト用。
func (s *TokenService) SetClock(now func() time.Time) {
	s.now = now
}

// IssueAccessToken はユーザーのIDとロールを埋め込んだアクセストークンを発行する。
func (s *TokenService) IssueAccessToken(user *model.User) (string, error) {
	now := s.now()
	std := jwt.Claims{
		Subject:  user.ID,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(s.config.AccessTTL)),
	}
	token, err := jwt.Signed(s.accessSigner).
		Claims(std).
		Claims(claims{ID: user.ID, Role: string(user.Role)}).
		Serialize()
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// IssueRefreshToken はリフレッシュトークンを発行する。失効管理用にjtiを付与する。
func (s *TokenService) IssueRefreshToken(user *model.User) (*RefreshToken, error) {
	now := s.now()
	expiresAt := now.Add(s.config.RefreshTTL)
	tokenID := uuid.New().String()
	std := jwt.Claims{
		ID:       tokenID,
		Subject:  user.ID,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.Signed(s.refreshSigner).
		Claims(std).
		Claims(claims{ID: user.ID, Role: string(user.Role)}).
		Serialize()
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &RefreshToken{Token: token, ID: tokenID, ExpiresAt: expiresAt}, nil
}

// Verify はアクセストークンを検証し、発行時点のIDとロールを返す。
// ロールはストレージから再取得しない。
func (s *TokenService) Verify(raw string) (*model.Identity, error) {
	std, custom, err := s.parse(raw, s.config.AccessSecret)
	if err != nil {
		return nil, err
	}
	role, err := model.ParseRole(custom.Role)
	if err != nil || custom.ID == "" || custom.ID != std.Subject {
		return nil, fmt.Errorf("%w: malformed identity claims", ErrInvalidToken)
	}
	return &model.Identity{ID: custom.ID, Role: role}, nil
}

// VerifyRefresh はリフレッシュトークンを検証する。
func (s *TokenService) VerifyRefresh(raw string) (*RefreshClaims, error) {
	std, custom, err := s.parse(raw, s.config.RefreshSecret)
	if err != nil {
		return nil, err
	}
	if std.ID == "" || custom.ID == "" || std.Expiry == nil {
		return nil, fmt.Errorf("%w: malformed refresh claims", ErrInvalidToken)
	}
	return &RefreshClaims{UserID: custom.ID, TokenID: std.ID, ExpiresAt: std.Expiry.Time()}, nil
}

// parse は署名と有効期間を猶予なしで検証する。
func (s *TokenService) parse(raw, secret string) (*jwt.Claims, *claims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var std jwt.Claims
	var custom claims
	if err := tok.Claims([]byte(secret), &std, &custom); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if std.Expiry == nil {
		return nil, nil, fmt.Errorf("%w: missing exp", ErrInvalidToken)
	}
	if err := std.ValidateWithLeeway(jwt.Expected{Time: s.now()}, 0); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &std, &custom, nil
}
