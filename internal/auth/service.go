package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	pkgAuth "github.com/brunotavares/sorrisodigital-backend/pkg/auth"
	"github.com/brunotavares/sorrisodigital-backend/pkg/auth/session"
	"github.com/brunotavares/sorrisodigital-backend/pkg/config"
	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
	"github.com/brunotavares/sorrisodigital-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenPairResponse, error)
	Logout(ctx context.Context, req LogoutRequest) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type service struct {
	admins  Repository
	session sessionManager
	jwtCfg  config.JWTConfig
	logg    *logger.Logger
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	AdminRepo      Repository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	Logger         *logger.Logger
}

// NewService constructs the admin login service.
func NewService(params ServiceParams) (Service, error) {
	if params.AdminRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "admin repository is required")
	}
	if params.SessionManager == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session manager is required")
	}
	return &service{
		admins:  params.AdminRepo,
		session: params.SessionManager,
		jwtCfg:  params.JWTConfig,
		logg:    params.Logger,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	admin, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.admins.UpdateLastLogin(ctx, admin.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record login")
	}

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		AdminID: admin.ID,
		Email:   admin.Email,
		Name:    admin.Name,
		JTI:     accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"admin_id": admin.ID.String()}), "admin logged in")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Admin: AdminSummary{
			ID:          admin.ID,
			Email:       admin.Email,
			Name:        admin.Name,
			LastLoginAt: &now,
		},
	}, nil
}

// Refresh rotates the session bound to an access token. The access token may
// be expired; only its signature and jti are used.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*TokenPairResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	admin, err := s.admins.FindByID(ctx, claims.AdminID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load admin")
	}
	if !admin.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	newAccessID, newRefresh, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		AdminID: admin.ID,
		Email:   admin.Email,
		Name:    admin.Name,
		JTI:     newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &TokenPairResponse{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

func (s *service) Logout(ctx context.Context, req LogoutRequest) error {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if err := s.session.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.AdminUser, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	admin, err := s.admins.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Burn a verification anyway so lookups and misses take similar time.
		_, _ = security.VerifyPassword(password, security.DummyHash)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup admin")
	}
	if !admin.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	ok, err := security.VerifyPassword(password, admin.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return admin, nil
}
