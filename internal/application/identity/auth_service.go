package identity

import (
	"context"
	"errors"

	domain "github.com/invoicely/backend/internal/domain/identity"
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/invoicely/backend/internal/infrastructure/auth"
	"github.com/invoicely/backend/internal/infrastructure/logger"
	"github.com/invoicely/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Credential failures share one message so the response does not reveal
// whether the email is registered.
var errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// AuthService handles registration, login and token lifecycle
type AuthService struct {
	userRepo       domain.UserRepository
	jwtService     *auth.JWTService
	blacklist      auth.TokenBlacklist
	eventPublisher shared.EventPublisher
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo domain.UserRepository, jwtService *auth.JWTService, blacklist auth.TokenBlacklist) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *AuthService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Register creates a new user account. The role defaults to USER unless the
// request names another valid role.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "register")
	defer span.End()

	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_ALREADY_EXISTS", "An account with this email already exists")
	}

	role := domain.RoleUser
	if req.Role != "" {
		role = domain.Role(req.Role)
	}

	user, err := domain.NewUser(req.Email, req.Password, req.Name, role)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, user.GetDomainEvents()...)
		user.ClearDomainEvents()
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrUserID, user.ID.String())
	logger.L(ctx).Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role.String()),
	)

	resp := ToUserResponse(user)
	return &resp, nil
}

// Login authenticates a user and issues a token pair
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "login")
	defer span.End()

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !user.VerifyPassword(req.Password) {
		logger.L(ctx).Warn("login failed", zap.String("user_id", user.ID.String()))
		return nil, errInvalidCredentials
	}

	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role.String(),
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	user.RecordLogin()
	if err := s.userRepo.Save(ctx, user); err != nil {
		// Login timestamp persistence must not block the login itself.
		logger.L(ctx).Warn("failed to record login time",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrUserID, user.ID.String())
	logger.L(ctx).Info("user logged in", zap.String("user_id", user.ID.String()))

	return &LoginResponse{
		Tokens: toTokenResponse(pair),
		User:   ToUserResponse(user),
	}, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The previous
// refresh token is revoked so each token can only be exchanged once.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "refresh")
	defer span.End()

	claims, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, err
	}

	if err := s.checkRevocation(ctx, claims); err != nil {
		return nil, err
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, auth.ErrInvalidClaims
	}

	// Role changes since the token was issued take effect on refresh.
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, auth.ErrInvalidToken
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	pair, err := s.jwtService.RefreshTokenPair(req.RefreshToken, user.Email, user.Role.String())
	if err != nil {
		return nil, err
	}

	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		logger.L(ctx).Warn("failed to revoke exchanged refresh token", zap.Error(err))
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrUserID, user.ID.String())

	resp := toTokenResponse(pair)
	return &resp, nil
}

// Logout revokes the presented tokens for the remainder of their lifetime
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "logout")
	defer span.End()

	if accessToken != "" {
		if claims, err := s.jwtService.ValidateAccessToken(accessToken); err == nil {
			if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
				logger.L(ctx).Warn("failed to revoke access token", zap.Error(err))
			}
		}
	}

	if refreshToken != "" {
		if claims, err := s.jwtService.ValidateRefreshToken(refreshToken); err == nil {
			if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
				logger.L(ctx).Warn("failed to revoke refresh token", zap.Error(err))
			}
		}
	}

	logger.L(ctx).Info("user logged out")
	return nil
}

// ValidateAccess validates an access token and returns the request principal.
// Revoked tokens and tokens issued before a user-wide invalidation are
// rejected.
func (s *AuthService) ValidateAccess(ctx context.Context, accessToken string) (*domain.Principal, error) {
	claims, err := s.jwtService.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	if err := s.checkRevocation(ctx, claims); err != nil {
		return nil, err
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, auth.ErrInvalidClaims
	}

	return &domain.Principal{
		ID:    userID,
		Email: claims.Email,
		Role:  domain.Role(claims.Role),
	}, nil
}

// RevokeUserTokens invalidates every token issued to a user before now.
// Used after password changes and role changes.
func (s *AuthService) RevokeUserTokens(ctx context.Context, userID string) error {
	ttl := s.jwtService.GetRefreshTokenExpiration()
	if err := s.blacklist.AddUserTokensToBlacklist(ctx, userID, ttl); err != nil {
		return err
	}
	logger.L(ctx).Info("revoked all tokens for user", zap.String("user_id", userID))
	return nil
}

func (s *AuthService) checkRevocation(ctx context.Context, claims *auth.Claims) error {
	blacklisted, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return err
	}
	if blacklisted {
		return auth.ErrTokenBlacklisted
	}

	invalidated, err := s.blacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime())
	if err != nil {
		return err
	}
	if invalidated {
		return auth.ErrTokenBlacklisted
	}

	return nil
}

func toTokenResponse(pair *auth.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}
}
