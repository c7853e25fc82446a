package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/identity"
	"github.com/vidgen/backend/internal/domain/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
	"github.com/vidgen/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles signup, login and token refresh
type AuthService struct {
	userRepo      identity.UserRepository
	jwtService    *auth.JWTService
	startingBonus int
	logger        *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	startingBonus int,
	logger *zap.Logger,
) *AuthService {
	if startingBonus <= 0 {
		startingBonus = identity.DefaultStartingTokens
	}
	return &AuthService{
		userRepo:      userRepo,
		jwtService:    jwtService,
		startingBonus: startingBonus,
		logger:        logger,
	}
}

// SignupInput contains registration parameters
type SignupInput struct {
	Email    string
	FullName string
	Password string
}

// UserInfo is the outward-facing view of an account
type UserInfo struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Tokens   int       `json:"tokens"`
}

// LoginResult contains tokens and user info after authentication
type LoginResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
	User                  UserInfo  `json:"user"`
}

// Signup registers a new account. The user row and the signup bonus ledger
// entry are written in one transaction so the account's balance equals the
// sum of its ledger deltas from the moment it exists.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*UserInfo, error) {
	if len(input.Password) < 8 {
		return nil, shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to hash password")
	}

	user, err := identity.NewUser(input.Email, input.FullName, string(hash))
	if err != nil {
		return nil, err
	}
	user.Tokens = s.startingBonus
	user.Activate()

	entry, err := ledger.NewCredit(user.ID, s.startingBonus, ledger.ReasonSignupBonus, "Signup bonus")
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.CreateWithSignupBonus(ctx, user, entry); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("EMAIL_TAKEN", "An account with this email already exists")
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.Int("starting_tokens", s.startingBonus))

	return &UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Tokens:   user.Tokens,
	}, nil
}

// Login authenticates a user and returns a token pair
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("Login attempt for unknown email", zap.String("email", email))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	if !user.Active {
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account is not active")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	tokenPair, err := s.jwtService.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))

	return &LoginResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
		User: UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Tokens:   user.Tokens,
		},
	}, nil
}

// RefreshToken issues a new token pair from a valid refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			return nil, shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
		default:
			return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
		}
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid user ID in token")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, shared.ErrUserNotFound
	}
	if !user.Active {
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account is no longer active")
	}

	tokenPair, err := s.jwtService.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	return &LoginResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
		User: UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Tokens:   user.Tokens,
		},
	}, nil
}

// GetCurrentUser retrieves the current user's information, including the
// live token balance.
func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Tokens:   user.Tokens,
	}, nil
}
