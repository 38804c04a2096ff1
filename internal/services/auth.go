package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/quiltline/patternvault-backend/internal/data/repos/auth"
	types "github.com/quiltline/patternvault-backend/internal/domain"
	pkgerrors "github.com/quiltline/patternvault-backend/internal/pkg/errors"
	"github.com/quiltline/patternvault-backend/internal/platform/dbctx"
	"github.com/quiltline/patternvault-backend/internal/platform/logger"
	"github.com/quiltline/patternvault-backend/internal/requestdata"
)

// AdminClaims is the JWT payload issued on login. Role travels in the token
// so the middleware can gate admin routes without a DB read.
type AdminClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	ParseToken(tokenString string) (*requestdata.AdminIdentity, error)
	AccessTTL() time.Duration
}

type authService struct {
	log          *logger.Logger
	adminRepo    auth.AdminUserRepo
	jwtSecretKey string
	accessTTL    time.Duration
}

func NewAuthService(log *logger.Logger, adminRepo auth.AdminUserRepo, jwtSecretKey string, accessTTL time.Duration) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		log:          serviceLog,
		adminRepo:    adminRepo,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
	}
}

// Login verifies credentials and issues an access token. Unknown email and
// wrong password collapse into the same error so callers cannot probe for
// registered accounts.
func (as *authService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := as.adminRepo.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return "", pkgerrors.ErrUnauthorized
		}
		return "", fmt.Errorf("load admin user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", pkgerrors.ErrUnauthorized
	}
	return as.generateAccessToken(user)
}

func (as *authService) generateAccessToken(user *types.AdminUser) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (as *authService) ParseToken(tokenString string) (*requestdata.AdminIdentity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*AdminClaims)
	if !ok || !parsed.Valid {
		return nil, pkgerrors.ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	return &requestdata.AdminIdentity{ID: userID, Email: claims.Email, Role: claims.Role}, nil
}

func (as *authService) AccessTTL() time.Duration {
	return as.accessTTL
}
