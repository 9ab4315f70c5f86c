package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"auber_controller/internal/models"
	"auber_controller/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL   = time.Hour
	minPasswordLength = 6
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,32}$`)

var (
	ErrInvalidUsername    = errors.New("username must be 3-32 characters of letters, digits, '.', '_' or '-'")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Identity is what a verified token says about its bearer.
type Identity struct {
	UserID int
	Role   string
}

// CanOperate reports whether the bearer may change programs or drive the instrument.
func (id Identity) CanOperate() bool { return id.Role == models.RoleOperator }

// AuthService registers accounts and issues the tokens that guard the control API.
// The first account ever created is an operator; later ones get signupRole.
type AuthService struct {
	authRepo   repository.Authorization
	signingKey []byte
	tokenTTL   time.Duration
	signupRole string
	now        func() time.Time
}

// NewAuthService uses a random per-process key when signingKey is empty, so tokens
// do not survive a restart.
func NewAuthService(repo repository.Authorization, signingKey string, ttl time.Duration, signupRole string) *AuthService {
	if strings.TrimSpace(signingKey) == "" {
		signingKey = uuid.NewString()
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if !models.ValidRole(signupRole) {
		signupRole = models.RoleViewer
	}
	return &AuthService{
		authRepo:   repo,
		signingKey: []byte(signingKey),
		tokenTTL:   ttl,
		signupRole: signupRole,
		now:        time.Now,
	}
}

func (s *AuthService) SignUp(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return models.User{}, ErrInvalidUsername
	}
	if len(strings.TrimSpace(password)) < minPasswordLength {
		return models.User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	n, err := s.authRepo.Count(ctx)
	if err != nil {
		return models.User{}, err
	}
	role := s.signupRole
	if n == 0 {
		role = models.RoleOperator
	}

	u := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	id, err := s.authRepo.Create(ctx, u)
	if err != nil {
		return models.User{}, err
	}
	u.ID = id
	return u, nil
}

// Claims carries the account id and role inside the token.
type Claims struct {
	jwt.RegisteredClaims
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
}

// GenerateToken does not say whether the username or the password was wrong.
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	u, err := s.authRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: u.ID,
		Role:   u.Role,
	})
	return token.SignedString(s.signingKey)
}

func (s *AuthService) ParseToken(accessToken string) (Identity, error) {
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 || !models.ValidRole(claims.Role) {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}
