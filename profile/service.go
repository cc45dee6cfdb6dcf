package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"govflow/authz"
)

var (
	// ErrInvalidCredentials signals wrong email or password.
	ErrInvalidCredentials = errors.New("profile: invalid credentials")
	// ErrWeakPassword signals the password doesn't meet requirements.
	ErrWeakPassword = errors.New("profile: password must be at least 8 characters")
)

// Service handles reviewer identity business logic: registration, login
// and bearer-token verification. Tokens carry the stored access level
// and role, the pair that seeds an authz session.
type Service struct {
	repo      Repository
	jwtSecret []byte
}

// LoginResult bundles the token and profile returned after login.
type LoginResult struct {
	Token   string
	Profile Profile
}

// NewService creates a profile service.
func NewService(repo Repository, jwtSecret string) *Service {
	return &Service{repo: repo, jwtSecret: []byte(jwtSecret)}
}

// Register creates a new reviewer profile.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Profile, error) {
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}
	if req.Email == "" || req.FullName == "" {
		return nil, fmt.Errorf("profile: email and full_name are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("profile: hash password: %w", err)
	}

	p, err := s.repo.Create(ctx, CreateParams{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(hash),
		AccessLevel:  authz.ParseAccessLevel(req.AccessLevel),
		Role:         authz.ParseAccountRole(req.Role),
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Login authenticates a reviewer and returns a bearer token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	p, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.generateToken(p)
	if err != nil {
		return LoginResult{}, fmt.Errorf("profile: generate token: %w", err)
	}
	return LoginResult{Token: token, Profile: p}, nil
}

// VerifyToken validates a bearer token and returns the profile id with
// the stored access level/role pair. Unknown claim values collapse to
// the Other variants, so downstream permission checks fail closed.
func (s *Service) VerifyToken(tokenString string) (string, authz.AccessLevel, authz.AccountRole, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", authz.LevelOther, authz.RoleOther, fmt.Errorf("profile: parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", authz.LevelOther, authz.RoleOther, fmt.Errorf("profile: invalid token")
	}

	profileID, ok := claims["profile_id"].(string)
	if !ok || profileID == "" {
		return "", authz.LevelOther, authz.RoleOther, fmt.Errorf("profile: invalid profile_id in token")
	}
	level, _ := claims["access_level"].(string)
	role, _ := claims["role"].(string)

	return profileID, authz.ParseAccessLevel(level), authz.ParseAccountRole(role), nil
}

func (s *Service) generateToken(p Profile) (string, error) {
	claims := jwt.MapClaims{
		"profile_id":   p.ID,
		"access_level": p.AccessLevel.String(),
		"role":         p.Role.String(),
		"exp":          time.Now().Add(24 * time.Hour).Unix(),
		"iat":          time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
