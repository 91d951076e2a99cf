package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"shoestore/internal/auth"
	"shoestore/internal/models"
	"shoestore/internal/policy"
	"shoestore/internal/util"

	"go.uber.org/zap"
)

// UserStore is the persistence the identity provider needs
type UserStore interface {
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User, roleName string) error
}

// TokenIssuer signs principals into bearer tokens
type TokenIssuer interface {
	Issue(p policy.Principal) (string, time.Time, error)
}

// AuthService validates credentials and issues tokens
type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	logger *zap.Logger
}

// NewAuthService creates a new auth service. tokens may be nil when only
// Authenticate is used (web sessions).
func NewAuthService(users UserStore, tokens TokenIssuer) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: util.Named("auth"),
	}
}

// LoginRequest carries API credentials
type LoginRequest struct {
	Login    string `json:"login" form:"login" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// LoginResponse is returned after a successful API login
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    int64     `json:"userId"`
	Login     string    `json:"login"`
	FullName  string    `json:"fullName"`
	Role      string    `json:"role"`
}

// Authenticate checks a login and password and returns the caller's principal
func (s *AuthService) Authenticate(ctx context.Context, login, password string) (policy.Principal, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Authenticate")
	defer span.End()

	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		util.LoginAttemptsTotal.WithLabelValues("rejected").Inc()
		return policy.Principal{}, ErrUnauthenticated
	}

	user, err := s.users.GetUserByLogin(ctx, login)
	if errors.Is(err, ErrNotFound) {
		auth.BurnPasswordCheck(password)
		util.LoginAttemptsTotal.WithLabelValues("rejected").Inc()
		s.logger.Info("Login rejected", zap.String("login", login))
		return policy.Principal{}, ErrUnauthenticated
	}
	if err != nil {
		util.RecordError(span, err)
		util.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return policy.Principal{}, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		util.LoginAttemptsTotal.WithLabelValues("rejected").Inc()
		s.logger.Info("Login rejected", zap.String("login", login))
		return policy.Principal{}, ErrUnauthenticated
	}

	util.LoginAttemptsTotal.WithLabelValues("accepted").Inc()
	return principalOf(user), nil
}

// Login authenticates and issues a bearer token
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	p, err := s.Authenticate(ctx, req.Login, req.Password)
	if err != nil {
		return nil, err
	}

	token, expires, err := s.tokens.Issue(p)
	if err != nil {
		s.logger.Error("Token issue failed", zap.Error(err))
		return nil, err
	}

	s.logger.Info("User logged in", zap.String("login", p.Login), zap.Stringer("role", p.Role))
	return &LoginResponse{
		Token:     token,
		ExpiresAt: expires,
		UserID:    p.UserID,
		Login:     p.Login,
		FullName:  p.FullName,
		Role:      p.Role.String(),
	}, nil
}

// RegisterUser creates an account with a bcrypt-hashed password
func (s *AuthService) RegisterUser(ctx context.Context, login, password, fullName, roleName string) (*models.User, error) {
	login = strings.TrimSpace(login)
	fullName = strings.TrimSpace(fullName)
	switch {
	case login == "" || len(login) > 100:
		return nil, invalidf("login must be 1 to 100 characters")
	case len(password) < 6:
		return nil, invalidf("password must be at least 6 characters")
	case fullName == "" || len(fullName) > 200:
		return nil, invalidf("full name must be 1 to 200 characters")
	}
	if roleName != "" && policy.ParseRole(roleName).String() != roleName {
		return nil, invalidf("unknown role %q", roleName)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Login: login, PasswordHash: hash, FullName: fullName}
	if err := s.users.CreateUser(ctx, user, roleName); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("login", login), zap.String("role", roleName))
	return user, nil
}

func principalOf(u *models.User) policy.Principal {
	return policy.Principal{
		UserID:   u.ID,
		Login:    u.Login,
		FullName: u.FullName,
		Role:     policy.ParseRolePtr(u.RoleName),
	}
}
