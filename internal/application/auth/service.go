package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-shop-nosql/internal/domain"
	"github.com/go-shop-nosql/internal/pkg/logging"
	"github.com/go-shop-nosql/internal/pkg/validate"
	"go.uber.org/zap"
)

// Result is returned by Register and Login.
type Result struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*Result, error)
	Login(ctx context.Context, req domain.LoginRequest) (*Result, error)
	VerifyToken(token string) (*domain.Identity, error)
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type tokenProvider interface {
	Sign(id domain.Identity) (string, error)
	Verify(token string) (*domain.Identity, error)
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

type service struct {
	repo   userStore
	tokens tokenProvider
	hasher passwordHasher
	now    func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

type ServiceDeps struct {
	UserRepo      userStore
	TokenProvider tokenProvider
	Hasher        passwordHasher
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:   deps.UserRepo,
		tokens: deps.TokenProvider,
		hasher: deps.Hasher,
		now:    time.Now,
	}
}

// normalizeEmail case-folds an address; the result is the user's primary key.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*Result, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		UserID:       req.Email,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: digest,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		return nil, err
	}
	logging.FromContext(ctx).Info("user_registered", zap.String("userId", u.UserID))
	return s.issue(u)
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*Result, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	u, err := s.repo.Get(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		// Equalize timing with the wrong-password path.
		s.hasher.Verify(req.Password, s.dummy())
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(req.Password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issue(u)
}

func (s *service) VerifyToken(token string) (*domain.Identity, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return nil, errors.Join(domain.ErrUnauthorized, err)
	}
	return id, nil
}

func (s *service) issue(u *domain.User) (*Result, error) {
	token, err := s.tokens.Sign(u.Identity())
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Result{Token: token, User: u}, nil
}

func (s *service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.hasher.Hash("not-a-real-password")
	})
	return s.dummyDigest
}
