// Package auth is the identity collaborator: registration, sign-in, token verification and the
// observable current session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
)

const (
	issuer           = "readx"
	defaultTokenTTL  = 24 * time.Hour
	defaultMaxFailed = 5
	// one failed attempt is forgiven per interval
	failureRefill = time.Minute
)

// Users is the account storage the service needs. *repositories.UserRepository satisfies it.
type Users interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateYearlyGoal(ctx context.Context, id string, goal int) error
}

// Service issues and verifies HS256 session tokens for password accounts.
type Service struct {
	users       Users
	secret      []byte
	ttl         time.Duration
	defaultGoal int
	maxFailed   int
	cost        int
	now         func() time.Time
	logger      *log.Logger

	mu       sync.Mutex
	failures map[string]*rate.Limiter
}

// Option configures a [Service].
type Option func(*Service)

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now for token timestamps and throttling.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService creates a [Service]. The signing secret is required.
func NewService(users Users, cfg shared.AuthConfig, opts ...Option) (*Service, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("%w: auth secret is required", shared.ErrInvalidConfig)
	}

	s := &Service{
		users:       users,
		secret:      []byte(cfg.Secret),
		ttl:         cfg.TokenTTL(),
		defaultGoal: cfg.DefaultYearlyGoal,
		maxFailed:   cfg.MaxFailedLogins,
		cost:        bcrypt.DefaultCost,
		now:         time.Now,
		logger:      shared.DiscardLogger(),
		failures:    make(map[string]*rate.Limiter),
	}
	if s.ttl <= 0 {
		s.ttl = defaultTokenTTL
	}
	if s.defaultGoal < 1 {
		s.defaultGoal = 24
	}
	if s.maxFailed < 1 {
		s.maxFailed = defaultMaxFailed
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Signup registers an account and signs it in.
func (s *Service) Signup(ctx context.Context, email, password, name string) (*models.Session, error) {
	email = normalizeEmail(email)
	if !ValidEmail(email) {
		return nil, newError(CodeInvalidEmail, "malformed email address")
	}
	if len(strings.TrimSpace(password)) < MinPasswordLength {
		return nil, newError(CodeWeakPassword, "password is too short")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		DisplayName:  strings.TrimSpace(name),
		PasswordHash: string(hash),
		YearlyGoal:   s.defaultGoal,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrEmailTaken) {
			return nil, newError(CodeEmailInUse, err.Error())
		}
		return nil, err
	}

	s.logger.Info("account created", "user", user.ID)
	return s.issue(user)
}

// Login checks credentials. Repeated failures for one email are throttled with too-many-requests.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Session, error) {
	email = normalizeEmail(email)
	limiter := s.limiter(email)

	if limiter.TokensAt(s.now()) < 1 {
		return nil, newError(CodeTooManyRequests, "too many failed sign-in attempts")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, shared.ErrUserNotFound) {
		limiter.AllowN(s.now(), 1)
		return nil, newError(CodeInvalidCredential, "unknown account")
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		limiter.AllowN(s.now(), 1)
		s.logger.Debug("failed sign-in", "user", user.ID)
		return nil, newError(CodeInvalidCredential, "password mismatch")
	}

	s.mu.Lock()
	delete(s.failures, email)
	s.mu.Unlock()

	return s.issue(user)
}

// Verify parses a session token and reloads its account.
func (s *Service) Verify(ctx context.Context, token string) (*models.Session, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, newError(CodeInvalidToken, err.Error())
	}

	user, err := s.users.Get(ctx, claims.Subject)
	if errors.Is(err, shared.ErrUserNotFound) {
		return nil, newError(CodeUserNotFound, "account no longer exists")
	}
	if err != nil {
		return nil, err
	}

	sess := sessionFor(user)
	sess.Token = token
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// UpdateYearlyGoal sets the account's reading goal. n must be at least 1.
func (s *Service) UpdateYearlyGoal(ctx context.Context, uid string, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: yearly goal must be at least 1", shared.ErrValidation)
	}
	return s.users.UpdateYearlyGoal(ctx, uid, n)
}

func (s *Service) issue(user *models.User) (*models.Session, error) {
	now := s.now()
	expires := now.Add(s.ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	sess := sessionFor(user)
	sess.Token = signed
	sess.ExpiresAt = expires
	return sess, nil
}

func (s *Service) limiter(email string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.failures[email]
	if !ok {
		l = rate.NewLimiter(rate.Every(failureRefill), s.maxFailed)
		s.failures[email] = l
	}
	return l
}

func sessionFor(u *models.User) *models.Session {
	return &models.Session{
		UID:         u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		YearlyGoal:  u.YearlyGoal,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
