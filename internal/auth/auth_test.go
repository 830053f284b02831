package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/repositories"
	"github.com/desertthunder/readx/internal/shared"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newService(t *testing.T) (*Service, *repositories.UserRepository, *clock) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	require.NoError(t, shared.RunMigrations(db))
	t.Cleanup(func() { db.Close() })

	users := repositories.NewUserRepository(db)
	clk := &clock{now: time.Now().Truncate(time.Second)}
	cfg := shared.AuthConfig{Secret: "test-secret", TokenTTLHours: 1, DefaultYearlyGoal: 24, MaxFailedLogins: 3}

	svc, err := NewService(users, cfg, WithClock(clk.Now), WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	return svc, users, clk
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(nil, shared.AuthConfig{})
	assert.ErrorIs(t, err, shared.ErrInvalidConfig)
}

func TestSignup(t *testing.T) {
	svc, users, _ := newService(t)
	ctx := context.Background()

	sess, err := svc.Signup(ctx, "  Reader@Example.com ", "secret1", " Reader ")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.UID)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "reader@example.com", sess.Email)
	assert.Equal(t, "Reader", sess.DisplayName)
	assert.Equal(t, 24, sess.YearlyGoal)

	stored, err := users.Get(ctx, sess.UID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	tests := []struct {
		name            string
		email, password string
		code            Code
		sentinel        error
	}{
		{"duplicate email", "reader@example.com", "secret1", CodeEmailInUse, shared.ErrEmailTaken},
		{"malformed email", "not-an-email", "secret1", CodeInvalidEmail, shared.ErrValidation},
		{"short password", "new@example.com", " 12345 ", CodeWeakPassword, shared.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.email, tt.password, "X")
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _, clk := newService(t)
	ctx := context.Background()

	created, err := svc.Signup(ctx, "reader@example.com", "secret1", "Reader")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		sess, err := svc.Login(ctx, "READER@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, created.UID, sess.UID)
		assert.Equal(t, clk.Now().Add(time.Hour), sess.ExpiresAt)
	})

	t.Run("wrong password and unknown account look the same", func(t *testing.T) {
		_, err := svc.Login(ctx, "reader@example.com", "nope-nope")
		assert.Equal(t, CodeInvalidCredential, CodeOf(err))
		assert.Equal(t, "Invalid email or password", Message(err))

		_, err = svc.Login(ctx, "ghost@example.com", "secret1")
		assert.Equal(t, CodeInvalidCredential, CodeOf(err))
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	})

	t.Run("repeated failures are throttled", func(t *testing.T) {
		for range 3 {
			_, err := svc.Login(ctx, "throttle@example.com", "wrong-pass")
			require.Equal(t, CodeInvalidCredential, CodeOf(err))
		}

		_, err := svc.Login(ctx, "throttle@example.com", "wrong-pass")
		assert.Equal(t, CodeTooManyRequests, CodeOf(err))
		assert.Equal(t, "Too many attempts. Try again later", Message(err))

		clk.Advance(time.Minute)
		_, err = svc.Login(ctx, "throttle@example.com", "wrong-pass")
		assert.Equal(t, CodeInvalidCredential, CodeOf(err))
	})
}

func TestVerify(t *testing.T) {
	svc, users, clk := newService(t)
	ctx := context.Background()

	sess, err := svc.Signup(ctx, "reader@example.com", "secret1", "Reader")
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		got, err := svc.Verify(ctx, sess.Token)
		require.NoError(t, err)
		assert.Equal(t, sess.UID, got.UID)
		assert.Equal(t, sess.Token, got.Token)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := svc.Verify(ctx, sess.Token+"x")
		assert.Equal(t, CodeInvalidToken, CodeOf(err))
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := NewService(users, shared.AuthConfig{Secret: "different"}, WithClock(clk.Now))
		require.NoError(t, err)
		_, err = other.Verify(ctx, sess.Token)
		assert.Equal(t, CodeInvalidToken, CodeOf(err))
	})

	t.Run("deleted account", func(t *testing.T) {
		doomed, err := svc.Signup(ctx, "doomed@example.com", "secret1", "Doomed")
		require.NoError(t, err)
		require.NoError(t, users.Delete(ctx, doomed.UID))

		_, err = svc.Verify(ctx, doomed.Token)
		assert.Equal(t, CodeUserNotFound, CodeOf(err))
	})

	t.Run("expired", func(t *testing.T) {
		clk.Advance(2 * time.Hour)
		_, err := svc.Verify(ctx, sess.Token)
		assert.Equal(t, CodeInvalidToken, CodeOf(err))
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	})
}

func TestUpdateYearlyGoal(t *testing.T) {
	svc, users, _ := newService(t)
	ctx := context.Background()

	sess, err := svc.Signup(ctx, "reader@example.com", "secret1", "Reader")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateYearlyGoal(ctx, sess.UID, 52))
	u, err := users.Get(ctx, sess.UID)
	require.NoError(t, err)
	assert.Equal(t, 52, u.YearlyGoal)

	assert.ErrorIs(t, svc.UpdateYearlyGoal(ctx, sess.UID, 0), shared.ErrValidation)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "This email is already registered", Message(newError(CodeEmailInUse, "x")))
	assert.Equal(t, "Invalid email address", Message(newError(CodeInvalidEmail, "x")))
	assert.Equal(t, "Password should be at least 6 characters", Message(newError(CodeWeakPassword, "x")))
	assert.Equal(t, "raw detail", Message(newError("auth/other", "raw detail")))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Empty(t, Message(nil))
}

func TestValidation(t *testing.T) {
	t.Run("login", func(t *testing.T) {
		assert.NoError(t, ValidateLogin("a@b.co", "secret1"))

		err := ValidateLogin("", "123")
		var fe FieldErrors
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "Email is required", fe[FieldEmail])
		assert.Equal(t, "Password should contain at least 6 characters", fe[FieldPassword])
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, "Email is required", Message(err))

		err = ValidateLogin("a b@c.d", "secret1")
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "Please enter a valid email address", fe[FieldEmail])
	})

	t.Run("signup", func(t *testing.T) {
		assert.NoError(t, ValidateSignup("Al", "a@b.co", "secret1", " secret1 "))

		err := ValidateSignup("A", "a@b.co", "secret1", "")
		var fe FieldErrors
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "Name should contain at least 2 characters", fe[FieldName])
		assert.Equal(t, "Please confirm your password", fe[FieldConfirmPassword])
		assert.NotContains(t, fe, FieldEmail)

		err = ValidateSignup("Al", "a@b.co", "secret1", "secret2")
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "Passwords do not match", fe[FieldConfirmPassword])
		assert.Len(t, fe, 1)
	})
}

type stubIdentity struct {
	sess *models.Session
	err  error
	goal int
}

func (s *stubIdentity) Signup(context.Context, string, string, string) (*models.Session, error) {
	return s.sess, s.err
}

func (s *stubIdentity) Login(context.Context, string, string) (*models.Session, error) {
	return s.sess, s.err
}

func (s *stubIdentity) Verify(context.Context, string) (*models.Session, error) {
	return s.sess, s.err
}

func (s *stubIdentity) UpdateYearlyGoal(_ context.Context, _ string, n int) error {
	s.goal = n
	return s.err
}

func TestProvider(t *testing.T) {
	id := &stubIdentity{sess: &models.Session{UID: "u1", Email: "a@b.co", YearlyGoal: 24}}
	p := NewProvider(id)
	ctx := context.Background()

	var seen []*models.Session
	cancel := p.Observe(func(s *models.Session) { seen = append(seen, s) })

	require.Len(t, seen, 1)
	assert.Nil(t, seen[0], "observers start with the current state")

	assert.ErrorIs(t, p.UpdateYearlyGoal(ctx, 10), shared.ErrNotAuthenticated)

	_, err := p.Login(ctx, "a@b.co", "secret1")
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, "u1", seen[1].UID)

	require.NoError(t, p.UpdateYearlyGoal(ctx, 30))
	assert.Equal(t, 30, id.goal)
	assert.Equal(t, 30, p.Current().YearlyGoal)
	require.Len(t, seen, 3)

	p.Logout()
	assert.Nil(t, p.Current())
	require.Len(t, seen, 4)
	assert.Nil(t, seen[3])

	p.Logout()
	assert.Len(t, seen, 4, "signing out twice notifies once")

	cancel()
	_, err = p.Restore(ctx, "token")
	require.NoError(t, err)
	assert.Len(t, seen, 4)
	assert.NotNil(t, p.Current())

	id.err = errors.New("boom")
	p.Logout()
	_, err = p.Login(ctx, "a@b.co", "x")
	assert.Error(t, err)
	assert.Nil(t, p.Current())
}
