package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgAuth "github.com/angelmondragon/nexusshop-storefront/pkg/auth"
	"github.com/angelmondragon/nexusshop-storefront/pkg/auth/session"
	"github.com/angelmondragon/nexusshop-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/nexusshop-storefront/pkg/errors"
	"github.com/angelmondragon/nexusshop-storefront/pkg/logger"
	"github.com/angelmondragon/nexusshop-storefront/pkg/mocknet"
	"github.com/angelmondragon/nexusshop-storefront/pkg/security"
	"github.com/go-playground/validator/v10"
)

const (
	DemoEmail    = "demo@nexusshop.com"
	DemoPassword = "demo123"

	exampleDomain     = "@example.com"
	minPasswordLength = 6
	resetTokenBytes   = 24

	ProviderPassword = "password"
	ProviderGoogle   = "google"
	ProviderGitHub   = "github"
)

var (
	ErrInvalidCredentials = pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	ErrNotAuthenticated   = pkgerrors.New(pkgerrors.CodeUnauthorized, "not signed in")
	ErrPasswordMismatch   = pkgerrors.New(pkgerrors.CodeValidation, "passwords do not match")
	ErrUnknownProvider    = pkgerrors.New(pkgerrors.CodeValidation, "unknown oauth provider")
	ErrEmailRegistered    = pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
)

type providerProfile struct {
	email string
	name  string
}

var oauthProfiles = map[string]providerProfile{
	ProviderGoogle: {email: "google.user@gmail.com", name: "Google User"},
	ProviderGitHub: {email: "github.user@github.com", name: "GitHub User"},
}

type blobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type refreshSessions interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	NeedsRehash(encoded string) bool
}

// Latencies are the simulated round trips per operation group.
type Latencies struct {
	Login    time.Duration
	OAuth    time.Duration
	Profile  time.Duration
	Password time.Duration
}

func LatenciesFromConfig(cfg config.SimulationConfig) Latencies {
	return Latencies{
		Login:    cfg.LoginLatency,
		OAuth:    cfg.OAuthLatency,
		Profile:  cfg.ProfileLatency,
		Password: cfg.PasswordLatency,
	}
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Store      blobStore
	StorageKey string
	Sessions   refreshSessions
	Hasher     passwordHasher
	JWTConfig  config.JWTConfig
	Simulator  *mocknet.Simulator
	Latencies  Latencies
	Logger     *logger.Logger
	// OnLogout runs after the session is cleared, typically to forget the cart.
	OnLogout func(ctx context.Context)
}

type account struct {
	user         User
	passwordHash string
}

// Service is the mocked authentication collaborator. It owns the single
// shopper session.
type Service struct {
	store    blobStore
	key      string
	sessions refreshSessions
	hasher   passwordHasher
	jwtCfg   config.JWTConfig
	sim      *mocknet.Simulator
	latency  Latencies
	logg     *logger.Logger
	onLogout func(ctx context.Context)
	validate *validator.Validate
	now      func() time.Time

	mu          sync.Mutex
	state       State
	accounts    map[string]account
	resetTokens map[string]string
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("auth store is required")
	}
	if strings.TrimSpace(params.StorageKey) == "" {
		return nil, fmt.Errorf("auth storage key is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	sim := params.Simulator
	if sim == nil {
		sim = mocknet.Instant()
	}
	return &Service{
		store:       params.Store,
		key:         params.StorageKey,
		sessions:    params.Sessions,
		hasher:      params.Hasher,
		jwtCfg:      params.JWTConfig,
		sim:         sim,
		latency:     params.Latencies,
		logg:        params.Logger,
		onLogout:    params.OnLogout,
		validate:    validator.New(),
		now:         func() time.Time { return time.Now().UTC() },
		accounts:    make(map[string]account),
		resetTokens: make(map[string]string),
	}, nil
}

// Current returns a copy of the session.
func (s *Service) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Login authenticates email and password. A cancelled or failed call leaves
// the session untouched.
func (s *Service) Login(ctx context.Context, email, password string) (State, error) {
	user, err := mocknet.Call(ctx, s.sim.WithLatency(s.latency.Login), "auth.login", func(context.Context) (User, error) {
		return s.authenticate(email, password)
	})
	if err != nil {
		return State{}, err
	}
	return s.establish(ctx, user, ProviderPassword)
}

// LoginWithProvider signs in with a canned oauth identity.
func (s *Service) LoginWithProvider(ctx context.Context, provider string) (State, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	profile, ok := oauthProfiles[name]
	if !ok {
		return State{}, ErrUnknownProvider.WithDetails(map[string]any{"provider": provider})
	}
	user, err := mocknet.Call(ctx, s.sim.WithLatency(s.latency.OAuth), "auth.oauth", func(context.Context) (User, error) {
		return newMockUser(profile.email, profile.name, s.now()), nil
	})
	if err != nil {
		return State{}, err
	}
	return s.establish(ctx, user, name)
}

// Register creates an in-memory account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (State, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid registration")
	}
	if in.Password != in.ConfirmPassword {
		return State{}, ErrPasswordMismatch.WithDetails(map[string]string{"confirmPassword": "must match password"})
	}

	user, err := mocknet.Call(ctx, s.sim.WithLatency(s.latency.Login), "auth.register", func(context.Context) (User, error) {
		email := normalizeEmail(in.Email)
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return User{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.accounts[email]; exists || email == DemoEmail {
			return User{}, ErrEmailRegistered
		}
		user := newMockUser(in.Email, in.Name, s.now())
		s.accounts[email] = account{user: user, passwordHash: hash}
		return user, nil
	})
	if err != nil {
		return State{}, err
	}
	return s.establish(ctx, user, ProviderPassword)
}

// Logout clears the session, removes the stored auth blob and runs the
// logout hook.
func (s *Service) Logout(ctx context.Context) {
	s.mu.Lock()
	token := s.state.Token
	s.state = State{}
	s.mu.Unlock()

	if token != "" {
		if claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, token); err == nil {
			if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "auth.revoke_failed")
			}
		}
	}
	if err := s.store.Delete(ctx, s.key); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "key", s.key), "auth.delete_failed", err)
	}
	if s.onLogout != nil {
		s.onLogout(ctx)
	}
	s.logg.Info(ctx, "auth.logged_out")
}

// Refresh reports whether a token exists and rotates the refresh token.
// Expired access tokens are accepted.
func (s *Service) Refresh(ctx context.Context) (bool, error) {
	current := s.Current()
	if current.Token == "" || current.User == nil {
		return false, nil
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, current.Token)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "auth.refresh_unreadable_token")
		return false, nil
	}

	accessID, refreshToken, err := s.sessions.Rotate(ctx, claims.ID, current.RefreshToken)
	if errors.Is(err, session.ErrInvalidRefreshToken) {
		// the refresh mapping does not survive a restart of the in-memory session store
		accessID = session.NewAccessID()
		refreshToken, err = s.sessions.Generate(ctx, accessID)
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate refresh token")
	}

	token, err := s.mint(*current.User, claims.Provider, accessID)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.state.Token != current.Token {
		s.mu.Unlock()
		return false, nil
	}
	s.state.Token = token
	s.state.RefreshToken = refreshToken
	snapshot := s.state.clone()
	s.mu.Unlock()

	s.save(ctx, snapshot)
	return true, nil
}

// UpdateProfile merges changes into the signed-in user.
func (s *Service) UpdateProfile(ctx context.Context, update ProfileUpdate) (State, error) {
	if err := s.validate.Struct(update); err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid profile update")
	}
	if s.Current().User == nil {
		return State{}, ErrNotAuthenticated
	}
	err := mocknet.Do(ctx, s.sim.WithLatency(s.latency.Profile), "auth.profile", func(context.Context) error {
		return nil
	})
	if err != nil {
		return State{}, err
	}

	s.mu.Lock()
	if s.state.User == nil {
		s.mu.Unlock()
		return State{}, ErrNotAuthenticated
	}
	user := *s.state.User
	applyProfileUpdate(&user, update)
	s.state.User = &user
	if acct, ok := s.accounts[normalizeEmail(user.Email)]; ok {
		acct.user = user
		s.accounts[normalizeEmail(user.Email)] = acct
	}
	snapshot := s.state.clone()
	s.mu.Unlock()

	s.save(s.logg.WithUserID(ctx, user.ID), snapshot)
	return snapshot, nil
}

// ForgotPassword issues a reset token for registered accounts. Unknown
// addresses succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	return mocknet.Do(ctx, s.sim.WithLatency(s.latency.Password), "auth.password_forgot", func(ctx context.Context) error {
		normalized := normalizeEmail(email)
		s.mu.Lock()
		_, registered := s.accounts[normalized]
		s.mu.Unlock()
		if !registered {
			return nil
		}
		token, err := security.GenerateResetToken(resetTokenBytes)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue reset token")
		}
		s.mu.Lock()
		s.resetTokens[token] = normalized
		s.mu.Unlock()
		s.logg.Debug(s.logg.WithField(ctx, "email", normalized), "auth.reset_token_issued")
		return nil
	})
}

// ResetPassword consumes a reset token. Tokens that were never issued are
// accepted without effect.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "password is too short").
			WithDetails(map[string]string{"password": fmt.Sprintf("must be at least %d", minPasswordLength)})
	}
	return mocknet.Do(ctx, s.sim.WithLatency(s.latency.Password), "auth.password_reset", func(context.Context) error {
		s.mu.Lock()
		email, ok := s.resetTokens[token]
		if ok {
			delete(s.resetTokens, token)
		}
		s.mu.Unlock()
		if !ok {
			return nil
		}
		return s.setPassword(email, password)
	})
}

// ChangePassword verifies the current password for registered accounts and
// stores the new one.
func (s *Service) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	current := s.Current()
	if current.User == nil {
		return ErrNotAuthenticated
	}
	if len(newPassword) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "password is too short").
			WithDetails(map[string]string{"newPassword": fmt.Sprintf("must be at least %d", minPasswordLength)})
	}
	email := normalizeEmail(current.User.Email)
	return mocknet.Do(ctx, s.sim.WithLatency(s.latency.Password), "auth.password_change", func(context.Context) error {
		s.mu.Lock()
		acct, registered := s.accounts[email]
		s.mu.Unlock()
		if !registered {
			return nil
		}
		ok, err := s.hasher.Verify(currentPassword, acct.passwordHash)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
		}
		if !ok {
			return ErrInvalidCredentials
		}
		return s.setPassword(email, newPassword)
	})
}

func (s *Service) authenticate(email, password string) (User, error) {
	trimmed := strings.TrimSpace(email)
	normalized := normalizeEmail(email)
	now := s.now()

	if normalized == DemoEmail && password == DemoPassword {
		return newMockUser(DemoEmail, "Demo User", now), nil
	}

	s.mu.Lock()
	acct, registered := s.accounts[normalized]
	s.mu.Unlock()
	if registered {
		ok, err := s.hasher.Verify(password, acct.passwordHash)
		if err != nil {
			return User{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
		}
		if !ok {
			return User{}, ErrInvalidCredentials
		}
		if s.hasher.NeedsRehash(acct.passwordHash) {
			if rehashed, err := s.hasher.Hash(password); err == nil {
				acct.passwordHash = rehashed
			}
		}
		user := acct.user
		user.LastLogin = now
		s.mu.Lock()
		acct.user = user
		s.accounts[normalized] = acct
		s.mu.Unlock()
		return user, nil
	}

	if strings.HasSuffix(normalized, exampleDomain) && len(password) >= minPasswordLength {
		return newMockUser(trimmed, localPart(trimmed), now), nil
	}
	return User{}, ErrInvalidCredentials
}

func (s *Service) establish(ctx context.Context, user User, provider string) (State, error) {
	accessID := session.NewAccessID()
	token, err := s.mint(user, provider, accessID)
	if err != nil {
		return State{}, err
	}
	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	s.mu.Lock()
	s.state = State{User: &user, Token: token, RefreshToken: refreshToken, IsAuthenticated: true}
	snapshot := s.state.clone()
	s.mu.Unlock()

	ctx = s.logg.WithUserID(ctx, user.ID)
	s.save(ctx, snapshot)
	s.logg.Info(s.logg.WithField(ctx, "provider", provider), "auth.signed_in")
	return snapshot, nil
}

func (s *Service) mint(user User, provider, accessID string) (string, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     user.Role,
		Provider: provider,
		JTI:      accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}

func (s *Service) setPassword(email, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	if !ok {
		return nil
	}
	acct.passwordHash = hash
	s.accounts[email] = acct
	return nil
}

func applyProfileUpdate(user *User, update ProfileUpdate) {
	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Avatar != nil {
		user.Avatar = strings.TrimSpace(*update.Avatar)
	}
	if p := update.Preferences; p != nil {
		if p.Theme != nil {
			user.Preferences.Theme = *p.Theme
		}
		if p.Notifications != nil {
			user.Preferences.Notifications = *p.Notifications
		}
		if p.Newsletter != nil {
			user.Preferences.Newsletter = *p.Newsletter
		}
	}
}
