package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
)

// Session is the capability set the rest of a client application uses.
type Session interface {
	Login(user *domain.User, tokens domain.TokenPair) error
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (domain.TokenPair, error)
	CurrentIdentity() (*domain.User, bool)
}

var _ Session = (*Controller)(nil)

// refreshTimeout bounds a shared refresh once it no longer follows any single
// caller's context.
const refreshTimeout = defaultTimeout

// Controller owns the client session: the identity snapshot, the token pair
// and the lifecycle state. All mutations go through its methods.
type Controller struct {
	api   *API
	store TokenStore
	log   zerolog.Logger

	refreshes singleflight.Group

	mu     sync.RWMutex
	state  State
	user   *domain.User
	tokens domain.TokenPair
	// gen changes whenever the session is replaced or discarded. A refresh
	// only installs its result if gen is unchanged.
	gen uint64
}

func NewController(api *API, store TokenStore, log zerolog.Logger) *Controller {
	return &Controller{api: api, store: store, log: log, state: StateUninitialized}
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Tokens returns the pair currently held.
func (c *Controller) Tokens() domain.TokenPair {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// CurrentIdentity returns a copy of the identity snapshot.
func (c *Controller) CurrentIdentity() (*domain.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateAuthenticated || c.user == nil {
		return nil, false
	}
	return cloneUser(c.user), true
}

// Bootstrap restores a persisted session. With a stored pair it fetches the
// profile, refreshing at most once on a token rejection. A rejected session
// is cleared; a transient failure keeps the stored tokens, resets the state
// to Uninitialized and returns ErrUnavailable so the caller can try again.
func (c *Controller) Bootstrap(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateBootstrapping
	c.mu.Unlock()

	pair, err := c.store.Load()
	if err != nil {
		c.log.Warn().Err(err).Msg("stored session unreadable, starting anonymous")
		return c.clearLocal()
	}
	if pair.Empty() {
		c.setAnonymous()
		return nil
	}

	c.mu.Lock()
	c.tokens = pair
	c.mu.Unlock()

	var user *domain.User
	err = c.Do(ctx, func(ctx context.Context, accessToken string) error {
		var perr error
		user, perr = c.api.Profile(ctx, accessToken)
		return perr
	})
	switch {
	case err == nil:
		c.mu.Lock()
		c.user = user
		c.state = StateAuthenticated
		c.mu.Unlock()
		return nil
	case errors.Is(err, ErrUnavailable):
		c.mu.Lock()
		c.state = StateUninitialized
		c.mu.Unlock()
		return err
	default:
		c.log.Info().Err(err).Msg("stored session rejected, signing out")
		return c.clearLocal()
	}
}

// Login installs a freshly issued session and persists its tokens.
func (c *Controller) Login(user *domain.User, tokens domain.TokenPair) error {
	if user == nil || tokens.Empty() {
		return errors.New("session: login requires an identity and a token pair")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Save(tokens); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	c.gen++
	c.user = cloneUser(user)
	c.tokens = tokens
	c.state = StateAuthenticated
	return nil
}

// Logout discards the session locally and tells the server on a best-effort
// basis.
func (c *Controller) Logout(ctx context.Context) error {
	access := c.Tokens().AccessToken
	err := c.clearLocal()
	if access != "" {
		if nerr := c.api.Logout(ctx, access); nerr != nil {
			c.log.Debug().Err(nerr).Msg("logout notification failed")
		}
	}
	return err
}

// Refresh rotates the token pair. Concurrent callers share one request,
// detached from any single caller's cancellation. A rejected refresh ends the session; a transient failure
// leaves it intact. A refresh that completes after the session was signed
// out or replaced is discarded and reported as ErrUnauthorized.
func (c *Controller) Refresh(ctx context.Context) (domain.TokenPair, error) {
	ch := c.refreshes.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.refresh(rctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.TokenPair{}, res.Err
		}
		return res.Val.(domain.TokenPair), nil
	case <-ctx.Done():
		return domain.TokenPair{}, ctx.Err()
	}
}

func (c *Controller) refresh(ctx context.Context) (domain.TokenPair, error) {
	c.mu.RLock()
	current, gen := c.tokens.RefreshToken, c.gen
	c.mu.RUnlock()
	if current == "" {
		return domain.TokenPair{}, ErrUnauthorized
	}

	pair, err := c.api.Refresh(ctx, current)
	if err != nil {
		if errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.TokenPair{}, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen == gen {
			c.log.Info().Err(err).Msg("refresh rejected, signing out")
			if cerr := c.clearLocked(); cerr != nil {
				c.log.Warn().Err(cerr).Msg("clear rejected session")
			}
		}
		return domain.TokenPair{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		c.log.Debug().Msg("session changed during refresh, discarding rotated pair")
		return domain.TokenPair{}, ErrUnauthorized
	}
	if err := c.store.Save(pair); err != nil {
		c.log.Warn().Err(err).Msg("persist refreshed tokens")
	}
	c.tokens = pair
	return pair, nil
}

// Do runs an authenticated call. When the server rejects the access token,
// Do refreshes once (unless another caller already has) and retries once.
func (c *Controller) Do(ctx context.Context, call func(ctx context.Context, accessToken string) error) error {
	used := c.Tokens().AccessToken
	if used == "" {
		return ErrUnauthorized
	}

	err := call(ctx, used)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	if c.Tokens().AccessToken == used {
		if _, rerr := c.Refresh(ctx); rerr != nil {
			return rerr
		}
	}

	next := c.Tokens().AccessToken
	if next == "" {
		return ErrUnauthorized
	}
	err = call(ctx, next)
	if errors.Is(err, ErrUnauthorized) {
		_ = c.clearLocal()
	}
	return err
}

// Mutate merges a partial identity into the snapshot without a re-fetch.
func (c *Controller) Mutate(patch domain.UserPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return
	}
	next := cloneUser(c.user)
	patch.Apply(next)
	c.user = next
}

// SignIn logs in with a username and password.
func (c *Controller) SignIn(ctx context.Context, username, password string) (*domain.User, error) {
	res, err := c.api.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return res.User, c.Login(res.User, res.Tokens)
}

// SignUp registers a new account and signs it in.
func (c *Controller) SignUp(ctx context.Context, p SignupParams) (*domain.User, error) {
	res, err := c.api.Signup(ctx, p)
	if err != nil {
		return nil, err
	}
	return res.User, c.Login(res.User, res.Tokens)
}

// SignInWithGoogle exchanges a provider token obtained by the caller.
func (c *Controller) SignInWithGoogle(ctx context.Context, providerToken string, profile GoogleProfile) (*domain.User, error) {
	res, err := c.api.GoogleSignIn(ctx, providerToken, profile)
	if err != nil {
		return nil, err
	}
	return res.User, c.Login(res.User, res.Tokens)
}

// SolveProblem toggles a solved problem and updates the snapshot.
func (c *Controller) SolveProblem(ctx context.Context, slug string) ([]string, error) {
	var solved []string
	err := c.Do(ctx, func(ctx context.Context, accessToken string) error {
		var serr error
		solved, serr = c.api.SolveProblem(ctx, accessToken, slug)
		return serr
	})
	if err != nil {
		return nil, err
	}
	c.Mutate(domain.UserPatch{SolvedProblems: solved})
	return solved, nil
}

// UpdateProfile edits the profile and merges the result into the snapshot.
func (c *Controller) UpdateProfile(ctx context.Context, update ProfileUpdate) (*domain.User, error) {
	var user *domain.User
	err := c.Do(ctx, func(ctx context.Context, accessToken string) error {
		var uerr error
		user, uerr = c.api.UpdateProfile(ctx, accessToken, update)
		return uerr
	})
	if err != nil {
		return nil, err
	}
	c.Mutate(domain.UserPatch{Username: &user.Username, Email: &user.Email, FullName: &user.FullName})
	return user, nil
}

func (c *Controller) clearLocal() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearLocked()
}

// clearLocked requires c.mu. The store is cleared under the lock so that a
// concurrent refresh cannot persist a pair after it.
func (c *Controller) clearLocked() error {
	c.setAnonymousLocked()
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

func (c *Controller) setAnonymous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setAnonymousLocked()
}

func (c *Controller) setAnonymousLocked() {
	c.gen++
	c.user = nil
	c.tokens = domain.TokenPair{}
	c.state = StateAnonymous
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.SolvedProblems = append([]string(nil), u.SolvedProblems...)
	return &c
}
