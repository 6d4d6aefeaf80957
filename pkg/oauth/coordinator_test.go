package oauth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticReceiver(values map[string]string, err error) CodeReceiver {
	return CodeReceiverFunc(func(_ context.Context, _ AuthorizeMode, req *AuthorizationRequest) (map[string]string, error) {
		if _, buildErr := req.URL("http://localhost:9999/"); buildErr != nil {
			return nil, buildErr
		}
		return values, err
	})
}

func noURL(redirect string) (string, error) { return "https://provider.example.com/auth", nil }

func TestCoordinator_Authorize(t *testing.T) {
	ctx := context.Background()

	t.Run("returns callback values and effective redirect", func(t *testing.T) {
		c := NewCoordinator(WithReceiver(AuthorizeModeTestPassThrough, staticReceiver(map[string]string{"code": "c"}, nil)))
		s := &Settings{AuthorizeMode: AuthorizeModeTestPassThrough}

		cb, err := c.Authorize(ctx, s, noURL)
		require.NoError(t, err)
		assert.Equal(t, "c", cb.Values["code"])
		assert.Equal(t, "http://localhost:9999/", cb.RedirectURL)
	})

	t.Run("provider error becomes AuthorizationError", func(t *testing.T) {
		c := NewCoordinator(WithReceiver(AuthorizeModeTestPassThrough,
			staticReceiver(map[string]string{"error": "access_denied", "error_description": "user said no"}, nil)))
		s := &Settings{AuthorizeMode: AuthorizeModeTestPassThrough}

		_, err := c.Authorize(ctx, s, noURL)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAuthorizationDenied)

		var authErr *AuthorizationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "access_denied", authErr.Code)
		assert.Equal(t, "user said no", authErr.Description)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := NewCoordinator().Authorize(ctx, &Settings{}, noURL)
		assert.ErrorIs(t, err, ErrUnsupportedMode)
	})

	t.Run("receiver timeout", func(t *testing.T) {
		blocking := CodeReceiverFunc(func(ctx context.Context, _ AuthorizeMode, _ *AuthorizationRequest) (map[string]string, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		c := NewCoordinator(WithReceiver(AuthorizeModeLocalhostServer, blocking))
		s := &Settings{AuthorizeMode: AuthorizeModeLocalhostServer, CallbackTimeout: 20 * time.Millisecond}

		_, err := c.Authorize(ctx, s, noURL)
		assert.ErrorIs(t, err, ErrAuthorizationTimeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("cancellation propagates", func(t *testing.T) {
		blocking := CodeReceiverFunc(func(ctx context.Context, _ AuthorizeMode, _ *AuthorizationRequest) (map[string]string, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		c := NewCoordinator(WithReceiver(AuthorizeModeLocalhostServer, blocking))
		s := &Settings{AuthorizeMode: AuthorizeModeLocalhostServer}

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.Authorize(cctx, s, noURL)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.Is(err, ErrAuthorizationTimeout))
	})

	t.Run("receiver errors pass through", func(t *testing.T) {
		boom := errors.New("boom")
		c := NewCoordinator(WithReceiver(AuthorizeModeOutOfBand, staticReceiver(nil, boom)))
		_, err := c.Authorize(ctx, &Settings{AuthorizeMode: AuthorizeModeOutOfBand}, noURL)
		assert.ErrorIs(t, err, boom)
	})
}

func TestCoordinator_Gate(t *testing.T) {
	c := NewCoordinator()
	s := &Settings{}

	t.Run("serialises callers", func(t *testing.T) {
		var inside, maxInside atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := c.Gate(context.Background(), s, func(context.Context) error {
					n := inside.Add(1)
					for {
						m := maxInside.Load()
						if n <= m || maxInside.CompareAndSwap(m, n) {
							break
						}
					}
					time.Sleep(time.Millisecond)
					inside.Add(-1)
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), maxInside.Load())
	})

	t.Run("releases on error and panic", func(t *testing.T) {
		boom := errors.New("boom")
		err := c.Gate(context.Background(), s, func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)

		assert.Panics(t, func() {
			_ = c.Gate(context.Background(), s, func(context.Context) error { panic("oops") })
		})

		assert.True(t, lockFree(s), "lock must be free again")
	})

	t.Run("honours cancellation while waiting", func(t *testing.T) {
		release, err := s.Acquire(context.Background())
		require.NoError(t, err)
		defer release()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		called := false
		err = c.Gate(ctx, s, func(context.Context) error { called = true; return nil })
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, called)
	})
}
