package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"portalgate/pkg/accounts"
)

type ctxAccountKey struct{}

// AccountResolver attributes a request to an account. Errors that carry a
// StatusCode are client rejections; anything else is an internal fault.
type AccountResolver interface {
	Resolve(r *http.Request) (accounts.Account, error)
}

type statusError interface {
	error
	StatusCode() int
}

// RequireAccount resolves the account before next runs and rejects the
// request otherwise.
func RequireAccount(res AccountResolver, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, err := res.Resolve(r)
			if err != nil {
				var se statusError
				if errors.As(err, &se) {
					WriteError(w, se.StatusCode(), se.Error())
					return
				}
				log.Errorw("account resolution failed", "err", err, "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()))
				WriteError(w, http.StatusInternalServerError, "internal error")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), a)))
		})
	}
}

func WithAccount(ctx context.Context, a accounts.Account) context.Context {
	return context.WithValue(ctx, ctxAccountKey{}, a)
}

// AccountFrom returns the account attached by RequireAccount.
func AccountFrom(ctx context.Context) (accounts.Account, bool) {
	a, ok := ctx.Value(ctxAccountKey{}).(accounts.Account)
	return a, ok
}
