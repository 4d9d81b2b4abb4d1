package services

import (
	"log/slog"

	apperrors "github.com/tiback/tiback-client/internal/core/errors"
	"github.com/tiback/tiback-client/internal/core/store"
)

// resource is embedded by the REST-backed services. It reads the bearer
// token from the store and brackets each call with the API flags.
type resource struct {
	store  *store.Store
	logger *slog.Logger
}

func newResource(st *store.Store, logger *slog.Logger, component string) resource {
	return resource{store: st, logger: logger.With("component", component)}
}

// begin marks a request in flight and returns the token to send with it.
func (r resource) begin() (string, error) {
	token := r.store.State().Auth.Token()
	if token == "" {
		r.store.Dispatch(store.APIError(apperrors.ErrNoSession.Error()))
		return "", apperrors.ErrNoSession
	}
	r.store.Dispatch(store.APILoading(true))
	return token, nil
}

// fail records err in the API state and hands it back to the caller.
func (r resource) fail(op string, err error) error {
	r.logger.Warn(op+" failed", "error", err)
	r.store.Dispatch(store.APIError(failureMessage(err, op+" failed")))
	return err
}

// done clears the loading flag for calls that do not touch a collection.
func (r resource) done() {
	r.store.Dispatch(store.APILoading(false))
}
