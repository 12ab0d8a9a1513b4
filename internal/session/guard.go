package session

import (
	"context"

	"agentdesk/internal/apierror"
)

// Guard is the single authentication check that callers gate protected
// operations on.
type Guard struct {
	facade *Facade
}

// NewGuard creates a guard over facade.
func NewGuard(facade *Facade) *Guard {
	return &Guard{facade: facade}
}

// Require returns the signed-in user, running the first authentication
// check if it has not run yet. Without a session it returns
// *apierror.AuthRequiredError naming operation.
func (g *Guard) Require(ctx context.Context, operation string) (User, error) {
	if !g.facade.IsInitialized() {
		if err := g.facade.Init(ctx); err != nil {
			return User{}, err
		}
	}
	user, ok := g.facade.User()
	if !ok || !g.facade.IsAuthenticated() {
		return User{}, &apierror.AuthRequiredError{Operation: operation}
	}
	return user, nil
}
