package auth

import (
	"context"
	"errors"

	"ms-visitors/internal/models"
)

// UserLookup loads an operator by id.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// LocalVerifier accepts tokens issued by this service. The user is reloaded
// on every call so deactivation and role changes apply immediately.
type LocalVerifier struct {
	Tokens *TokenIssuer
	Users  UserLookup
}

func (v *LocalVerifier) Verify(ctx context.Context, rawToken string) (models.Identity, error) {
	claims, err := v.Tokens.Parse(rawToken)
	if err != nil {
		return models.Identity{}, err
	}
	user, err := v.Users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return models.Identity{}, err
	}
	if !user.IsActive {
		return models.Identity{}, errors.New("user is inactive")
	}
	return models.Identity{ID: user.ID, Username: user.Username, Role: user.Role}, nil
}
