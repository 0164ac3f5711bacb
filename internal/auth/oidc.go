package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"ms-visitors/internal/models"
)

// OIDCVerifier accepts ID tokens from an external identity provider. Roles
// come from the Keycloak style realm_access claim.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	return &OIDCVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

type oidcClaims struct {
	Sub               string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (models.Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return models.Identity{}, fmt.Errorf("invalid token: %w", err)
	}
	var claims oidcClaims
	if err := idToken.Claims(&claims); err != nil {
		return models.Identity{}, fmt.Errorf("failed to parse claims: %w", err)
	}
	username := claims.PreferredUsername
	if username == "" {
		username = claims.Sub
	}
	return models.Identity{ID: claims.Sub, Username: username, Role: highestRole(claims.RealmAccess.Roles)}, nil
}

// highestRole picks the most privileged known role, viewer when none match.
func highestRole(roles []string) models.Role {
	best := models.RoleViewer
	for _, r := range roles {
		switch models.Role(r) {
		case models.RoleAdmin:
			return models.RoleAdmin
		case models.RoleStaff:
			best = models.RoleStaff
		}
	}
	return best
}
