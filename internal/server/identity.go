package server

import (
	"log/slog"
	"strings"

	"blogspace/internal/middleware"
	"blogspace/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityRequired rejects requests without a valid bearer token from the
// identity provider and provisions the caller's profile.
func (s *Server) IdentityRequired() fiber.Handler {
	return s.identity(true)
}

// OptionalIdentity resolves the caller when a token is present and lets
// anonymous requests through. A token that is present but invalid is still
// rejected.
func (s *Server) OptionalIdentity() fiber.Handler {
	return s.identity(false)
}

func (s *Server) identity(required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c.Get("Authorization"))
		if tokenString == "" {
			if required {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Authorization required"))
			}
			return c.Next()
		}

		id, err := s.parseIdentity(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		user, err := s.profiles.EnsureProfile(c.UserContext(), id)
		if err != nil {
			return s.respondServiceError(c, err)
		}

		c.Locals("userID", user.ID)
		c.Locals("viewer", user.Viewer())
		c.SetUserContext(middleware.WithUserID(c.UserContext(), user.ID))
		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// parseIdentity verifies an HS256 token and maps its claims onto an Identity.
// Profile claims follow the provider's user_metadata layout.
func (s *Server) parseIdentity(tokenString string) (models.Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.IdentityIssuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.IdentityIssuer))
	}
	if s.config.IdentityAudience != "" {
		opts = append(opts, jwt.WithAudience(s.config.IdentityAudience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(s.config.IdentityJWTSecret), nil
	}, opts...)
	if err != nil {
		return models.Identity{}, err
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return models.Identity{}, jwt.ErrTokenInvalidSubject
	}

	id := models.Identity{UserID: sub}
	id.Email, _ = claims["email"].(string)
	if meta, ok := claims["user_metadata"].(map[string]any); ok {
		if name, ok := meta["full_name"].(string); ok {
			id.DisplayName = name
		} else if name, ok := meta["name"].(string); ok {
			id.DisplayName = name
		}
		id.AvatarURL, _ = meta["avatar_url"].(string)
	}
	return id, nil
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after IdentityRequired so that the viewer is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !viewerFrom(c).IsAdmin() {
			middleware.Logger.WarnContext(c.UserContext(), "admin access denied",
				slog.String("path", c.Path()))
			return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError())
		}
		return c.Next()
	}
}

// viewerFrom returns the resolved viewer, or nil for anonymous requests.
func viewerFrom(c *fiber.Ctx) *models.Viewer {
	v, _ := c.Locals("viewer").(*models.Viewer)
	return v
}
