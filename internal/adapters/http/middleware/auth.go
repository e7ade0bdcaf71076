package middleware

import (
	"cmp"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

const claimsKey = "quotesync.claims"

// Claims are the caller identity forwarded by the gateway in front of the
// service. The gateway has already validated the token; only the headers
// reach us.
type Claims struct {
	Subject string
	Roles   []string
}

// HasRole reports whether role was granted to the caller.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// identityHeaders returns the subject and roles header names, falling
// back to X-User-ID and X-User-Roles.
func identityHeaders(cfg *config.AuthConfig) (subject, roles string) {
	subject, roles = "X-User-ID", "X-User-Roles"
	if cfg == nil {
		return subject, roles
	}

	return cmp.Or(cfg.SubjectHeader, subject), cmp.Or(cfg.RolesHeader, roles)
}

// ExtractClaims reads the identity headers. Roles are comma-separated;
// blanks are dropped.
func ExtractClaims(c *gin.Context, cfg *config.AuthConfig) *Claims {
	subjectHeader, rolesHeader := identityHeaders(cfg)

	claims := &Claims{Subject: strings.TrimSpace(c.GetHeader(subjectHeader))}

	for role := range strings.SplitSeq(c.GetHeader(rolesHeader), ",") {
		if role = strings.TrimSpace(role); role != "" {
			claims.Roles = append(claims.Roles, role)
		}
	}

	return claims
}

// GetClaims returns the claims stored by RequireAuth, or nil.
func GetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}

	claims, _ := v.(*Claims)

	return claims
}

// RequireAuth answers 401 when no subject is present. Otherwise it stores
// the claims and tags the request logger with the subject.
func RequireAuth(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ExtractClaims(c, cfg)
		if claims.Subject == "" {
			dto.AbortWithCode(c, dto.ErrorCodeUnauthorized, "authentication required")
			return
		}

		c.Set(claimsKey, claims)
		c.Request = c.Request.WithContext(logging.WithSubject(c.Request.Context(), claims.Subject))

		c.Next()
	}
}

// RequireWriter guards routes that change the collection or the preference
// and the sync trigger: 401 without a subject, 403 without the writer role.
// It returns no handlers when auth is disabled.
func RequireWriter(cfg *config.AuthConfig) []gin.HandlerFunc {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	role := cfg.WriterRole

	return []gin.HandlerFunc{
		RequireAuth(cfg),
		func(c *gin.Context) {
			if claims := GetClaims(c); claims == nil || !claims.HasRole(role) {
				dto.AbortWithCode(c, dto.ErrorCodeForbidden, "role "+role+" required")
				return
			}

			c.Next()
		},
	}
}
