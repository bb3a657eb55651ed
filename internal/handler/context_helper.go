package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/studyhub/studyhub-api/internal/middleware"
	"github.com/studyhub/studyhub-api/internal/models"
)

// claimsFromContext extracts the authenticated user's claims, if any.
// Public routes behind OptionalJWT legitimately return nil here.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
