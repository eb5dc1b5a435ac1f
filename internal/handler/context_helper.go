package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-ledger-api/internal/middleware"
	"github.com/noah-isme/school-ledger-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}

func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// actorName is what ends up in a transaction's recorded_by when the payload leaves it blank.
func actorName(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	if claims.FullName != "" {
		return claims.FullName
	}
	return claims.Email
}
