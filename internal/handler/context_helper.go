package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Sumiong13/kbm-corner-api/internal/middleware"
	"github.com/Sumiong13/kbm-corner-api/internal/models"
)

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

func staleMeta(stale bool) map[string]interface{} {
	if !stale {
		return nil
	}
	return map[string]interface{}{"stale": true}
}
