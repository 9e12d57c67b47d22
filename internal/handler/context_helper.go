package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-enrollment/internal/middleware"
	"github.com/noah-isme/sma-enrollment/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

func actorFromContext(c *gin.Context) (models.UserInfo, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.UserInfo{}, false
	}
	return models.UserInfo{ID: claims.UserID, Username: claims.Username, Role: claims.Role}, true
}
