package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/psychedhire/psychedhire-api/internal/middleware"
	"github.com/psychedhire/psychedhire-api/internal/models"
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

func pageQuery(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size
}

func searchQuery(c *gin.Context) string {
	return strings.TrimSpace(c.Query("search"))
}
