package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
)

// ValidateController answers whether a Bearer token belongs to an account.
type ValidateController struct {
	tokens TokenValidator
}

func NewValidateController(tokens TokenValidator) *ValidateController {
	return &ValidateController{tokens: tokens}
}

func (controller *ValidateController) Validate(c *gin.Context) {
	if c.GetHeader("Authorization") == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "reason": "no auth header"})
		return
	}
	token, ok := auth.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": "malformed authorization header"})
		return
	}

	user, err := controller.tokens.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "user_id": user.ID, "user": user})
}
