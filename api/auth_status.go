package api

import (
	"bitwise74/image-api/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthStatus reports the logged in identity. A missing or invalid
// cookie means "not logged in", never an error
func (a *API) AuthStatus(c *gin.Context) {
	tokenStr, err := c.Cookie(middleware.AuthCookie)
	if err != nil || tokenStr == "" {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	user, err := middleware.ParseSession(tokenStr)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
