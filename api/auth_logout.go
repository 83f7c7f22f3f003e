package api

import (
	"bitwise74/image-api/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

func (a *API) AuthLogout(c *gin.Context) {
	c.SetCookie(middleware.AuthCookie, "", -1, "/", "", viper.GetBool("host.ssl_enabled"), true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out",
	})
}
