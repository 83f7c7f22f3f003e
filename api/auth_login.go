package api

import (
	"bitwise74/image-api/middleware"
	"bitwise74/image-api/util"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	stateCookie = "oauth_state"
	userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	sessionTTL  = 7 * 24 * time.Hour
)

type userInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AuthLogin redirects the browser to the provider's consent page
func (a *API) AuthLogin(c *gin.Context) {
	state := util.RandomToken(16)

	c.SetCookie(stateCookie, state, 300, "/", "", viper.GetBool("host.ssl_enabled"), true)
	c.Redirect(http.StatusTemporaryRedirect, a.OAuth.AuthCodeURL(state))
}

// AuthCallback exchanges the authorization code for a verified identity
// and issues the session cookie
func (a *API) AuthCallback(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "OAuth state mismatch",
			"requestID": requestID,
		})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Authorization code is missing",
			"requestID": requestID,
		})
		return
	}

	token, err := a.OAuth.Exchange(c.Request.Context(), code)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":     "Failed to exchange authorization code",
			"requestID": requestID,
		})

		zap.L().Error("Code exchange failed", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	resp, err := a.OAuth.Client(c.Request.Context(), token).Get(userInfoURL)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":     "Failed to fetch user info",
			"requestID": requestID,
		})

		zap.L().Error("Userinfo fetch failed", zap.Error(err), zap.String("requestID", requestID))
		return
	}
	defer resp.Body.Close()

	var user userInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":     "Failed to decode user info",
			"requestID": requestID,
		})

		zap.L().Error("Userinfo decode failed", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	sessionToken, err := makeToken(&jwt.MapClaims{
		"user": map[string]any{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(sessionTTL).Unix(),
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to sign session token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.SetCookie(stateCookie, "", -1, "/", "", viper.GetBool("host.ssl_enabled"), true)
	c.SetCookie(middleware.AuthCookie, sessionToken, int(sessionTTL.Seconds()), "/", "", viper.GetBool("host.ssl_enabled"), true)
	c.Redirect(http.StatusTemporaryRedirect, viper.GetString("host.client_origin"))
}

func makeToken(c *jwt.MapClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString([]byte(viper.GetString("session.secret")))
}
