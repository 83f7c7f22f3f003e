// Package api contains all endpoints available
package api

import (
	"bitwise74/image-api/aws"
	"bitwise74/image-api/db"
	"bitwise74/image-api/middleware"
	"bitwise74/image-api/service"
	"fmt"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"
	"golang.org/x/oauth2"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Store    service.BlobStore
	Hub      *service.Hub
	Uploader *service.Uploader
	OAuth    *oauth2.Config
}

func NewRouter() (*API, error) {
	a := &API{
		Hub: service.NewHub(),
	}

	db, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = db

	makeLogger()

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{viper.GetString("host.client_origin")},
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			AllowWebSockets:  true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	a.Router.MaxMultipartMemory = 5 << 20

	a.OAuth = newOAuthConfig()

	jwt := middleware.NewJWTMiddleware()

	// HEAD /heartbeat			-> Used to check if the server is alive
	router.HEAD("/heartbeat", a.Heartbeat)

	login := router.Group("/login/google")
	{
		// GET /login/google			-> Redirects to the provider's consent page
		login.GET("", a.AuthLogin)

		// GET /login/google/callback		-> Exchanges the code and issues the session cookie
		login.GET("/callback", a.AuthCallback)
	}

	// GET /auth/status			-> Reports the logged in identity, never errors
	router.GET("/auth/status", a.AuthStatus)

	// POST /logout				-> Clears the session cookie
	router.POST("/logout", a.AuthLogout)

	// GET /images				-> Lists gallery URLs, newest first
	router.GET("/images", jwt, a.ImageList)

	// POST /upload				-> Uploads a single image
	router.POST("/upload", jwt, a.ImageUpload)

	// DELETE /delete			-> Deletes an image by its public URL
	router.DELETE("/delete", jwt, a.ImageDelete)

	// GET /ws				-> Gallery push channel
	router.GET("/ws", jwt, a.GalleryWS)

	// GET /docs/openapi.json		-> Static API document
	router.GET("/docs/openapi.json", cacheFor(30), a.Docs)

	s3, err := aws.NewS3()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
	}

	a.Store = s3
	a.Uploader = service.NewUploader(a.DB, a.Store, a.Hub)

	return a, nil
}

func newOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     viper.GetString("oauth.client_id"),
		ClientSecret: viper.GetString("oauth.client_secret"),
		RedirectURL:  viper.GetString("oauth.redirect_url"),
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
