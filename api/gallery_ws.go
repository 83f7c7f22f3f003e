package api

import (
	"bitwise74/image-api/util"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == viper.GetString("host.client_origin")
	},
}

// GalleryWS upgrades an authenticated request to the gallery push
// channel. The server only ever writes, a read failure means the client
// went away
func (a *API) GalleryWS(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Debug("WebSocket upgrade failed", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	id := util.RandomToken(8)
	a.Hub.Subscribe(id, conn)

	zap.L().Debug("Gallery subscriber connected", zap.String("id", id))

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				a.Hub.Unsubscribe(id)
				return
			}
		}
	}()
}
