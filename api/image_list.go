package api

import (
	"bitwise74/image-api/model"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) ImageList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var urls []string

	err := a.DB.
		Model(model.Image{}).
		Order("uploaded_at DESC").
		Pluck("url", &urls).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to fetch images",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch image list", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if urls == nil {
		urls = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"images": urls,
	})
}
