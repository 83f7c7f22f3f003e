package api

import (
	"bitwise74/image-api/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type deleteBody struct {
	URL string `json:"url" binding:"required"`
}

func (a *API) ImageDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data deleteBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Image URL is required",
			"requestID": requestID,
		})
		return
	}

	err := a.Uploader.DeleteByURL(c.Request.Context(), data.URL)
	if err != nil {
		if errors.Is(err, service.ErrBadURL) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid image URL",
				"requestID": requestID,
			})
			return
		}

		if errors.Is(err, service.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "File not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to delete image",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete image", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Image deleted successfully",
	})
}
