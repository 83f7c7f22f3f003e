package api

import (
	"bitwise74/image-api/service"
	"bitwise74/image-api/validators"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) ImageUpload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	if !strings.HasPrefix(c.Request.Header.Get("Content-Type"), "multipart/form-data") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request",
			"requestID": requestID,
		})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to parse multipart form", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file uploaded",
			"requestID": requestID,
		})
		return
	}

	fh := files[0]

	code, f, err := validators.ImageValidator(fh)
	if err != nil {
		if code == http.StatusInternalServerError {
			zap.L().Error("Failed to validate file", zap.Error(err), zap.String("requestID", requestID))

			// That's to set the error into a general one for the users
			err = errors.New("internal server error")
		}

		c.AbortWithStatusJSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}
	defer f.Close()

	img, err := a.Uploader.Do(c.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), f, fh.Size)
	if err != nil {
		var pe *service.ErrPersist
		if errors.As(err, &pe) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Failed to save image info",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Upload pipeline failed", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Upload successful",
		"url":     img.URL,
	})
}
