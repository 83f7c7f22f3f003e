package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kept in sync with the route table by hand. Served statically and
// cached since it never changes at runtime
const openAPIDoc = `{
  "openapi": "3.0.0",
  "info": {
    "title": "Image Upload API",
    "description": "Docs for image uploader",
    "version": "1.0.0"
  },
  "paths": {
    "/login/google": {
      "get": {"summary": "Redirect to the identity provider", "responses": {"307": {"description": "Redirect"}}}
    },
    "/login/google/callback": {
      "get": {"summary": "OAuth callback, issues the session cookie", "responses": {"307": {"description": "Redirect to the client"}}}
    },
    "/auth/status": {
      "get": {"summary": "Current identity or null", "responses": {"200": {"description": "{user}"}}}
    },
    "/images": {
      "get": {"summary": "List gallery image URLs, newest first", "responses": {"200": {"description": "{images}"}, "401": {"description": "{error}"}}}
    },
    "/upload": {
      "post": {"summary": "Upload a single image (multipart field 'file')", "responses": {"200": {"description": "{message, url}"}, "400": {"description": "{error}"}, "500": {"description": "{error}"}}}
    },
    "/delete": {
      "delete": {"summary": "Delete an image by URL", "responses": {"200": {"description": "{message}"}, "400": {"description": "{error}"}, "404": {"description": "{error}"}}}
    },
    "/logout": {
      "post": {"summary": "Clear the session cookie", "responses": {"200": {"description": "{message}"}}}
    },
    "/ws": {
      "get": {"summary": "Gallery push channel (WebSocket)", "responses": {"101": {"description": "Upgrade"}}}
    }
  }
}`

func (a *API) Docs(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", []byte(openAPIDoc))
}
