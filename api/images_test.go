package api

import (
	"bitwise74/image-api/middleware"
	"bitwise74/image-api/model"
	"bitwise74/image-api/service"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStore) Put(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.objects[key]
	return ok, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

func (s *memStore) URL(key string) string {
	return "https://storage.example.com/bucket/" + key
}

func newTestAPI(t *testing.T) (*API, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	viper.Set("session.secret", "test-secret")
	viper.Set("upload.allowed_types", []string{"image/png", "image/jpeg", "image/jpg"})
	viper.Set("upload.max_size", int64(1<<20))
	viper.Set("host.client_origin", "http://localhost:5173")

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.Image{}))

	store := &memStore{objects: make(map[string][]byte)}

	a := &API{
		DB:    db,
		Store: store,
		Hub:   service.NewHub(),
	}
	a.Uploader = service.NewUploader(db, store, a.Hub)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.NewRequestIDMiddleware())
	a.Router = router

	jwtMW := middleware.NewJWTMiddleware()

	router.GET("/auth/status", a.AuthStatus)
	router.POST("/logout", a.AuthLogout)
	router.GET("/images", jwtMW, a.ImageList)
	router.POST("/upload", jwtMW, a.ImageUpload)
	router.DELETE("/delete", jwtMW, a.ImageDelete)
	router.GET("/ws", jwtMW, a.GalleryWS)

	return a, store
}

func sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()

	token, err := makeToken(&jwt.MapClaims{
		"user": map[string]any{"id": "u1", "email": "u1@example.com", "name": "User One"},
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	return &http.Cookie{Name: middleware.AuthCookie, Value: token}
}

func multipartBody(t *testing.T, name, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	hdr.Set("Content-Type", contentType)

	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func doUpload(t *testing.T, a *API, name, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	body, ct := multipartBody(t, name, contentType, data)

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	req.AddCookie(sessionCookie(t))

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func listImages(t *testing.T, a *API) []string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/images", nil)
	req.AddCookie(sessionCookie(t))

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Images []string `json:"images"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Images
}

func TestUploadThenListRoundTrip(t *testing.T) {
	a, store := newTestAPI(t)

	rec := doUpload(t, a, "cat photo.png", "image/png", pngMagic)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Message string `json:"message"`
		URL     string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Upload successful", body.Message)
	require.Contains(t, body.URL, "_cat_photo.png")

	urls := listImages(t, a)
	require.Equal(t, []string{body.URL}, urls)

	require.Len(t, store.objects, 1)
}

func TestListOrdersNewestFirst(t *testing.T) {
	a, _ := newTestAPI(t)

	require.NoError(t, a.DB.Create(&model.Image{Filename: "k1", URL: "u1", UploadedAt: 100}).Error)
	require.NoError(t, a.DB.Create(&model.Image{Filename: "k2", URL: "u2", UploadedAt: 300}).Error)
	require.NoError(t, a.DB.Create(&model.Image{Filename: "k3", URL: "u3", UploadedAt: 200}).Error)

	require.Equal(t, []string{"u2", "u3", "u1"}, listImages(t, a))
}

func TestUploadRejectsBadType(t *testing.T) {
	a, store := newTestAPI(t)

	rec := doUpload(t, a, "notes.txt", "text/plain", []byte("hello"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Nothing may reach the store on a validation failure
	require.Empty(t, store.objects)
	require.Empty(t, listImages(t, a))
}

func TestUploadRequiresFile(t *testing.T) {
	a, _ := newTestAPI(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.AddCookie(sessionCookie(t))

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRequiresAuth(t *testing.T) {
	a, _ := newTestAPI(t)

	body, ct := multipartBody(t, "a.png", "image/png", pngMagic)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteRoundTrip(t *testing.T) {
	a, store := newTestAPI(t)

	rec := doUpload(t, a, "gone.png", "image/png", pngMagic)
	require.Equal(t, http.StatusOK, rec.Code)

	var up struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))

	payload, _ := json.Marshal(map[string]string{"url": up.URL})
	req := httptest.NewRequest(http.MethodDelete, "/delete", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(sessionCookie(t))

	del := httptest.NewRecorder()
	a.Router.ServeHTTP(del, req)
	require.Equal(t, http.StatusOK, del.Code)

	require.Empty(t, listImages(t, a))
	require.Empty(t, store.objects)
}

func TestDeleteNonexistentURL(t *testing.T) {
	a, _ := newTestAPI(t)

	payload, _ := json.Marshal(map[string]string{"url": "https://storage.example.com/bucket/missing.png"})
	req := httptest.NewRequest(http.MethodDelete, "/delete", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(sessionCookie(t))

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRequiresURL(t *testing.T) {
	a, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodDelete, "/delete", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(sessionCookie(t))

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthStatus(t *testing.T) {
	a, _ := newTestAPI(t)

	// Without a cookie the answer is null, not an error
	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"user": null}`, rec.Body.String())

	// Garbage cookies are also just "not logged in"
	req = httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AuthCookie, Value: "garbage"})
	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"user": null}`, rec.Body.String())

	// A valid session reports the identity
	req = httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.AddCookie(sessionCookie(t))
	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "u1", body.User["id"])
}

func TestUploadBroadcastsToOtherClients(t *testing.T) {
	a, _ := newTestAPI(t)

	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	// Client B subscribes to the push channel
	hdr := http.Header{}
	hdr.Set("Cookie", middleware.AuthCookie+"="+sessionCookie(t).Value)

	conn, resp, err := websocket.DefaultDialer.Dial(strings.Replace(srv.URL, "http", "ws", 1)+"/ws", hdr)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool {
		return a.Hub.Subscribers() == 1
	}, 2*time.Second, 5*time.Millisecond)

	// Client A uploads
	rec := doUpload(t, a, "d.jpg", "image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0})
	require.Equal(t, http.StatusOK, rec.Code)

	var up struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))

	// B receives the event without re-fetching the gallery
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ev service.Event
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "uploadComplete", ev.Event)

	data, ok := ev.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, up.URL, data["url"])
}
