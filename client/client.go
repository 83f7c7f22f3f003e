// Package client is the Go client for the image gallery API. It holds
// the transport, the gallery view state and the upload queue
// coordinator that drives one-at-a-time uploads with progress feedback.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"strings"
)

// User is the identity reported by the auth status endpoint
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// APIError carries the server's error message and status code
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server answered %d: %s", e.Status, e.Message)
}

// Client talks to the gallery server. The cookie jar carries the
// session cookie issued at login, so a Client is tied to one session
type Client struct {
	base string
	http *http.Client
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		base: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{Jar: jar},
	}, nil
}

// AuthStatus returns the logged in identity or nil when the session is
// absent or invalid. The endpoint itself never errors
func (c *Client) AuthStatus(ctx context.Context) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/auth/status", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		User *User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	return body.User, nil
}

// ListImages fetches the gallery, newest first. The order the server
// answers with is kept verbatim
func (c *Client) ListImages(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/images", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var body struct {
		Images []string `json:"images"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	return body.Images, nil
}

// Upload sends one file as a multipart form and returns the public URL
// the server assigned. The declared content type travels with the part
// so the server can validate it
func (c *Client) Upload(ctx context.Context, name, contentType string, data io.Reader) (string, error) {
	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	hdr.Set("Content-Type", contentType)

	part, err := w.CreatePart(hdr)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(part, data); err != nil {
		return "", err
	}

	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	return body.URL, nil
}

// Delete removes an image by its public URL
func (c *Client) Delete(ctx context.Context, url string) error {
	payload, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.base+"/delete", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	return nil
}

// Logout clears the session on the server and drops the local cookie
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/logout", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		body.Error = resp.Status
	}

	return &APIError{
		Status:  resp.StatusCode,
		Message: body.Error,
	}
}
