// Package validators holds request payload validation logic
package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/viper"
)

var (
	ErrFileTooLarge        = errors.New("file too large")
	ErrFileNameTooLong     = errors.New("file name is too long")
	ErrFileTypeUnsupported = errors.New("only PNG, JPG, and JPEG files are allowed")
	ErrNoFile              = errors.New("no file uploaded")
)

const maxFileNameSize = 245

// ImageValidator checks an uploaded file against the image allow-list.
// It returns the HTTP status to answer with when validation fails and
// the opened file (rewound to the start) when it succeeds.
func ImageValidator(fh *multipart.FileHeader) (int, multipart.File, error) {
	if fh == nil {
		return http.StatusBadRequest, nil, ErrNoFile
	}

	// Check headers first which is easy to spoof, but faster for legit
	// clients. An empty allow-list leaves only the content sniff below
	ct := fh.Header.Get("Content-Type")
	allowed := viper.GetStringSlice("upload.allowed_types")
	if len(allowed) != 0 && !slices.Contains(allowed, ct) {
		return http.StatusBadRequest, nil, ErrFileTypeUnsupported
	}

	if len(fh.Filename) > maxFileNameSize {
		return http.StatusBadRequest, nil, ErrFileNameTooLong
	}

	if fh.Size > viper.GetInt64("upload.max_size") {
		return http.StatusRequestEntityTooLarge, nil, ErrFileTooLarge
	}

	// And now do the checks on the actual file to avoid
	// malicious clients
	f, err := fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}

	if !strings.HasPrefix(mime.String(), "image/") {
		return http.StatusBadRequest, nil, ErrFileTypeUnsupported
	}

	if !mime.Is("image/png") && !mime.Is("image/jpeg") {
		return http.StatusBadRequest, nil, ErrFileTypeUnsupported
	}

	_, err = f.Seek(0, io.SeekStart)
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}

	return 0, f, nil
}
