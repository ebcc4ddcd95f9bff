package http

import (
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// Accepted upload extensions, lowercased.
var (
	pictureExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}
	pdfExts     = map[string]bool{".pdf": true}
)

const maxUploadBytes = 8 << 20

// readUpload pulls an optional multipart file from the form. It returns
// ok=false with a 400 already written when the file is present but invalid.
// A missing file yields nil data and ok=true so callers can keep defaults.
func readUpload(c *gin.Context, field string, allowed map[string]bool) (data []byte, ext string, ok bool) {
	header, err := c.FormFile(field)
	if err != nil {
		// Absent file is fine; the existing reference stays.
		return nil, "", true
	}
	if header.Size > maxUploadBytes {
		respondBadRequest(c, field+" file is too large")
		return nil, "", false
	}
	ext = strings.ToLower(filepath.Ext(header.Filename))
	if !allowed[ext] {
		respondBadRequest(c, "unsupported "+field+" file type")
		return nil, "", false
	}
	data, err = readAll(header)
	if err != nil {
		respondBadRequest(c, "could not read "+field+" file")
		return nil, "", false
	}
	return data, ext, true
}

func readAll(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
