package http

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// FilesController serves stored pictures. PDFs are excluded here; reading a
// book goes through the loan-gated endpoint instead.
type FilesController struct {
	uploadDir string
}

func NewFilesController(uploadDir string) *FilesController {
	return &FilesController{uploadDir: uploadDir}
}

func (controller *FilesController) Serve(c *gin.Context) {
	ref := c.Param("ref")
	if ref != filepath.Base(ref) {
		respondBadRequest(c, "invalid file reference")
		return
	}
	if strings.EqualFold(filepath.Ext(ref), ".pdf") {
		respondError(c, http.StatusForbidden, "pdf files are only available through the reading endpoint")
		return
	}
	c.File(filepath.Join(controller.uploadDir, ref))
}
