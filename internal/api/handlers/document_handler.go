package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zgai/chatlibrary/internal/services"
	"github.com/zgai/chatlibrary/internal/utils"
)

type DocumentHandler struct {
	svc      services.DocumentService
	maxBytes int64
}

func NewDocumentHandler(svc services.DocumentService, maxBytes int64) *DocumentHandler {
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	return &DocumentHandler{svc: svc, maxBytes: maxBytes}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "DocumentHandler.Upload", "missing multipart field 'file'", err))
		return
	}
	if fh.Size <= 0 || fh.Size > h.maxBytes {
		writeError(c, utils.E(utils.CodeInvalidArgument, "DocumentHandler.Upload",
			fmt.Sprintf("file size must be between 1 byte and %d bytes", h.maxBytes), nil))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, "DocumentHandler.Upload", "failed to open upload", err))
		return
	}
	defer file.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := h.svc.Upload(c.Request.Context(), userID, fh.Filename, contentType, fh.Size, file)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rows, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": rows})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	doc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if doc.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "DocumentHandler.Get", "forbidden", nil))
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Preview streams the original file inline.
func (h *DocumentHandler) Preview(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	doc, f, err := h.svc.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()
	if doc.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "DocumentHandler.Preview", "forbidden", nil))
		return
	}

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.OriginalFilename))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, f)
}

// PreviewContent returns the extracted plain text of a document.
func (h *DocumentHandler) PreviewContent(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	doc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if doc.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "DocumentHandler.PreviewContent", "forbidden", nil))
		return
	}

	text, err := h.svc.PreviewContent(c.Request.Context(), doc.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": doc.ID, "content": text})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	doc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if doc.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "DocumentHandler.Delete", "forbidden", nil))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), doc.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "document deleted"})
}
