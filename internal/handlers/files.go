package handlers

import (
	"mime/multipart"

	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/services"
	"github.com/lucasfalb/aijarvis-system/pkg/response"
)

// maxUploadMemory bounds the multipart form kept in memory.
const maxUploadMemory = 32 << 20

type FileHandler struct {
	fileService *services.FileService
}

func NewFileHandler(fileService *services.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// List returns the project's knowledge files
// GET /api/projects/:id/files
func (h *FileHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	data, err := h.fileService.List(c.Request.Context(), actorFrom(c), projectID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, data)
}

// Upload forwards uploaded files (form field "files")
// POST /api/projects/:id/files
func (h *FileHandler) Upload(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		response.BadRequest(c, "invalid multipart form")
		return
	}
	headers := c.Request.MultipartForm.File["files"]

	files := make([]services.FormFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, "cannot read uploaded file "+fh.Filename)
			return
		}
		defer func(f multipart.File) { _ = f.Close() }(f)

		files = append(files, services.FormFile{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     f,
		})
	}

	data, err := h.fileService.Upload(c.Request.Context(), actorFrom(c), projectID, files)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, data)
}

// Delete removes one file
// DELETE /api/projects/:id/files/:fileId
func (h *FileHandler) Delete(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	data, err := h.fileService.Delete(c.Request.Context(), actorFrom(c), projectID, c.Param("fileId"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, data)
}
