package controller

import (
	"io"
	"net/http"

	"github.com/AlexLuu1/Memento/models"
	"github.com/AlexLuu1/Memento/services"
	"github.com/gin-gonic/gin"
)

const maxPhotoBytes = 20 << 20

// MemoryController serves the family page: creating memories, attaching
// their photos and listing them.
type MemoryController struct {
	memoryService services.MemoryService
}

func NewMemoryController(service services.MemoryService) *MemoryController {
	return &MemoryController{memoryService: service}
}

// CreateMemory handles POST /api/v1/memories.
func (c *MemoryController) CreateMemory(ctx *gin.Context) {
	var req models.NewMemoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	resp, err := c.memoryService.CreateMemory(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err, "Failed to create memory")
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// UploadPhoto handles POST /api/v1/memories/:id/photo with a multipart "file".
func (c *MemoryController) UploadPhoto(ctx *gin.Context) {
	header, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing photo: " + err.Error()})
		return
	}
	if header.Size > maxPhotoBytes {
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Photo is too large"})
		return
	}

	file, err := header.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not open photo: " + err.Error()})
		return
	}
	defer file.Close()

	photo, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not read photo: " + err.Error()})
		return
	}

	mem, err := c.memoryService.AttachPhoto(ctx.Request.Context(), ctx.Param("id"), photo)
	if err != nil {
		respondError(ctx, err, "Failed to attach photo")
		return
	}
	ctx.JSON(http.StatusOK, mem)
}

// ListMemories handles GET /api/v1/memories.
func (c *MemoryController) ListMemories(ctx *gin.Context) {
	resp, err := c.memoryService.ListMemories(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, "Failed to retrieve memories")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetMemory handles GET /api/v1/memories/:id.
func (c *MemoryController) GetMemory(ctx *gin.Context) {
	mem, err := c.memoryService.GetMemory(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Failed to retrieve memory")
		return
	}
	ctx.JSON(http.StatusOK, mem)
}
