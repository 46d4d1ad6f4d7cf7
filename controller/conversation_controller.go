package controller

import (
	"io"
	"net/http"

	"github.com/AlexLuu1/Memento/services"
	"github.com/gin-gonic/gin"
)

const maxAudioBytes = 25 << 20

// ConversationController serves the voice page.
type ConversationController struct {
	conversationService services.ConversationService
}

func NewConversationController(service services.ConversationService) *ConversationController {
	return &ConversationController{conversationService: service}
}

// StartSession handles POST /api/v1/sessions. Every visit to the voice page
// starts with an empty history.
func (c *ConversationController) StartSession(ctx *gin.Context) {
	resp, err := c.conversationService.StartSession(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, "Failed to start conversation")
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// ResetSession handles POST /api/v1/sessions/:id/reset.
func (c *ConversationController) ResetSession(ctx *gin.Context) {
	if err := c.conversationService.ResetSession(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondError(ctx, err, "Failed to reset conversation")
		return
	}
	ctx.Status(http.StatusNoContent)
}

// HandleUtterance handles POST /api/v1/sessions/:id/utterances with a
// multipart "audio" recording. A failed turn still returns the turn body so
// the client can read stop_capture.
func (c *ConversationController) HandleUtterance(ctx *gin.Context) {
	header, err := ctx.FormFile("audio")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing audio: " + err.Error()})
		return
	}
	mimeType := ctx.PostForm("mime_type")
	if mimeType == "" {
		mimeType = header.Header.Get("Content-Type")
	}

	file, err := header.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not open audio: " + err.Error()})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not read audio: " + err.Error()})
		return
	}

	res, err := c.conversationService.HandleUtterance(ctx.Request.Context(), ctx.Param("id"), audio, mimeType)
	if err != nil {
		if res == nil {
			respondError(ctx, err, "Failed to handle utterance")
			return
		}
		_ = ctx.Error(err)
		ctx.JSON(statusFor(err), res)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// EndSession handles DELETE /api/v1/sessions/:id.
func (c *ConversationController) EndSession(ctx *gin.Context) {
	if err := c.conversationService.EndSession(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondError(ctx, err, "Failed to end conversation")
		return
	}
	ctx.Status(http.StatusNoContent)
}
