package controller

import (
	"errors"
	"net/http"

	"github.com/AlexLuu1/Memento/logging"
	"github.com/AlexLuu1/Memento/services"
	"github.com/gin-gonic/gin"
)

// statusFor maps a service error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrBusy), errors.Is(err, services.ErrCaptionInProgress):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidMemory), errors.Is(err, services.ErrDateFormat),
		errors.Is(err, services.ErrImage):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrTranscription), errors.Is(err, services.ErrGeneration),
		errors.Is(err, services.ErrEmbedding):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body. Internal errors are logged and hidden
// behind msg.
func respondError(ctx *gin.Context, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.From(ctx.Request.Context()).Error(msg, "error", err)
		ctx.JSON(status, gin.H{"error": msg})
		return
	}
	_ = ctx.Error(err)
	ctx.JSON(status, gin.H{"error": msg + ": " + err.Error()})
}
