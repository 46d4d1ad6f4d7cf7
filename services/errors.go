package services

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrDecode           = goerr.New("malformed memory record")
	ErrDateFormat       = goerr.New("unparseable memory date")
	ErrNotFound         = goerr.New("memory not found")
	ErrStoreUnavailable = goerr.New("memory store unavailable")
	ErrEmbedding        = goerr.New("embedding memory text failed")
	ErrCaption          = goerr.New("image captioning failed")
	ErrTranscription    = goerr.New("transcription failed")
	ErrGeneration       = goerr.New("response generation failed")
	ErrSynthesis        = goerr.New("speech synthesis failed")
	ErrToolArgument     = goerr.New("invalid tool call argument")
	ErrImage            = goerr.New("unsupported image")
	ErrInvalidMemory    = goerr.New("invalid memory fields")

	ErrBusy              = goerr.New("conversation is handling another utterance")
	ErrSessionNotFound   = goerr.New("conversation session not found")
	ErrInvalidTransition = goerr.New("invalid conversation transition")
	ErrCaptionInProgress = goerr.New("caption already in progress")
)

// kindError keeps both the error kind and the underlying cause reachable
// through errors.Is.
func kindError(kind, cause error) error {
	return fmt.Errorf("%w: %w", kind, cause)
}
