package services

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

const captionInstruction = "Please give me a description of this image as detailed as possible."

// Captioner describes a JPEG photo in free text.
type Captioner interface {
	Caption(ctx context.Context, jpeg []byte) (string, error)
}

type geminiCaptioner struct {
	gemini *GeminiClient
}

func NewGeminiCaptioner(gemini *GeminiClient) Captioner {
	return &geminiCaptioner{gemini: gemini}
}

func (c *geminiCaptioner) Caption(ctx context.Context, jpeg []byte) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				genai.NewPartFromBytes(jpeg, "image/jpeg"),
				{Text: captionInstruction},
			},
		},
	}

	resp, err := c.gemini.GenerateContent(ctx, contents, nil)
	if err != nil {
		return "", kindError(ErrCaption, err)
	}

	caption := strings.TrimSpace(replyFromResponse(resp).Text)
	if caption == "" {
		return "", goerr.Wrap(ErrCaption, "empty caption returned")
	}
	return caption, nil
}
