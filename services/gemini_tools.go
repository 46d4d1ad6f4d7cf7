package services

import "google.golang.org/genai"

const (
	selectImageTool = "select_image"
	selectImageArg  = "filename"
)

// GetConversationTools declares the single function the conversation model
// may call.
func GetConversationTools() []*genai.Tool {
	return []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        selectImageTool,
					Description: "Show the photo of the memory that best matches your reply.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							selectImageArg: {
								Type:        genai.TypeString,
								Description: "The image_filename of the chosen memory, exactly as given in the memories, e.g. '3f6c0e8a-2b1d-4c1e-9a7e-5d2b8f0c1a2b.jpg'.",
							},
						},
						Required: []string{selectImageArg},
					},
				},
			},
		},
	}
}
