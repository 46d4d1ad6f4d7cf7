package services

import (
	"context"
	"strings"

	"github.com/AlexLuu1/Memento/logging"
	"github.com/AlexLuu1/Memento/models"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

const fallbackReply = "I'm sorry, I couldn't think of a reply just now."

// ChatRequest is one generation call: system instruction, prior turns and the
// newest utterance.
type ChatRequest struct {
	SystemInstruction string
	History           []models.ConversationTurn
	Utterance         string
}

// ToolCall is a function call requested by the model.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ChatReply carries the reply text and at most one tool call.
type ChatReply struct {
	Text     string
	ToolCall *ToolCall
}

type ChatModel interface {
	Generate(ctx context.Context, req ChatRequest) (*ChatReply, error)
}

type geminiChatModel struct {
	gemini *GeminiClient
}

func NewGeminiChatModel(gemini *GeminiClient) ChatModel {
	return &geminiChatModel{gemini: gemini}
}

// Generate starts a chat seeded with the replayed history and sends the
// utterance. When the model answers with only a function call, the call is
// acknowledged once so the model produces the spoken reply.
func (m *geminiChatModel) Generate(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	session, err := m.gemini.CreateChat(ctx, &genai.GenerateContentConfig{
		Tools:             GetConversationTools(),
		SystemInstruction: systemContent(req.SystemInstruction),
	}, historyContents(req.History))
	if err != nil {
		return nil, err
	}

	result, err := session.SendMessage(ctx, genai.Part{Text: req.Utterance})
	if err != nil {
		return nil, goerr.Wrap(err, "gemini api call failed")
	}
	reply := replyFromResponse(result)

	if reply.Text == "" && reply.ToolCall != nil {
		logging.From(ctx).Debug("acknowledging function call", "name", reply.ToolCall.Name, "args", reply.ToolCall.Args)
		follow, err := session.SendMessage(ctx, genai.Part{FunctionResponse: &genai.FunctionResponse{
			Name:     reply.ToolCall.Name,
			Response: map[string]any{"result": "The photo is now shown to the user."},
		}})
		if err != nil {
			return nil, goerr.Wrap(err, "gemini api call failed after function call")
		}
		reply.Text = replyFromResponse(follow).Text
	}

	if reply.Text == "" {
		reply.Text = fallbackReply
	}
	return reply, nil
}

// replyFromResponse reads the text parts and the first function call of the
// first candidate.
func replyFromResponse(resp *genai.GenerateContentResponse) *ChatReply {
	reply := &ChatReply{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return reply
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil {
			continue
		}
		if p.Text != "" && !p.Thought {
			text.WriteString(p.Text)
		}
		if p.FunctionCall != nil && reply.ToolCall == nil {
			reply.ToolCall = &ToolCall{Name: p.FunctionCall.Name, Args: p.FunctionCall.Args}
		}
	}
	reply.Text = strings.TrimSpace(text.String())
	return reply
}

func historyContents(turns []models.ConversationTurn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns)*2)
	for _, turn := range turns {
		contents = append(contents,
			&genai.Content{Role: "user", Parts: []*genai.Part{{Text: turn.UserUtterance}}},
			&genai.Content{Role: "model", Parts: []*genai.Part{{Text: turn.AssistantReply}}},
		)
	}
	return contents
}

func systemContent(text string) *genai.Content {
	contents := genai.Text(text)
	if len(contents) == 0 {
		return nil
	}
	return contents[0]
}

// SelectImage returns the filename chosen through the select_image call, or
// NoImageSelected. A call with a bad argument or a filename that was not
// offered fails with ErrToolArgument.
func SelectImage(call *ToolCall, g Grounding) (string, error) {
	if call == nil {
		return NoImageSelected, nil
	}
	if call.Name != selectImageTool {
		return NoImageSelected, goerr.Wrap(ErrToolArgument, "unknown function", goerr.V("name", call.Name))
	}

	filename, ok := call.Args[selectImageArg].(string)
	if !ok {
		return NoImageSelected, goerr.Wrap(ErrToolArgument, "filename argument must be a string",
			goerr.V("args", call.Args))
	}
	filename = strings.TrimSpace(filename)
	if !strings.HasSuffix(filename, ".jpg") {
		filename += ".jpg"
	}
	if !g.HasFilename(filename) {
		return NoImageSelected, goerr.Wrap(ErrToolArgument, "filename was not offered to the model",
			goerr.V("filename", filename))
	}
	return filename, nil
}
