package services

import (
	"fmt"
	"strings"

	"github.com/AlexLuu1/Memento/models"
	"github.com/m-mizutani/goerr/v2"
)

// NoImageSelected marks a turn where the model chose no photo.
const NoImageSelected = "none"

type ConversationState string

const (
	StateIdle         ConversationState = "idle"
	StateTranscribing ConversationState = "transcribing"
	StateRetrieving   ConversationState = "retrieving"
	StateGenerating   ConversationState = "generating"
	StateSpeaking     ConversationState = "speaking"
	StateFailed       ConversationState = "failed"
)

type EffectKind int

const (
	EffectTranscribe EffectKind = iota
	EffectRetrieve
	EffectGenerate
	EffectSpeak
	EffectStopCapture
)

func (k EffectKind) String() string {
	switch k {
	case EffectTranscribe:
		return "transcribe"
	case EffectRetrieve:
		return "retrieve"
	case EffectGenerate:
		return "generate"
	case EffectSpeak:
		return "speak"
	case EffectStopCapture:
		return "stop_capture"
	default:
		return fmt.Sprintf("effect(%d)", int(k))
	}
}

// Effect is I/O the runner has to perform before feeding the outcome back.
type Effect struct {
	Kind EffectKind

	// EffectTranscribe
	Audio    []byte
	MimeType string

	// EffectRetrieve
	Query string

	// EffectGenerate
	Chat ChatRequest

	// EffectSpeak
	Text      string
	AudioName string
}

// turn holds the fields of the utterance being processed.
type turn struct {
	utterance   string
	grounding   Grounding
	reply       string
	image       string
	audioURL    string
	speechErr   error
	stopCapture bool
	err         error
}

// Conversation is the per-session state of the voice pipeline. Mutators
// return the effects to perform next; no mutator does I/O.
type Conversation struct {
	id         string
	state      ConversationState
	transcript []string
	history    *History
	// queryWindow is how many of the newest utterances form the retrieval
	// query: those still replayed from History plus the current one.
	queryWindow int
	completed  int
	current    turn
}

func NewConversation(id string, historyLimit int) *Conversation {
	history := NewHistory(historyLimit)
	return &Conversation{
		id:          id,
		state:       StateIdle,
		history:     history,
		queryWindow: history.limit + 1,
	}
}

func (c *Conversation) ID() string { return c.id }
func (c *Conversation) State() ConversationState { return c.state }
func (c *Conversation) History() *History { return c.history }
func (c *Conversation) Transcript() []string { return append([]string(nil), c.transcript...) }
func (c *Conversation) CompletedTurns() int { return c.completed }
func (c *Conversation) Grounding() Grounding { return c.current.grounding }
func (c *Conversation) joinedTranscript() string { return strings.Join(c.transcript, " ") }

// retrievalQuery joins the newest utterances, oldest first.
func (c *Conversation) retrievalQuery() string {
	recent := c.transcript
	if over := len(recent) - c.queryWindow; over > 0 {
		recent = recent[over:]
	}
	return strings.Join(recent, " ")
}

func (c *Conversation) expect(state ConversationState, event string) error {
	if c.state != state {
		return goerr.Wrap(ErrInvalidTransition, "unexpected event for state",
			goerr.V("event", event),
			goerr.V("state", string(c.state)))
	}
	return nil
}

// ReceiveAudio starts a turn. It is accepted in Idle and Failed.
func (c *Conversation) ReceiveAudio(audio []byte, mimeType string) ([]Effect, error) {
	if c.state != StateIdle && c.state != StateFailed {
		return nil, goerr.Wrap(ErrBusy, "utterance already in progress", goerr.V("state", string(c.state)))
	}
	c.current = turn{}
	c.state = StateTranscribing
	return []Effect{{Kind: EffectTranscribe, Audio: audio, MimeType: mimeType}}, nil
}

// Transcribed records the utterance and asks for retrieval over what was said
// so far, limited to the utterances the model still sees.
func (c *Conversation) Transcribed(text string) ([]Effect, error) {
	if err := c.expect(StateTranscribing, "transcribed"); err != nil {
		return nil, err
	}
	c.current.utterance = text
	c.transcript = append(c.transcript, text)
	c.state = StateRetrieving
	return []Effect{{Kind: EffectRetrieve, Query: c.retrievalQuery()}}, nil
}

// Retrieved builds the grounding block and asks for generation.
func (c *Conversation) Retrieved(docs []models.StoredDocument) ([]Effect, error) {
	if err := c.expect(StateRetrieving, "retrieved"); err != nil {
		return nil, err
	}
	c.current.grounding = BuildGrounding(docs)
	c.state = StateGenerating
	return []Effect{{
		Kind: EffectGenerate,
		Chat: ChatRequest{
			SystemInstruction: BuildSystemInstruction(c.current.grounding),
			History:           c.history.Turns(),
			Utterance:         c.current.utterance,
		},
	}}, nil
}

// Generated completes the turn in History and asks for speech.
func (c *Conversation) Generated(reply, image string) ([]Effect, error) {
	if err := c.expect(StateGenerating, "generated"); err != nil {
		return nil, err
	}
	if image == "" {
		image = NoImageSelected
	}
	c.current.reply = reply
	c.current.image = image
	c.history.Append(c.current.utterance, reply)
	c.completed++
	c.state = StateSpeaking
	return []Effect{{
		Kind:      EffectSpeak,
		Text:      reply,
		AudioName: fmt.Sprintf("reply-%s-%d.wav", c.id, c.completed),
	}}, nil
}

// Spoken ends the turn. A synthesis error keeps the reply without audio.
func (c *Conversation) Spoken(audioURL string, err error) ([]Effect, error) {
	if terr := c.expect(StateSpeaking, "spoken"); terr != nil {
		return nil, terr
	}
	c.current.audioURL = audioURL
	c.current.speechErr = err
	c.state = StateIdle
	return nil, nil
}

// Fail aborts the current turn. History is untouched because turns are
// appended only after generation. Failing while transcribing also asks the
// capture source to stop.
func (c *Conversation) Fail(err error) []Effect {
	from := c.state
	if from == StateIdle || from == StateFailed {
		return nil
	}
	if from == StateSpeaking {
		// The turn is already in History; surface it without audio.
		c.current.speechErr = err
		c.state = StateIdle
		return nil
	}

	if from == StateTranscribing {
		c.current.stopCapture = true
	}
	c.current.err = err
	c.state = StateFailed
	if from == StateTranscribing {
		return []Effect{{Kind: EffectStopCapture}}
	}
	return nil
}

// Reset clears the transcript and History, as when the user re-enters the
// conversation.
func (c *Conversation) Reset() {
	c.state = StateIdle
	c.transcript = nil
	c.history.Clear()
	c.current = turn{}
}

// Result describes the latest turn for the caller.
func (c *Conversation) Result() *models.TurnResult {
	res := &models.TurnResult{
		SessionID:   c.id,
		State:       string(c.state),
		Transcript:  c.joinedTranscript(),
		Utterance:   c.current.utterance,
		Reply:       c.current.reply,
		Image:       c.current.image,
		AudioURL:    c.current.audioURL,
		StopCapture: c.current.stopCapture,
	}
	if res.Image == "" {
		res.Image = NoImageSelected
	}
	if res.Image != NoImageSelected {
		res.ImageURL = UploadsURLPrefix + res.Image
	}
	if c.current.speechErr != nil {
		res.SpeechError = c.current.speechErr.Error()
	}
	if c.current.err != nil {
		res.Error = c.current.err.Error()
	}
	return res
}
