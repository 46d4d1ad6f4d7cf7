package services

import (
	"context"
	"errors"
	"time"

	"github.com/AlexLuu1/Memento/logging"
	"github.com/AlexLuu1/Memento/models"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultRetrievalLimit = 10
	DefaultCallTimeout    = 30 * time.Second
)

// Pipeline performs the effects a Conversation asks for, one at a time.
type Pipeline struct {
	transcriber    Transcriber
	store          MemoryStore
	chat           ChatModel
	synthesizer    Synthesizer
	retrievalLimit int
	timeout        time.Duration
}

type PipelineOption func(*Pipeline)

func WithRetrievalLimit(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.retrievalLimit = n
		}
	}
}

// WithCallTimeout bounds every external call.
func WithCallTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPipeline(transcriber Transcriber, store MemoryStore, chat ChatModel, synthesizer Synthesizer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		transcriber:    transcriber,
		store:          store,
		chat:           chat,
		synthesizer:    synthesizer,
		retrievalLimit: DefaultRetrievalLimit,
		timeout:        DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleUtterance runs one utterance through the conversation. The returned
// result is always populated; the error is set when the turn failed.
func (p *Pipeline) HandleUtterance(ctx context.Context, conv *Conversation, audio []byte, mimeType string) (*models.TurnResult, error) {
	logger := logging.From(ctx).With("session_id", conv.ID())

	effects, err := conv.ReceiveAudio(audio, mimeType)
	if err != nil {
		return conv.Result(), err
	}

	var turnErr error
	for len(effects) > 0 {
		eff := effects[0]
		effects = effects[1:]
		logger.Debug("performing effect", "effect", eff.Kind.String(), "state", string(conv.State()))

		next, err := p.perform(ctx, conv, eff)
		if err != nil {
			logger.Warn("utterance failed", "effect", eff.Kind.String(), "error", err)
			turnErr = err
			next = conv.Fail(err)
		}
		effects = append(effects, next...)
	}

	return conv.Result(), turnErr
}

func (p *Pipeline) perform(ctx context.Context, conv *Conversation, eff Effect) ([]Effect, error) {
	switch eff.Kind {
	case EffectTranscribe:
		text, err := withTimeout(ctx, p.timeout, func(ctx context.Context) (string, error) {
			return p.transcriber.Transcribe(ctx, eff.Audio, eff.MimeType)
		})
		if err != nil {
			return nil, stageFailure(ErrTranscription, err, "failed to transcribe utterance")
		}
		return conv.Transcribed(text)

	case EffectRetrieve:
		docs, err := withTimeout(ctx, p.timeout, func(ctx context.Context) ([]models.StoredDocument, error) {
			return p.store.Query(ctx, eff.Query, p.retrievalLimit)
		})
		if err != nil {
			kind := ErrStoreUnavailable
			if errors.Is(err, ErrEmbedding) {
				kind = ErrEmbedding
			}
			return nil, stageFailure(kind, err, "failed to retrieve memories")
		}
		next, err := conv.Retrieved(docs)
		for _, skipped := range conv.Grounding().Skipped {
			logging.From(ctx).Warn("skipped retrieved memory", "id", skipped.ID, "error", skipped.Err)
		}
		return next, err

	case EffectGenerate:
		reply, err := withTimeout(ctx, p.timeout, func(ctx context.Context) (*ChatReply, error) {
			return p.chat.Generate(ctx, eff.Chat)
		})
		if err != nil {
			return nil, stageFailure(ErrGeneration, err, "failed to generate reply")
		}
		image, err := SelectImage(reply.ToolCall, conv.Grounding())
		if err != nil {
			logging.From(ctx).Warn("ignoring image selection", "error", err)
		}
		return conv.Generated(reply.Text, image)

	case EffectSpeak:
		url, err := withTimeout(ctx, p.timeout, func(ctx context.Context) (string, error) {
			return p.synthesizer.Synthesize(ctx, eff.Text, eff.AudioName)
		})
		if err != nil {
			err = stageFailure(ErrSynthesis, err, "failed to synthesize reply")
			logging.From(ctx).Warn("reply has no audio", "error", err)
		}
		return conv.Spoken(url, err)

	case EffectStopCapture:
		logging.From(ctx).Info("asking capture source to stop", "session_id", conv.ID())
		return nil, nil

	default:
		return nil, goerr.New("unknown effect", goerr.V("effect", eff.Kind.String()))
	}
}

// stageFailure tags err with the stage's kind unless it already carries it.
// Deadlines and cancellations map to the same kind.
func stageFailure(kind, err error, msg string) error {
	if errors.Is(err, kind) {
		return goerr.Wrap(err, msg)
	}
	return goerr.Wrap(kindError(kind, err), msg)
}

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}
