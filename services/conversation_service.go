package services

import (
	"context"

	"github.com/AlexLuu1/Memento/logging"
	"github.com/AlexLuu1/Memento/models"
)

// ConversationService drives voice conversations over the memory store.
type ConversationService interface {
	StartSession(ctx context.Context) (*models.SessionResponse, error)
	ResetSession(ctx context.Context, sessionID string) error
	HandleUtterance(ctx context.Context, sessionID string, audio []byte, mimeType string) (*models.TurnResult, error)
	EndSession(ctx context.Context, sessionID string) error
}

type conversationServiceImpl struct {
	pipeline *Pipeline
	sessions *SessionRegistry
}

func NewConversationService(pipeline *Pipeline, sessions *SessionRegistry) ConversationService {
	return &conversationServiceImpl{
		pipeline: pipeline,
		sessions: sessions,
	}
}

func (s *conversationServiceImpl) StartSession(ctx context.Context) (*models.SessionResponse, error) {
	id := s.sessions.Create()
	logging.From(ctx).Info("conversation started", "session_id", id, "active", s.sessions.Len())
	return &models.SessionResponse{SessionID: id}, nil
}

func (s *conversationServiceImpl) ResetSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Reset(sessionID); err != nil {
		return err
	}
	logging.From(ctx).Info("conversation reset", "session_id", sessionID)
	return nil
}

// HandleUtterance runs one recorded utterance through the session's
// conversation. A result is returned alongside a turn error so the caller can
// still render the state and the capture-stop flag.
func (s *conversationServiceImpl) HandleUtterance(ctx context.Context, sessionID string, audio []byte, mimeType string) (*models.TurnResult, error) {
	conv, release, err := s.sessions.Acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := s.pipeline.HandleUtterance(ctx, conv, audio, mimeType)
	if err != nil {
		return res, err
	}
	logging.From(ctx).Info("utterance answered",
		"session_id", sessionID,
		"image", res.Image,
		"turns", conv.CompletedTurns())
	return res, nil
}

func (s *conversationServiceImpl) EndSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.End(sessionID); err != nil {
		return err
	}
	logging.From(ctx).Info("conversation ended", "session_id", sessionID)
	return nil
}
