package services_test

import (
	"errors"
	"testing"

	"github.com/AlexLuu1/Memento/models"
	"github.com/AlexLuu1/Memento/services"
	"github.com/m-mizutani/gt"
)

func birthdayDocs() []models.StoredDocument {
	return []models.StoredDocument{{
		ID:       "abc",
		Text:     "2024-01-01|Birthday party|cake and balloons",
		Metadata: map[string]interface{}{"filename": "abc"},
	}}
}

func TestConversationFullTurn(t *testing.T) {
	c := services.NewConversation("s1", 20)
	gt.Equal(t, c.State(), services.StateIdle)

	effects, err := c.ReceiveAudio([]byte("a"), "audio/webm")
	gt.NoError(t, err)
	gt.A(t, effects).Length(1)
	gt.Equal(t, effects[0].Kind, services.EffectTranscribe)
	gt.Equal(t, c.State(), services.StateTranscribing)

	effects, err = c.Transcribed("hello")
	gt.NoError(t, err)
	gt.Equal(t, effects[0].Kind, services.EffectRetrieve)
	gt.Equal(t, effects[0].Query, "hello")
	gt.Equal(t, c.State(), services.StateRetrieving)

	effects, err = c.Retrieved(birthdayDocs())
	gt.NoError(t, err)
	gt.Equal(t, effects[0].Kind, services.EffectGenerate)
	gt.S(t, effects[0].Chat.SystemInstruction).Contains("January 1, 2024")
	gt.Equal(t, effects[0].Chat.Utterance, "hello")
	gt.Equal(t, c.State(), services.StateGenerating)

	effects, err = c.Generated("hi there", "abc.jpg")
	gt.NoError(t, err)
	gt.Equal(t, effects[0].Kind, services.EffectSpeak)
	gt.Equal(t, effects[0].Text, "hi there")
	gt.Equal(t, effects[0].AudioName, "reply-s1-1.wav")
	gt.Equal(t, c.History().Len(), 1)
	gt.Equal(t, c.State(), services.StateSpeaking)

	effects, err = c.Spoken("/uploads/reply-s1-1.wav", nil)
	gt.NoError(t, err)
	gt.A(t, effects).Length(0)
	gt.Equal(t, c.State(), services.StateIdle)
	gt.Equal(t, c.CompletedTurns(), 1)

	res := c.Result()
	gt.Equal(t, res.Reply, "hi there")
	gt.Equal(t, res.Image, "abc.jpg")
	gt.Equal(t, res.ImageURL, "/uploads/abc.jpg")
	gt.Equal(t, res.AudioURL, "/uploads/reply-s1-1.wav")
}

func TestConversationRejectsOutOfOrderEvents(t *testing.T) {
	c := services.NewConversation("s1", 20)

	_, err := c.Transcribed("hello")
	gt.True(t, errors.Is(err, services.ErrInvalidTransition))

	_, err = c.Retrieved(nil)
	gt.True(t, errors.Is(err, services.ErrInvalidTransition))

	_, err = c.Generated("reply", "")
	gt.True(t, errors.Is(err, services.ErrInvalidTransition))

	_, err = c.Spoken("", nil)
	gt.True(t, errors.Is(err, services.ErrInvalidTransition))

	gt.Equal(t, c.State(), services.StateIdle)
}

func TestConversationBusyWhileTurnInProgress(t *testing.T) {
	c := services.NewConversation("s1", 20)
	_, err := c.ReceiveAudio([]byte("a"), "audio/webm")
	gt.NoError(t, err)

	_, err = c.ReceiveAudio([]byte("b"), "audio/webm")
	gt.True(t, errors.Is(err, services.ErrBusy))
	gt.Equal(t, c.State(), services.StateTranscribing)
}

func TestConversationFailWhileTranscribing(t *testing.T) {
	c := services.NewConversation("s1", 20)
	_, err := c.ReceiveAudio([]byte("a"), "audio/webm")
	gt.NoError(t, err)

	effects := c.Fail(errors.New("timeout"))
	gt.A(t, effects).Length(1)
	gt.Equal(t, effects[0].Kind, services.EffectStopCapture)
	gt.Equal(t, c.State(), services.StateFailed)

	res := c.Result()
	gt.True(t, res.StopCapture)
	gt.Equal(t, res.Error, "timeout")
	gt.Equal(t, c.History().Len(), 0)

	// A new utterance is accepted after a failure.
	_, err = c.ReceiveAudio([]byte("a"), "audio/webm")
	gt.NoError(t, err)
	gt.False(t, c.Result().StopCapture)
}

func TestConversationFailWhileRetrieving(t *testing.T) {
	c := services.NewConversation("s1", 20)
	_, _ = c.ReceiveAudio([]byte("a"), "audio/webm")
	_, _ = c.Transcribed("hello")

	effects := c.Fail(errors.New("store down"))
	gt.A(t, effects).Length(0)
	gt.Equal(t, c.State(), services.StateFailed)
	gt.False(t, c.Result().StopCapture)
	gt.Equal(t, c.History().Len(), 0)
}

func TestConversationFailWhileSpeakingKeepsTurn(t *testing.T) {
	c := services.NewConversation("s1", 20)
	_, _ = c.ReceiveAudio([]byte("a"), "audio/webm")
	_, _ = c.Transcribed("hello")
	_, _ = c.Retrieved(nil)
	_, _ = c.Generated("hi", "")

	effects := c.Fail(errors.New("tts down"))
	gt.A(t, effects).Length(0)
	gt.Equal(t, c.State(), services.StateIdle)
	gt.Equal(t, c.History().Len(), 1)

	res := c.Result()
	gt.Equal(t, res.Reply, "hi")
	gt.Equal(t, res.Image, services.NoImageSelected)
	gt.Equal(t, res.SpeechError, "tts down")
}

func TestConversationFailWhenIdleIsNoop(t *testing.T) {
	c := services.NewConversation("s1", 20)
	gt.A(t, c.Fail(errors.New("x"))).Length(0)
	gt.Equal(t, c.State(), services.StateIdle)
}

func TestConversationTranscriptAccumulates(t *testing.T) {
	c := services.NewConversation("s1", 20)
	for _, text := range []string{"one", "two"} {
		_, _ = c.ReceiveAudio([]byte("a"), "audio/webm")
		effects, err := c.Transcribed(text)
		gt.NoError(t, err)
		if text == "two" {
			gt.Equal(t, effects[0].Query, "one two")
		}
		_, _ = c.Retrieved(nil)
		_, _ = c.Generated("ok", "")
		_, _ = c.Spoken("", nil)
	}
	gt.Equal(t, c.Transcript(), []string{"one", "two"})
	gt.Equal(t, c.Result().Transcript, "one two")
}

func TestConversationReset(t *testing.T) {
	c := services.NewConversation("s1", 20)
	_, _ = c.ReceiveAudio([]byte("a"), "audio/webm")
	_, _ = c.Transcribed("hello")
	_, _ = c.Retrieved(nil)
	_, _ = c.Generated("hi", "")
	_, _ = c.Spoken("", nil)

	c.Reset()
	gt.Equal(t, c.State(), services.StateIdle)
	gt.Equal(t, c.History().Len(), 0)
	gt.A(t, c.Transcript()).Length(0)
	gt.Equal(t, c.Result().Reply, "")
}

func TestConversationHistoryIsBounded(t *testing.T) {
	c := services.NewConversation("s1", 2)
	for _, text := range []string{"one", "two", "three"} {
		_, _ = c.ReceiveAudio([]byte("a"), "audio/webm")
		_, _ = c.Transcribed(text)
		_, _ = c.Retrieved(nil)
		_, _ = c.Generated("re "+text, "")
		_, _ = c.Spoken("", nil)
	}

	turns := c.History().Turns()
	gt.A(t, turns).Length(2)
	gt.Equal(t, turns[0].UserUtterance, "two")
	gt.Equal(t, turns[1].AssistantReply, "re three")
	gt.Equal(t, c.CompletedTurns(), 3)
}

func TestConversationRetrievalQueryIsBounded(t *testing.T) {
	c := services.NewConversation("s1", 2)
	var queries []string
	for _, text := range []string{"one", "two", "three", "four"} {
		_, _ = c.ReceiveAudio([]byte("a"), "audio/webm")
		effects, err := c.Transcribed(text)
		gt.NoError(t, err)
		queries = append(queries, effects[0].Query)
		_, _ = c.Retrieved(nil)
		_, _ = c.Generated("ok", "")
		_, _ = c.Spoken("", nil)
	}

	gt.Equal(t, queries[2], "one two three")
	gt.Equal(t, queries[3], "two three four")
	gt.Equal(t, c.Result().Transcript, "one two three four")
}
