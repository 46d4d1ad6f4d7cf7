package models

type NewMemoryResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

type ListMemoriesResponse struct {
	Count    int      `json:"count"`
	Memories []Memory `json:"memories"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
}

// TurnResult is what the voice interface renders after an utterance.
type TurnResult struct {
	SessionID   string `json:"session_id"`
	State       string `json:"state"`
	Transcript  string `json:"transcript"`
	Utterance   string `json:"utterance"`
	Reply       string `json:"reply"`
	Image       string `json:"image"`
	ImageURL    string `json:"image_url,omitempty"`
	AudioURL    string `json:"audio_url,omitempty"`
	SpeechError string `json:"speech_error,omitempty"`
	StopCapture bool   `json:"stop_capture"`
	Error       string `json:"error,omitempty"`
}
