package models

// StoredDocument is a single document as held by the vector store.
type StoredDocument struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Filename returns the "filename" metadata value, which is the record id
// without extension.
func (d StoredDocument) Filename() string {
	if v, ok := d.Metadata["filename"].(string); ok {
		return v
	}
	return ""
}

// MemoryRecord holds the decoded text fields of a stored memory.
type MemoryRecord struct {
	Date         string `json:"date"`
	Description  string `json:"description"`
	ImageSummary string `json:"image_summary"`
}

// Memory is a memory as shown to the family page.
type Memory struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	DisplayDate   string `json:"display_date,omitempty"`
	Description   string `json:"description"`
	ImageSummary  string `json:"image_summary,omitempty"`
	ImageFilename string `json:"image_filename"`
	ImageURL      string `json:"image_url"`
	// CaptionPending is set while the record still has only date and description.
	CaptionPending bool `json:"caption_pending"`
}

// ConversationTurn is one completed exchange with the assistant.
type ConversationTurn struct {
	UserUtterance  string `json:"user_utterance"`
	AssistantReply string `json:"assistant_reply"`
}
