package services

import "github.com/AlexLuu1/Memento/models"

// History is the ordered list of completed turns of one conversation. Only the
// newest limit turns are kept.
type History struct {
	turns []models.ConversationTurn
	limit int
}

func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit}
}

// Append records a completed turn, dropping the oldest turn once full.
func (h *History) Append(utterance, reply string) {
	h.turns = append(h.turns, models.ConversationTurn{
		UserUtterance:  utterance,
		AssistantReply: reply,
	})
	if over := len(h.turns) - h.limit; over > 0 {
		h.turns = append([]models.ConversationTurn(nil), h.turns[over:]...)
	}
}

// Turns returns a copy of the kept turns, oldest first.
func (h *History) Turns() []models.ConversationTurn {
	out := make([]models.ConversationTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int { return len(h.turns) }

func (h *History) Clear() { h.turns = nil }
