package domain

import "time"

// DefaultMaxTurns bounds conversation growth when no limit is configured
const DefaultMaxTurns = 10

// Turn is one answered question
type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// Conversation is the ordered history of turns about one document.
// It is a value: Append returns a new Conversation and never mutates
// the receiver's turns.
type Conversation struct {
	SessionID  string `json:"session_id"`
	DocumentID string `json:"document_id"`
	Turns      []Turn `json:"turns"`
	MaxTurns   int    `json:"max_turns"` // 0 means unbounded
}

// NewConversation starts an empty conversation
func NewConversation(sessionID, documentID string, maxTurns int) Conversation {
	return Conversation{
		SessionID:  sessionID,
		DocumentID: documentID,
		MaxTurns:   maxTurns,
	}
}

// History returns a copy of the turns in chronological order
func (c Conversation) History() []Turn {
	out := make([]Turn, len(c.Turns))
	copy(out, c.Turns)
	return out
}

// Len returns the number of turns
func (c Conversation) Len() int {
	return len(c.Turns)
}

// Append returns a conversation with the turn added at the end.
// When MaxTurns is set the oldest turns are dropped.
func (c Conversation) Append(question, answer string, at time.Time) Conversation {
	turns := make([]Turn, 0, len(c.Turns)+1)
	turns = append(turns, c.Turns...)
	turns = append(turns, Turn{Question: question, Answer: answer, AskedAt: at})

	if c.MaxTurns > 0 && len(turns) > c.MaxTurns {
		turns = turns[len(turns)-c.MaxTurns:]
	}

	next := c
	next.Turns = turns
	return next
}
