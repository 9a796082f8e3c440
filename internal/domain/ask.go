package domain

import (
	"time"

	"github.com/google/uuid"
)

// AskContext establishes locality for one question. It is built fresh per
// call from the caller's current selection; Region is nil when no location
// has been chosen.
type AskContext struct {
	Region *Region
	Month  string
}

// NewAskContext builds an AskContext for the clock's current month.
func NewAskContext(region *Region) AskContext {
	return AskContext{Region: region, Month: CurrentMonth()}
}

// Message is one immutable entry of a conversation: either the user's
// question or the answer returned for it.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	FromUser  bool      `json:"from_user"`
	Preferred bool      `json:"preferred"`
	Region    string    `json:"region,omitempty"`
	Month     string    `json:"month,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewQuestion records a user question asked under ac.
func NewQuestion(text string, ac AskContext) Message {
	return newMessage(text, true, false, ac)
}

// NewAnswer records an answer; preferred reports whether the preferred
// capability produced it.
func NewAnswer(text string, preferred bool, ac AskContext) Message {
	return newMessage(text, false, preferred, ac)
}

func newMessage(text string, fromUser, preferred bool, ac AskContext) Message {
	m := Message{
		ID:        uuid.NewString(),
		Text:      text,
		FromUser:  fromUser,
		Preferred: preferred,
		Month:     ac.Month,
		CreatedAt: clock.Now().UTC(),
	}
	if ac.Region != nil {
		m.Region = ac.Region.Code
	}
	return m
}
