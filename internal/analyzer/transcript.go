package analyzer

import (
	"fmt"
	"strings"
)

// Turn — реплика пользователя и ответ системы на неё.
type Turn struct {
	User   string `json:"user"`
	System string `json:"system"`
}

// Transcript — запись одного диалога на стороне анализатора.
type Transcript struct {
	ID    string
	Turns []Turn
}

// NewTranscript создаёт пустую запись диалога.
func NewTranscript(id string) *Transcript {
	return &Transcript{ID: id, Turns: make([]Turn, 0, 8)}
}

// Append добавляет ход в запись.
func (t *Transcript) Append(user, system string) {
	t.Turns = append(t.Turns, Turn{User: user, System: system})
}

// Len возвращает число ходов.
func (t *Transcript) Len() int { return len(t.Turns) }

// EmptyResponses считает ходы, на которые система ответила пустой строкой.
func (t *Transcript) EmptyResponses() int {
	n := 0
	for _, turn := range t.Turns {
		if turn.System == "" {
			n++
		}
	}
	return n
}

func (t *Transcript) String() string {
	var b strings.Builder
	for i, turn := range t.Turns {
		fmt.Fprintf(&b, "%d user: %s\n", i, turn.User)
		fmt.Fprintf(&b, "%d sys:  %s\n", i, turn.System)
	}
	return b.String()
}
