// Package event models the inbound WhatsApp webhook envelope as a closed
// set of message shapes and provides a total extraction function over it.
//
// The platform nests the actual message five levels deep
// (entry[0].changes[0].value.messages[0]); only that first message is ever
// processed. Status callbacks, read receipts and every other payload shape
// the platform delivers on the same endpoint simply extract to nothing.
package event

import (
	"encoding/json"
	"strings"
)

// Envelope is the top-level webhook body.
type Envelope struct {
	Entry []Entry `json:"entry"`
}

// Entry is one webhook entry.
type Entry struct {
	Changes []Change `json:"changes"`
}

// Change is one change notification inside an entry.
type Change struct {
	Value Value `json:"value"`
}

// Value carries the messages of a change.
type Value struct {
	Messages []Message `json:"messages"`
}

// Message is a single inbound chat message. At most one of the payload
// fields is populated per message.
type Message struct {
	From        string       `json:"from"`
	Text        *TextBody    `json:"text"`
	Interactive *Interactive `json:"interactive"`
	// ButtonReply covers older payloads that carry the reply at the message
	// top level instead of under interactive.
	ButtonReply *Reply `json:"button_reply"`
}

// TextBody is a free-text message body.
type TextBody struct {
	Body string `json:"body"`
}

// Interactive carries a button or list reply.
type Interactive struct {
	ButtonReply *Reply `json:"button_reply"`
	ListReply   *Reply `json:"list_reply"`
}

// Reply is the id/title of a selected button or list row.
type Reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Extract pulls the first message of the first change of the first entry out
// of a raw webhook body. It never panics on missing keys or malformed JSON;
// the boolean is false when there is no actionable message.
func Extract(body []byte) (Message, bool) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Message{}, false
	}
	if len(env.Entry) == 0 || len(env.Entry[0].Changes) == 0 {
		return Message{}, false
	}
	messages := env.Entry[0].Changes[0].Value.Messages
	if len(messages) == 0 {
		return Message{}, false
	}
	return messages[0], true
}

// Input returns the triggering text of the message, lower-cased and
// trimmed. Precedence when several reply shapes are present: button reply,
// then list reply, then plain text. An empty string means no recognized
// input.
func (m Message) Input() string {
	var raw string
	switch {
	case m.Interactive != nil && m.Interactive.ButtonReply != nil:
		raw = m.Interactive.ButtonReply.ID
	case m.Interactive != nil && m.Interactive.ListReply != nil:
		raw = m.Interactive.ListReply.ID
	case m.ButtonReply != nil:
		raw = m.ButtonReply.ID
	case m.Text != nil:
		raw = m.Text.Body
	}
	return strings.ToLower(strings.TrimSpace(raw))
}
