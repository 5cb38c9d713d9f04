package whatsapp

// Cloud API limits on interactive messages.
const (
	// MaxButtons is the most quick-reply buttons one message may carry.
	MaxButtons = 3
	// MaxListRows is the most rows one list section may carry.
	MaxListRows = 10
)

// Payload is the Cloud API message envelope. Exactly one of Text or
// Interactive is set, matching Type.
type Payload struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *TextBody    `json:"text,omitempty"`
	Interactive      *Interactive `json:"interactive,omitempty"`
}

// TextBody is a plain text message body.
type TextBody struct {
	Body string `json:"body"`
}

// Interactive is a button or list message.
type Interactive struct {
	Type   string      `json:"type"`
	Header *TextHeader `json:"header,omitempty"`
	Body   TextBody    `json:"body"`
	Action Action      `json:"action"`
}

// TextHeader is the optional header of a list message.
type TextHeader struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Action carries either quick-reply buttons or list sections.
type Action struct {
	Buttons  []Button  `json:"buttons,omitempty"`
	Button   string    `json:"button,omitempty"`
	Sections []Section `json:"sections,omitempty"`
}

// Button is one quick-reply button.
type Button struct {
	Type  string `json:"type"`
	Reply Reply  `json:"reply"`
}

// Reply is the id/title pair of a button.
type Reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Section groups list rows under a title.
type Section struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

// Row is one selectable list entry.
type Row struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Text builds a plain text payload.
func Text(body string) Payload {
	return Payload{
		Type: "text",
		Text: &TextBody{Body: body},
	}
}

// Buttons builds a quick-reply button payload. At most MaxButtons replies
// are included; the platform rejects messages with more.
func Buttons(body string, replies []Reply) Payload {
	if len(replies) > MaxButtons {
		replies = replies[:MaxButtons]
	}
	buttons := make([]Button, 0, len(replies))
	for _, r := range replies {
		buttons = append(buttons, Button{Type: "reply", Reply: r})
	}
	return Payload{
		Type: "interactive",
		Interactive: &Interactive{
			Type:   "button",
			Body:   TextBody{Body: body},
			Action: Action{Buttons: buttons},
		},
	}
}

// List builds a single-section list payload. At most MaxListRows rows are
// included.
func List(header, body, buttonLabel, sectionTitle string, rows []Row) Payload {
	if len(rows) > MaxListRows {
		rows = rows[:MaxListRows]
	}
	return Payload{
		Type: "interactive",
		Interactive: &Interactive{
			Type:   "list",
			Header: &TextHeader{Type: "text", Text: header},
			Body:   TextBody{Body: body},
			Action: Action{
				Button:   buttonLabel,
				Sections: []Section{{Title: sectionTitle, Rows: rows}},
			},
		},
	}
}

// BodyText returns the human-visible body of the payload, used for the
// message audit log.
func (p Payload) BodyText() string {
	switch {
	case p.Text != nil:
		return p.Text.Body
	case p.Interactive != nil:
		return p.Interactive.Body.Body
	default:
		return ""
	}
}
