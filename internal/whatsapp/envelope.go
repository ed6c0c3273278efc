package whatsapp

// Envelope is the provider's webhook payload shape. Only the first
// entry/change is meaningful; the provider batches messages and delivery
// statuses under entry[0].changes[0].value.
type Envelope struct {
	Entry []EnvelopeEntry `json:"entry"`
}

type EnvelopeEntry struct {
	Changes []EnvelopeChange `json:"changes"`
}

type EnvelopeChange struct {
	Value EnvelopeValue `json:"value"`
}

type EnvelopeValue struct {
	Messages []Message `json:"messages"`
	Statuses []Status  `json:"statuses"`
}

// Message is one inbound message. Transient; exists only for the duration
// of a webhook invocation and is never persisted verbatim.
type Message struct {
	ID   string    `json:"id"`
	From string    `json:"from"`
	Type string    `json:"type"`
	Text *TextBody `json:"text,omitempty"`
}

type TextBody struct {
	Body string `json:"body"`
}

// Status is a delivery/read receipt. Receipts are acknowledged and ignored.
type Status struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Value returns entry[0].changes[0].value, or nil when the envelope does
// not have that shape.
func (e *Envelope) Value() *EnvelopeValue {
	if e == nil || len(e.Entry) == 0 || len(e.Entry[0].Changes) == 0 {
		return nil
	}
	return &e.Entry[0].Changes[0].Value
}

// TextContent returns the message body for text messages, or "".
func (m Message) TextContent() string {
	if m.Text == nil {
		return ""
	}
	return m.Text.Body
}
