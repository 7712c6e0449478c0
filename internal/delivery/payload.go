package delivery

import (
	"whatsapp-crm/internal/decision"
)

// Payload is the message content handed to the router. Type selects the
// envelope; template sends carry only the TemplateID and are resolved at
// dispatch time.
type Payload struct {
	Type          string `json:"type"` // text, image, video, audio, document, template
	Text          string `json:"text"`
	Caption       string `json:"caption"`
	MediaBytes    []byte `json:"-"`
	MediaMime     string `json:"media_mime"`
	MediaFilename string `json:"media_filename"`
	MediaID       string `json:"media_id"` // pre-uploaded provider handle, skips the upload step
	TemplateID    string `json:"template_id"`
	ReplyToID     string `json:"reply_to_id"`
	Priority      int    `json:"priority"`
	StepID        *uint  `json:"step_id"`
}

// queueContent is what the automation worker types into the browser.
func (p *Payload) queueContent() string {
	if p.Text != "" {
		return p.Text
	}
	return p.Caption
}

// Result is the outcome the caller receives. A direct send that fell back to
// the queue reports Success=true with TransportUsed=queued_automation; the
// handled fallback is deliberately not an error.
type Result struct {
	Success           bool            `json:"success"`
	TransportUsed     decision.Method `json:"transport_used"`
	Reason            decision.Reason `json:"reason"`
	ProviderMessageID string          `json:"provider_message_id,omitempty"`
	QueueEntryID      string          `json:"queue_entry_id,omitempty"`
	Error             string          `json:"error,omitempty"`
}
