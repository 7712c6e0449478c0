package models

import (
	"time"
)

// Contact represents a WhatsApp conversation partner
type Contact struct {
	WaID                  string     `gorm:"primaryKey" json:"wa_id"` // WhatsApp ID (phone number)
	Name                  string     `gorm:"type:varchar(255)" json:"name"`
	Tags                  string     `gorm:"type:text" json:"tags"` // JSON array string
	WindowExpiresAt       *time.Time `json:"window_expires_at"`     // end of the 24h free-form window, stamped by the webhook
	LastInteractionAt     *time.Time `json:"last_interaction_at"`
	LastInteractionSource string     `gorm:"type:varchar(50)" json:"last_interaction_source"` // inbound, direct_api, template, queued_automation
	DirectSentCount       int        `gorm:"default:0" json:"direct_sent_count"`
	TemplateSentCount     int        `gorm:"default:0" json:"template_sent_count"`
	QueuedSentCount       int        `gorm:"default:0" json:"queued_sent_count"`
	SequenceID            *uint      `json:"sequence_id"`
	SequencePosition      int        `gorm:"default:0" json:"sequence_position"`
	SequenceStartedAt     *time.Time `json:"sequence_started_at"`
	SequenceWaitUntil     *time.Time `json:"sequence_wait_until"` // set by pause steps
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Message represents a stored inbound or outbound WhatsApp message
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	WaID      string    `gorm:"index;not null" json:"wa_id"`
	Sender    string    `gorm:"not null" json:"sender"`
	Content   string    `gorm:"type:text" json:"content"`
	Type      string    `gorm:"type:varchar(50)" json:"type"`
	Status    string    `gorm:"type:varchar(20)" json:"status"` // received, sent, queued
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

// Template represents a pre-approved WhatsApp message template
type Template struct {
	ID             string `gorm:"primaryKey" json:"id"`
	Name           string `gorm:"type:varchar(255)" json:"name"` // provider template name
	Language       string `gorm:"type:varchar(50)" json:"language"`
	Category       string `gorm:"type:varchar(100)" json:"category"`
	Status         string `gorm:"type:varchar(50)" json:"status"` // APPROVED, REJECTED, PENDING
	HeaderType     string `gorm:"type:varchar(20)" json:"header_type"`
	HeaderText     string `gorm:"type:text" json:"header_text"`
	BodyText       string `gorm:"type:text" json:"body_text"`
	FooterText     string `gorm:"type:text" json:"footer_text"`
	ButtonLabels   string `gorm:"type:text" json:"button_labels"`   // JSON array of label strings
	VariableSchema string `gorm:"type:text" json:"variable_schema"` // JSON map: token -> semantic source
}

func (Template) TableName() string {
	return "templates"
}

// Deal represents the CRM deal associated with a contact, read-only here
type Deal struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	WaID           string    `gorm:"index;type:varchar(50)" json:"wa_id"`
	OfferName      string    `gorm:"type:varchar(255)" json:"offer_name"`
	PipelineStage  string    `gorm:"type:varchar(100)" json:"pipeline_stage"`
	EstimatedValue float64   `json:"estimated_value"`
	Currency       string    `gorm:"type:varchar(10);default:'USD'" json:"currency"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Deal) TableName() string {
	return "deals"
}

// Sequence represents a drip sequence definition
type Sequence struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Enabled   bool           `gorm:"default:true" json:"enabled"`
	Steps     []SequenceStep `gorm:"foreignKey:SequenceID;constraint:OnDelete:CASCADE;" json:"steps"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Sequence) TableName() string {
	return "sequences"
}

// SequenceStep is one ordered unit of a sequence. Steps are evaluated by
// position; NextOnTrue/NextOnFalse override linear order when set.
type SequenceStep struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	SequenceID  uint   `gorm:"index" json:"sequence_id"`
	Position    int    `gorm:"index" json:"position"`
	Type        string `gorm:"type:varchar(20)" json:"type"`         // message, pause
	ContentType string `gorm:"type:varchar(20)" json:"content_type"` // text, image, video, audio, document, template
	Content     string `gorm:"type:text" json:"content"`
	TemplateID  string `gorm:"type:varchar(255)" json:"template_id"`
	Condition   string `gorm:"type:varchar(30);default:'none'" json:"condition"` // none, if_responded, if_not_responded, if_message_contains
	Keywords    string `gorm:"type:text" json:"keywords"`                        // JSON array of strings
	NextOnTrue  *uint  `json:"next_on_true"`                                     // step ID to jump to when the condition holds
	NextOnFalse *uint  `json:"next_on_false"`
	PauseHours  int    `gorm:"default:0" json:"pause_hours"`
}

func (SequenceStep) TableName() string {
	return "sequence_steps"
}

// DeliveryAttempt is an append-only record of one transport dispatch
type DeliveryAttempt struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	WaID              string    `gorm:"index;type:varchar(50)" json:"wa_id"`
	Transport         string    `gorm:"type:varchar(30)" json:"transport"`
	Reason            string    `gorm:"type:varchar(30)" json:"reason"`
	Success           bool      `json:"success"`
	ProviderMessageID string    `gorm:"type:varchar(255)" json:"provider_message_id"`
	QueueEntryID      string    `gorm:"type:varchar(64)" json:"queue_entry_id"`
	StepID            *uint     `json:"step_id"`
	ErrorMessage      string    `gorm:"type:text" json:"error_message"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (DeliveryAttempt) TableName() string {
	return "delivery_attempts"
}

// QueueEntry is a message handed off to the browser-automation worker
type QueueEntry struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	WaID        string    `gorm:"index;type:varchar(50)" json:"wa_id"`
	MessageType string    `gorm:"type:varchar(20)" json:"message_type"`
	Content     string    `gorm:"type:text" json:"content"`
	Priority    int       `gorm:"default:0;index" json:"priority"`
	Status      string    `gorm:"type:varchar(20);default:'pending'" json:"status"` // pending, delivered, failed
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (QueueEntry) TableName() string {
	return "queue_entries"
}

// SystemSetting stores config values that survive restarts
type SystemSetting struct {
	Key   string `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
