package webhook

import (
	"context"
	"log"
	"net/http"
	"time"

	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/sequence"
	"whatsapp-crm/internal/store"
	"whatsapp-crm/internal/window"
	pkgmodels "whatsapp-crm/pkg/models"

	"github.com/gin-gonic/gin"
)

// Notifier pushes inbound-message events to dashboard clients. May be nil.
type Notifier interface {
	BroadcastEvent(eventType string, data interface{})
}

type Handler struct {
	Config   *config.Config
	Store    *store.Store
	Runner   *sequence.Runner
	Notifier Notifier
}

func NewHandler(cfg *config.Config, st *store.Store, runner *sequence.Runner, notifier Notifier) *Handler {
	return &Handler{
		Config:   cfg,
		Store:    st,
		Runner:   runner,
		Notifier: notifier,
	}
}

func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "" && token != "" {
		if mode == "subscribe" && token == h.Config.VerifyToken {
			log.Println("Webhook verified successfully!")
			c.String(http.StatusOK, challenge)
		} else {
			c.Status(http.StatusForbidden)
		}
	} else {
		c.Status(http.StatusBadRequest)
	}
}

// HandleMessage processes inbound messages: it stamps the contact's 24h
// window, stores the message, and nudges any running sequence.
func (h *Handler) HandleMessage(c *gin.Context) {
	var payload pkgmodels.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("Error binding JSON: %v", err)
		c.Status(http.StatusBadRequest)
		return
	}

	if len(payload.Entry) > 0 && len(payload.Entry[0].Changes) > 0 {
		value := payload.Entry[0].Changes[0].Value

		name := ""
		if len(value.Contacts) > 0 {
			name = value.Contacts[0].Profile.Name
		}

		if len(value.Messages) > 0 {
			message := value.Messages[0]

			var content string
			switch message.Type {
			case "text":
				content = message.Text.Body
			case "image":
				if message.Image != nil {
					content = "[image]:" + message.Image.ID
					if message.Image.Caption != "" {
						content += ":" + message.Image.Caption
					}
				}
			case "video":
				if message.Video != nil {
					content = "[video]:" + message.Video.ID
					if message.Video.Caption != "" {
						content += ":" + message.Video.Caption
					}
				}
			case "audio":
				if message.Audio != nil {
					content = "[audio]:" + message.Audio.ID
				}
			case "document":
				if message.Document != nil {
					content = "[document]:" + message.Document.ID
					if message.Document.Filename != "" {
						content += ":" + message.Document.Filename
					}
				}
			default:
				content = "[" + message.Type + "]"
			}
			log.Printf("Received %s message from %s", message.Type, message.From)

			now := time.Now()
			ctx := c.Request.Context()

			contact, err := h.Store.TouchInbound(ctx, message.From, name, now, now.Add(window.ShortWindowDuration))
			if err != nil {
				log.Printf("Error updating contact %s: %v", message.From, err)
			}

			msg := &models.Message{
				WaID:    message.From,
				Sender:  message.From,
				Content: content,
				Type:    message.Type,
				Status:  "received",
			}
			if err := h.Store.SaveMessage(ctx, msg); err != nil {
				log.Printf("Error storing message: %v", err)
			}

			if h.Notifier != nil {
				h.Notifier.BroadcastEvent("new_message", msg)
			}

			// A reply can satisfy if_responded / keyword branches of a
			// running sequence.
			if h.Runner != nil && contact != nil && contact.SequenceID != nil {
				waID := message.From
				go func() {
					if err := h.Runner.Advance(context.Background(), waID); err != nil {
						log.Printf("Sequence advance after inbound for %s: %v", waID, err)
					}
				}()
			}
		}
	}

	c.Status(http.StatusOK)
}
