package delivery

import (
	"context"
	"fmt"

	"whatsapp-crm/internal/decision"
	"whatsapp-crm/internal/templatemap"
	"whatsapp-crm/internal/whatsapp"
)

// Sender is the slice of the Cloud API client the strategies depend on.
type Sender interface {
	SendText(ctx context.Context, to, body, replyToID string) (string, error)
	SendMedia(ctx context.Context, to, mediaType, mediaID, caption, filename string) (string, error)
	SendTemplate(ctx context.Context, to, templateName, languageCode string, components []whatsapp.ComponentObj) (string, error)
	UploadMedia(ctx context.Context, fileData []byte, mimeType, filename string) (*whatsapp.MediaResponse, error)
}

// Enqueuer hands messages to the browser-automation queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, waID, messageType, content string, priority int) (string, error)
}

// VariableMapper resolves template placeholders at dispatch time.
type VariableMapper interface {
	MapVariables(ctx context.Context, templateID, waID string) (*templatemap.Resolved, error)
}

// Strategy is one transport in the router's ordered attempt list.
type Strategy interface {
	Method() decision.Method
	// Attempt performs one dispatch. Exactly one of providerMessageID or
	// queueEntryID is set on success.
	Attempt(ctx context.Context, waID string, p *Payload) (providerMessageID, queueEntryID string, err error)
}

// --- direct_api ---

type directStrategy struct {
	sender Sender
}

func (s *directStrategy) Method() decision.Method {
	return decision.MethodDirectAPI
}

func (s *directStrategy) Attempt(ctx context.Context, waID string, p *Payload) (string, string, error) {
	switch p.Type {
	case "text", "":
		id, err := s.sender.SendText(ctx, waID, p.Text, p.ReplyToID)
		return id, "", err
	case "image", "video", "audio", "document":
		mediaID := p.MediaID
		if mediaID == "" {
			// Upload-then-send: a failed upload short-circuits with no send call.
			resp, err := s.sender.UploadMedia(ctx, p.MediaBytes, p.MediaMime, p.MediaFilename)
			if err != nil {
				return "", "", fmt.Errorf("media upload failed: %w", err)
			}
			mediaID = resp.ID
		}
		id, err := s.sender.SendMedia(ctx, waID, p.Type, mediaID, p.Caption, p.MediaFilename)
		return id, "", err
	default:
		return "", "", fmt.Errorf("unsupported payload type %q", p.Type)
	}
}

// --- template ---

type templateStrategy struct {
	sender Sender
	mapper VariableMapper
}

func (s *templateStrategy) Method() decision.Method {
	return decision.MethodTemplate
}

func (s *templateStrategy) Attempt(ctx context.Context, waID string, p *Payload) (string, string, error) {
	resolved, err := s.mapper.MapVariables(ctx, p.TemplateID, waID)
	if err != nil {
		return "", "", err
	}

	id, err := s.sender.SendTemplate(ctx, waID, resolved.Template.Name, resolved.Template.Language, buildComponents(resolved))
	return id, "", err
}

// buildComponents assembles the positional components array from the
// resolved variable lists.
func buildComponents(res *templatemap.Resolved) []whatsapp.ComponentObj {
	var components []whatsapp.ComponentObj

	if len(res.HeaderParams) > 0 {
		components = append(components, whatsapp.ComponentObj{
			Type:       "header",
			Parameters: textParams(res.HeaderParams),
		})
	}
	if len(res.BodyParams) > 0 {
		components = append(components, whatsapp.ComponentObj{
			Type:       "body",
			Parameters: textParams(res.BodyParams),
		})
	}
	return components
}

func textParams(values []string) []whatsapp.ParameterObj {
	params := make([]whatsapp.ParameterObj, len(values))
	for i, v := range values {
		params[i] = whatsapp.ParameterObj{Type: "text", Text: v}
	}
	return params
}

// --- queued_automation ---

type queueStrategy struct {
	queue Enqueuer
}

func (s *queueStrategy) Method() decision.Method {
	return decision.MethodQueuedAutomation
}

func (s *queueStrategy) Attempt(ctx context.Context, waID string, p *Payload) (string, string, error) {
	msgType := p.Type
	if msgType == "" {
		msgType = "text"
	}
	entryID, err := s.queue.Enqueue(ctx, waID, msgType, p.queueContent(), p.Priority)
	if err != nil {
		return "", "", err
	}
	return "", entryID, nil
}
