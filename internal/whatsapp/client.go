package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"whatsapp-crm/internal/config"
)

type Client struct {
	Config *config.Config
	http   *http.Client
}

func NewClient(cfg *config.Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		Config: cfg,
		http:   &http.Client{Timeout: timeout},
	}
}

// APIError is a Graph API rejection (HTTP >= 400). Distinct from transport
// errors so callers can tell a provider "no" from a network failure.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph API error: status %d - %s", e.StatusCode, e.Body)
}

// --- Message Structures ---

type GenericMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	RecipientType    string       `json:"recipient_type,omitempty"`
	Text             *TextObj     `json:"text,omitempty"`
	Image            *MediaObj    `json:"image,omitempty"`
	Video            *MediaObj    `json:"video,omitempty"`
	Audio            *MediaObj    `json:"audio,omitempty"`
	Document         *MediaObj    `json:"document,omitempty"`
	Template         *TemplateObj `json:"template,omitempty"`
	Context          *ContextObj  `json:"context,omitempty"`
}

type TextObj struct {
	Body       string `json:"body"`
	PreviewUrl bool   `json:"preview_url,omitempty"`
}

type MediaObj struct {
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"` // For documents
}

// ContextObj carries reply-to linkage.
type ContextObj struct {
	MessageID string `json:"message_id"`
}

type TemplateObj struct {
	Name       string         `json:"name"`
	Language   LanguageObj    `json:"language"`
	Components []ComponentObj `json:"components,omitempty"`
}

type LanguageObj struct {
	Code string `json:"code"`
}

type ComponentObj struct {
	Type       string         `json:"type"`
	SubType    string         `json:"sub_type,omitempty"`
	Parameters []ParameterObj `json:"parameters"`
	Index      string         `json:"index,omitempty"` // For buttons
}

type ParameterObj struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type messageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// --- Helper Functions ---

func (c *Client) sendRequest(ctx context.Context, method, url string, body interface{}, headers map[string]string) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.Config.WhatsAppToken)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return respBody, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// --- Messaging Methods ---

// SendRawMessage posts a message envelope and returns the provider message id.
func (c *Client) SendRawMessage(ctx context.Context, msg GenericMessage) (string, error) {
	if msg.MessagingProduct == "" {
		msg.MessagingProduct = "whatsapp"
	}
	url := fmt.Sprintf("%s/%s/messages", c.Config.GraphAPIBaseURL, c.Config.PhoneNumberID)
	respBody, err := c.sendRequest(ctx, "POST", url, msg, nil)
	if err != nil {
		return "", err
	}

	var parsed messageResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Messages) == 0 {
		return "", nil
	}
	return parsed.Messages[0].ID, nil
}

func (c *Client) SendText(ctx context.Context, to, body, replyToID string) (string, error) {
	msg := GenericMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text: &TextObj{
			Body: body,
		},
	}
	if replyToID != "" {
		msg.Context = &ContextObj{MessageID: replyToID}
	}
	return c.SendRawMessage(ctx, msg)
}

// SendMedia sends a previously uploaded media object by handle.
func (c *Client) SendMedia(ctx context.Context, to, mediaType, mediaID, caption, filename string) (string, error) {
	media := &MediaObj{ID: mediaID, Caption: caption}
	msg := GenericMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             mediaType,
	}
	switch mediaType {
	case "image":
		msg.Image = media
	case "video":
		msg.Video = media
	case "audio":
		media.Caption = ""
		msg.Audio = media
	case "document":
		media.Filename = filename
		msg.Document = media
	default:
		return "", fmt.Errorf("unsupported media type %q", mediaType)
	}
	return c.SendRawMessage(ctx, msg)
}

func (c *Client) SendTemplate(ctx context.Context, to, templateName, languageCode string, components []ComponentObj) (string, error) {
	msg := GenericMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: &TemplateObj{
			Name: templateName,
			Language: LanguageObj{
				Code: languageCode,
			},
			Components: components,
		},
	}
	return c.SendRawMessage(ctx, msg)
}

// --- Media Methods ---

type MediaResponse struct {
	ID string `json:"id"`
}

// UploadMedia pushes raw bytes to the provider and returns the media handle
// used by a follow-up send call.
func (c *Client) UploadMedia(ctx context.Context, fileData []byte, mimeType, filename string) (*MediaResponse, error) {
	url := fmt.Sprintf("%s/%s/media", c.Config.GraphAPIBaseURL, c.Config.PhoneNumberID)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	part.Write(fileData)

	writer.WriteField("messaging_product", "whatsapp")
	writer.WriteField("type", mimeType)
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.Config.WhatsAppToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var mediaResp MediaResponse
	if err := json.Unmarshal(respBody, &mediaResp); err != nil {
		return nil, err
	}

	return &mediaResp, nil
}

// --- Phone Number Methods ---

// CheckNumberStatus reads the verification status of a phone number. Returns
// the raw provider enum, e.g. "VERIFIED".
func (c *Client) CheckNumberStatus(ctx context.Context, phoneNumberID string) (string, error) {
	url := fmt.Sprintf("%s/%s?fields=code_verification_status", c.Config.GraphAPIBaseURL, phoneNumberID)
	resp, err := c.sendRequest(ctx, "GET", url, nil, nil)
	if err != nil {
		return "", err
	}

	var obj struct {
		CodeVerificationStatus string `json:"code_verification_status"`
	}
	if err := json.Unmarshal(resp, &obj); err != nil {
		return "", err
	}
	return obj.CodeVerificationStatus, nil
}
