package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-crm/internal/decision"
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/templatemap"
	"whatsapp-crm/internal/whatsapp"
)

type fakeSender struct {
	textErr     error
	uploadErr   error
	textCalls   int
	mediaCalls  int
	tmplCalls   int
	uploadCalls int
	lastBody    string
}

func (f *fakeSender) SendText(ctx context.Context, to, body, replyToID string) (string, error) {
	f.textCalls++
	f.lastBody = body
	if f.textErr != nil {
		return "", f.textErr
	}
	return "wamid.text", nil
}

func (f *fakeSender) SendMedia(ctx context.Context, to, mediaType, mediaID, caption, filename string) (string, error) {
	f.mediaCalls++
	return "wamid.media", nil
}

func (f *fakeSender) SendTemplate(ctx context.Context, to, templateName, languageCode string, components []whatsapp.ComponentObj) (string, error) {
	f.tmplCalls++
	return "wamid.template", nil
}

func (f *fakeSender) UploadMedia(ctx context.Context, fileData []byte, mimeType, filename string) (*whatsapp.MediaResponse, error) {
	f.uploadCalls++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &whatsapp.MediaResponse{ID: "media-123"}, nil
}

type fakeQueue struct {
	err     error
	entries []string
}

func (f *fakeQueue) Enqueue(ctx context.Context, waID, messageType, content string, priority int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	id := "q-entry-1"
	f.entries = append(f.entries, id)
	return id, nil
}

type fakeAttemptStore struct {
	attempts      []models.DeliveryAttempt
	outboundCalls int
	lastTransport string
	messages      []models.Message
}

func (f *fakeAttemptStore) RecordAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error {
	f.attempts = append(f.attempts, *attempt)
	return nil
}

func (f *fakeAttemptStore) RecordOutbound(ctx context.Context, waID, transport string, at time.Time) error {
	f.outboundCalls++
	f.lastTransport = transport
	return nil
}

func (f *fakeAttemptStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	f.messages = append(f.messages, *msg)
	return nil
}

type fakeTemplates struct {
	template *models.Template
	err      error
}

func (f *fakeTemplates) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	return f.template, f.err
}

type fakeMapper struct {
	resolved *templatemap.Resolved
	err      error
}

func (f *fakeMapper) MapVariables(ctx context.Context, templateID, waID string) (*templatemap.Resolved, error) {
	return f.resolved, f.err
}

func newTestRouter(sender *fakeSender, queue *fakeQueue, st *fakeAttemptStore, templates *fakeTemplates, mapper *fakeMapper) *Router {
	if templates == nil {
		templates = &fakeTemplates{}
	}
	if mapper == nil {
		mapper = &fakeMapper{}
	}
	return NewRouter(st, templates, sender, mapper, queue, nil)
}

func TestSendDirectSuccess(t *testing.T) {
	sender := &fakeSender{}
	queue := &fakeQueue{}
	st := &fakeAttemptStore{}
	r := newTestRouter(sender, queue, st, nil, nil)

	dec := decision.Decision{Method: decision.MethodDirectAPI, Reason: decision.ReasonWindow24hActive}
	res := r.Send(context.Background(), "5215550001", dec, &Payload{Type: "text", Text: "hola"})

	assert.True(t, res.Success)
	assert.Equal(t, decision.MethodDirectAPI, res.TransportUsed)
	assert.Equal(t, "wamid.text", res.ProviderMessageID)
	assert.Empty(t, queue.entries)
	require.Len(t, st.attempts, 1)
	assert.True(t, st.attempts[0].Success)
	assert.Equal(t, 1, st.outboundCalls)
	assert.Equal(t, "direct_api", st.lastTransport)
	require.Len(t, st.messages, 1)
	assert.Equal(t, "sent", st.messages[0].Status)
}

func TestSendDirectFailureFallsBackToQueueOnce(t *testing.T) {
	sender := &fakeSender{textErr: errors.New("provider 500")}
	queue := &fakeQueue{}
	st := &fakeAttemptStore{}
	r := newTestRouter(sender, queue, st, nil, nil)

	dec := decision.Decision{Method: decision.MethodDirectAPI, Reason: decision.ReasonWindow72hActive}
	res := r.Send(context.Background(), "5215550001", dec, &Payload{Type: "text", Text: "hola"})

	// Handled fallback is reported as success on the queue transport.
	assert.True(t, res.Success)
	assert.Equal(t, decision.MethodQueuedAutomation, res.TransportUsed)
	assert.Equal(t, "q-entry-1", res.QueueEntryID)
	assert.Len(t, queue.entries, 1)

	require.Len(t, st.attempts, 2)
	assert.Equal(t, "direct_api", st.attempts[0].Transport)
	assert.False(t, st.attempts[0].Success)
	assert.Contains(t, st.attempts[0].ErrorMessage, "provider 500")
	assert.Equal(t, "queued_automation", st.attempts[1].Transport)
	assert.True(t, st.attempts[1].Success)

	// Counters update once, for the transport that won.
	assert.Equal(t, 1, st.outboundCalls)
	assert.Equal(t, "queued_automation", st.lastTransport)
}

func TestSendForcedDirectFailureDoesNotFallBack(t *testing.T) {
	sender := &fakeSender{textErr: errors.New("provider 500")}
	queue := &fakeQueue{}
	st := &fakeAttemptStore{}
	r := newTestRouter(sender, queue, st, nil, nil)

	dec := decision.Forced(decision.MethodDirectAPI)
	res := r.Send(context.Background(), "5215550001", dec, &Payload{Type: "text", Text: "hola"})

	assert.False(t, res.Success)
	assert.Empty(t, queue.entries)
	require.Len(t, st.attempts, 1)
	assert.Equal(t, 0, st.outboundCalls)
}

func TestSendUnapprovedTemplateRejectedBeforeAnyNetworkCall(t *testing.T) {
	sender := &fakeSender{}
	queue := &fakeQueue{}
	st := &fakeAttemptStore{}
	templates := &fakeTemplates{template: &models.Template{ID: "tpl-1", Status: "PENDING"}}
	r := newTestRouter(sender, queue, st, templates, nil)

	dec := decision.Forced(decision.MethodTemplate)
	res := r.Send(context.Background(), "5215550001", dec, &Payload{Type: "template", TemplateID: "tpl-1"})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not approved")
	assert.Zero(t, sender.tmplCalls)
	assert.Zero(t, sender.textCalls)
	assert.Empty(t, queue.entries)

	require.Len(t, st.attempts, 1)
	assert.False(t, st.attempts[0].Success)
	assert.Equal(t, 0, st.outboundCalls)
}

func TestSendTemplateApprovalIsCaseInsensitive(t *testing.T) {
	sender := &fakeSender{}
	st := &fakeAttemptStore{}
	templates := &fakeTemplates{template: &models.Template{ID: "tpl-1", Name: "followup", Language: "es_MX", Status: "approved"}}
	mapper := &fakeMapper{resolved: &templatemap.Resolved{
		Template:   &models.Template{Name: "followup", Language: "es_MX"},
		BodyParams: []string{"Ana"},
	}}
	r := newTestRouter(sender, &fakeQueue{}, st, templates, mapper)

	res := r.Send(context.Background(), "5215550001", decision.Forced(decision.MethodTemplate), &Payload{Type: "template", TemplateID: "tpl-1"})

	assert.True(t, res.Success)
	assert.Equal(t, 1, sender.tmplCalls)
	assert.Equal(t, "template", st.lastTransport)
}

func TestSendMediaUploadFailureShortCircuits(t *testing.T) {
	sender := &fakeSender{uploadErr: errors.New("upload rejected")}
	queue := &fakeQueue{}
	st := &fakeAttemptStore{}
	r := newTestRouter(sender, queue, st, nil, nil)

	dec := decision.Decision{Method: decision.MethodDirectAPI, Reason: decision.ReasonWindow24hActive}
	res := r.Send(context.Background(), "5215550001", dec, &Payload{
		Type:          "image",
		Caption:       "mira esto",
		MediaBytes:    []byte{0x1},
		MediaMime:     "image/png",
		MediaFilename: "foto.png",
	})

	// Upload failure counts as a failed direct attempt and falls back.
	assert.True(t, res.Success)
	assert.Equal(t, decision.MethodQueuedAutomation, res.TransportUsed)
	assert.Equal(t, 1, sender.uploadCalls)
	assert.Zero(t, sender.mediaCalls)
	require.Len(t, st.attempts, 2)
	assert.Contains(t, st.attempts[0].ErrorMessage, "media upload failed")
}

func TestSendMediaWithPreUploadedIDSkipsUpload(t *testing.T) {
	sender := &fakeSender{}
	st := &fakeAttemptStore{}
	r := newTestRouter(sender, &fakeQueue{}, st, nil, nil)

	dec := decision.Decision{Method: decision.MethodDirectAPI, Reason: decision.ReasonWindow24hActive}
	res := r.Send(context.Background(), "5215550001", dec, &Payload{Type: "image", MediaID: "media-999"})

	assert.True(t, res.Success)
	assert.Zero(t, sender.uploadCalls)
	assert.Equal(t, 1, sender.mediaCalls)
}

func TestSendQueueDecisionGoesStraightToQueue(t *testing.T) {
	sender := &fakeSender{}
	queue := &fakeQueue{}
	st := &fakeAttemptStore{}
	r := newTestRouter(sender, queue, st, nil, nil)

	dec := decision.Decision{Method: decision.MethodQueuedAutomation, Reason: decision.ReasonWindowClosed}
	res := r.Send(context.Background(), "5215550001", dec, &Payload{Type: "text", Text: "hola"})

	assert.True(t, res.Success)
	assert.Equal(t, decision.MethodQueuedAutomation, res.TransportUsed)
	assert.Zero(t, sender.textCalls)
	assert.Len(t, queue.entries, 1)
	require.Len(t, st.messages, 1)
	assert.Equal(t, "queued", st.messages[0].Status)
}

func TestSendAllTransportsFailed(t *testing.T) {
	sender := &fakeSender{textErr: errors.New("provider down")}
	queue := &fakeQueue{err: errors.New("queue full")}
	st := &fakeAttemptStore{}
	r := newTestRouter(sender, queue, st, nil, nil)

	dec := decision.Decision{Method: decision.MethodDirectAPI, Reason: decision.ReasonWindow24hActive}
	res := r.Send(context.Background(), "5215550001", dec, &Payload{Type: "text", Text: "hola"})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "queue full")
	require.Len(t, st.attempts, 2)
	assert.Equal(t, 0, st.outboundCalls)
	assert.Empty(t, st.messages)
}
