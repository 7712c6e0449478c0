package templatemap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-crm/internal/models"
)

type fixture struct {
	template *models.Template
	contact  *models.Contact
	deal     *models.Deal

	contactErr error
}

func (f *fixture) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	if f.template == nil {
		return nil, errors.New("template not found")
	}
	return f.template, nil
}

func (f *fixture) GetContact(ctx context.Context, waID string) (*models.Contact, error) {
	if f.contactErr != nil {
		return nil, f.contactErr
	}
	return f.contact, nil
}

func (f *fixture) LatestDeal(ctx context.Context, waID string) (*models.Deal, error) {
	return f.deal, nil
}

func newTestMapper(f *fixture) *Mapper {
	m := NewMapper(f, f, f)
	m.Now = func() time.Time { return time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC) }
	return m
}

func TestMapVariablesLegacyPositional(t *testing.T) {
	f := &fixture{
		template: &models.Template{
			ID:       "tpl-1",
			BodyText: "Hola {{1}}, tu oferta {{2}} está en etapa {{3}} por {{4}}.",
		},
		contact: &models.Contact{WaID: "5215550001", Name: "Ana"},
		deal:    &models.Deal{OfferName: "Plan Premium", PipelineStage: "Negociación", EstimatedValue: 1500, Currency: "USD"},
	}

	res, err := newTestMapper(f).MapVariables(context.Background(), "tpl-1", "5215550001")
	require.NoError(t, err)
	assert.Equal(t, "Hola Ana, tu oferta Plan Premium está en etapa Negociación por $1,500.00.", res.Body)
	assert.Equal(t, []string{"Ana", "Plan Premium", "Negociación", "$1,500.00"}, res.BodyParams)
}

func TestMapVariablesNamedSchemaOverridesPositional(t *testing.T) {
	f := &fixture{
		template: &models.Template{
			ID:             "tpl-2",
			BodyText:       "Hola {{1}}",
			VariableSchema: `{"1":"phone"}`,
		},
		contact: &models.Contact{WaID: "5215550001", Name: "Ana"},
	}

	res, err := newTestMapper(f).MapVariables(context.Background(), "tpl-2", "5215550001")
	require.NoError(t, err)
	assert.Equal(t, "Hola 5215550001", res.Body)
}

func TestMapVariablesNamedTokens(t *testing.T) {
	f := &fixture{
		template: &models.Template{
			ID:       "tpl-3",
			BodyText: "Hola {{ contact_name }}, seguimos con {{offer_name}}.",
		},
		contact: &models.Contact{WaID: "5215550001", Name: "Ana"},
		deal:    &models.Deal{OfferName: "Plan Premium"},
	}

	res, err := newTestMapper(f).MapVariables(context.Background(), "tpl-3", "5215550001")
	require.NoError(t, err)
	assert.Equal(t, "Hola Ana, seguimos con Plan Premium.", res.Body)
	assert.Equal(t, "Ana", res.Variables["contact_name"])
}

func TestMapVariablesDefaultsWhenSourcesMissing(t *testing.T) {
	f := &fixture{
		template: &models.Template{
			ID:       "tpl-4",
			BodyText: "Hola {{1}}, sobre {{2}}: etapa {{3}}, valor {{4}}.",
		},
		contact: &models.Contact{WaID: "5215550001"}, // no name, no deal
	}

	res, err := newTestMapper(f).MapVariables(context.Background(), "tpl-4", "5215550001")
	require.NoError(t, err)
	assert.Equal(t, "Hola Cliente, sobre tu propuesta: etapa En proceso, valor $0.00.", res.Body)
}

func TestMapVariablesContactLookupFailureDegradesToDefaults(t *testing.T) {
	f := &fixture{
		template:   &models.Template{ID: "tpl-5", BodyText: "Hola {{1}}"},
		contactErr: errors.New("db unavailable"),
	}

	res, err := newTestMapper(f).MapVariables(context.Background(), "tpl-5", "5215550001")
	require.NoError(t, err)
	assert.Equal(t, "Hola Cliente", res.Body)
}

func TestMapVariablesHeaderWithoutTokensUntouched(t *testing.T) {
	f := &fixture{
		template: &models.Template{
			ID:         "tpl-6",
			HeaderText: "Recordatorio de cita",
			BodyText:   "Nos vemos el {{5}}",
		},
		contact: &models.Contact{WaID: "5215550001", Name: "Ana"},
	}

	res, err := newTestMapper(f).MapVariables(context.Background(), "tpl-6", "5215550001")
	require.NoError(t, err)
	assert.Equal(t, "Recordatorio de cita", res.Header)
	assert.Empty(t, res.HeaderParams)
	assert.Equal(t, "Nos vemos el 05/03/2026", res.Body)
	assert.Equal(t, []string{"05/03/2026"}, res.BodyParams)
}

func TestMapVariablesButtonsAndFooter(t *testing.T) {
	f := &fixture{
		template: &models.Template{
			ID:           "tpl-7",
			BodyText:     "Hola {{1}}",
			FooterText:   "Enviado el {{5}}",
			ButtonLabels: `["Ver {{2}}","No gracias"]`,
		},
		contact: &models.Contact{WaID: "5215550001", Name: "Ana"},
		deal:    &models.Deal{OfferName: "Plan Premium"},
	}

	res, err := newTestMapper(f).MapVariables(context.Background(), "tpl-7", "5215550001")
	require.NoError(t, err)
	assert.Equal(t, "Enviado el 05/03/2026", res.Footer)
	assert.Equal(t, []string{"Ver Plan Premium", "No gracias"}, res.ButtonLabels)
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$1,500.00", formatCurrency(1500, "USD"))
	assert.Equal(t, "$0.00", formatCurrency(0, ""))
	assert.Equal(t, "$1,234,567.89", formatCurrency(1234567.89, "USD"))
	assert.Equal(t, "2,500.50 MXN", formatCurrency(2500.50, "MXN"))
}
