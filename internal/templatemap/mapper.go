// Package templatemap resolves placeholder tokens in pre-approved message
// templates from contact and deal context.
package templatemap

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"whatsapp-crm/internal/models"
)

// Semantic sources a token can resolve to.
const (
	SourceContactName    = "contact_name"
	SourceOfferName      = "offer_name"
	SourcePipelineStage  = "pipeline_stage"
	SourceEstimatedValue = "estimated_value"
	SourceShortDate      = "short_date"
	SourceLongDate       = "long_date"
	SourcePhone          = "phone"
	SourceOfferAlias     = "offer_alias"
)

// legacyPositional is the fixed numeric-index mapping kept for templates
// authored before named schemas existed.
var legacyPositional = []string{
	SourceContactName,
	SourceOfferName,
	SourcePipelineStage,
	SourceEstimatedValue,
	SourceShortDate,
	SourceLongDate,
	SourcePhone,
	SourceOfferAlias,
}

var tokenRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

type TemplateReader interface {
	GetTemplate(ctx context.Context, id string) (*models.Template, error)
}

type ContactReader interface {
	GetContact(ctx context.Context, waID string) (*models.Contact, error)
}

type DealReader interface {
	LatestDeal(ctx context.Context, waID string) (*models.Deal, error)
}

// Resolved carries the substituted template sections plus the positional
// parameter lists the Cloud API components array is built from.
type Resolved struct {
	Template     *models.Template
	Header       string
	Body         string
	Footer       string
	ButtonLabels []string
	HeaderParams []string
	BodyParams   []string
	Variables    map[string]string
}

type Mapper struct {
	Templates TemplateReader
	Contacts  ContactReader
	Deals     DealReader
	Now       func() time.Time
}

func NewMapper(templates TemplateReader, contacts ContactReader, deals DealReader) *Mapper {
	return &Mapper{Templates: templates, Contacts: contacts, Deals: deals, Now: time.Now}
}

// MapVariables resolves every token in the template's header, body, footer
// and button labels. Missing source data substitutes a named default so an
// unresolved token never reaches the customer. Text without tokens passes
// through untouched.
func (m *Mapper) MapVariables(ctx context.Context, templateID, waID string) (*Resolved, error) {
	tmpl, err := m.Templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	contact, err := m.Contacts.GetContact(ctx, waID)
	if err != nil {
		// Resolution still proceeds; every source falls back to its default.
		contact = nil
	}
	var deal *models.Deal
	if m.Deals != nil {
		deal, _ = m.Deals.LatestDeal(ctx, waID)
	}

	schema := map[string]string{}
	if tmpl.VariableSchema != "" {
		if err := json.Unmarshal([]byte(tmpl.VariableSchema), &schema); err != nil {
			schema = map[string]string{}
		}
	}

	values := m.sourceValues(contact, deal, waID)
	variables := map[string]string{}

	resolve := func(text string) (string, []string) {
		var params []string
		out := tokenRe.ReplaceAllStringFunc(text, func(match string) string {
			token := tokenRe.FindStringSubmatch(match)[1]
			value := m.resolveToken(token, schema, values)
			variables[token] = value
			params = append(params, value)
			return value
		})
		return out, params
	}

	res := &Resolved{Template: tmpl, Variables: variables}
	res.Header, res.HeaderParams = resolve(tmpl.HeaderText)
	res.Body, res.BodyParams = resolve(tmpl.BodyText)
	res.Footer, _ = resolve(tmpl.FooterText)

	if tmpl.ButtonLabels != "" {
		var labels []string
		if err := json.Unmarshal([]byte(tmpl.ButtonLabels), &labels); err == nil {
			for _, label := range labels {
				resolved, _ := resolve(label)
				res.ButtonLabels = append(res.ButtonLabels, resolved)
			}
		}
	}

	return res, nil
}

// resolveToken maps one token name to its value: named schema first, then
// the legacy positional map for numeric tokens, then a direct source name.
func (m *Mapper) resolveToken(token string, schema map[string]string, values map[string]string) string {
	source, ok := schema[token]
	if !ok {
		if idx, err := strconv.Atoi(token); err == nil && idx >= 1 && idx <= len(legacyPositional) {
			source = legacyPositional[idx-1]
		} else {
			source = token
		}
	}
	if v, ok := values[source]; ok && v != "" {
		return v
	}
	return sourceDefault(source, m.Now())
}

func (m *Mapper) sourceValues(contact *models.Contact, deal *models.Deal, waID string) map[string]string {
	now := m.Now()
	values := map[string]string{
		SourceShortDate: now.Format("02/01/2006"),
		SourceLongDate:  now.Format("2 January 2006"),
		SourcePhone:     waID,
	}
	if contact != nil && contact.Name != "" {
		values[SourceContactName] = contact.Name
	}
	if deal != nil {
		values[SourceOfferName] = deal.OfferName
		values[SourceOfferAlias] = deal.OfferName
		values[SourcePipelineStage] = deal.PipelineStage
		values[SourceEstimatedValue] = formatCurrency(deal.EstimatedValue, deal.Currency)
	}
	return values
}

func sourceDefault(source string, now time.Time) string {
	switch source {
	case SourceContactName:
		return "Cliente"
	case SourceOfferName, SourceOfferAlias:
		return "tu propuesta"
	case SourcePipelineStage:
		return "En proceso"
	case SourceEstimatedValue:
		return formatCurrency(0, "USD")
	case SourceShortDate:
		return now.Format("02/01/2006")
	case SourceLongDate:
		return now.Format("2 January 2006")
	case SourcePhone:
		return ""
	default:
		return "Cliente"
	}
}

// formatCurrency renders an amount with thousands separators, e.g.
// "$1,500.00" or "1,500.00 MXN".
func formatCurrency(amount float64, currency string) string {
	total := int64(math.Round(amount * 100.0))
	whole := total / 100
	cents := total % 100
	if cents < 0 {
		cents = -cents
	}

	digits := strconv.FormatInt(whole, 10)
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)
	grouped := strings.Join(parts, ",")
	if neg {
		grouped = "-" + grouped
	}

	formatted := fmt.Sprintf("%s.%02d", grouped, cents)
	if currency == "" || currency == "USD" {
		return "$" + formatted
	}
	return formatted + " " + currency
}
