package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/shopspring/decimal"

	"github.com/pavitra93/go-property-management/shared/finance"
	"github.com/pavitra93/go-property-management/shared/models"
)

// PnLFacts is the input of a profit and loss narrative
type PnLFacts struct {
	Organization string      `json:"organization"`
	Currency     string      `json:"currency"`
	Statement    finance.PnL `json:"statement"`
	Properties   int         `json:"properties"`
}

// MarketFacts is the input of a market research brief
type MarketFacts struct {
	Name          string           `json:"name"`
	Type          string           `json:"type"`
	Address       string           `json:"address"`
	City          string           `json:"city"`
	Postcode      string           `json:"postcode"`
	Units         int              `json:"units"`
	Bedrooms      int              `json:"bedrooms"`
	Currency      string           `json:"currency"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"`
	CurrentRent   decimal.Decimal  `json:"current_monthly_rent"`
	Occupied      bool             `json:"occupied"`
}

// ReminderFacts is the input of a rent reminder draft
type ReminderFacts struct {
	Organization    string `json:"organization"`
	TenantName      string `json:"tenant_name"`
	TenantEmail     string `json:"tenant_email,omitempty"`
	PropertyName    string `json:"property_name"`
	TotalOwed       string `json:"total_owed"`
	RentOwed        string `json:"rent_owed"`
	DepositOwed     string `json:"deposit_owed"`
	ChargesOwed     string `json:"service_charges_owed"`
	OldestUnpaidDue string `json:"oldest_unpaid_due"`
	DaysOverdue     int    `json:"days_overdue"`
}

const systemPrompt = "You are an assistant for a residential property management company. " +
	"Use only the facts provided. Do not invent figures. Answer in plain text."

var promptTemplates = template.Must(template.New("prompts").Parse(`
{{define "pnl"}}Write a short narrative summary of this profit and loss statement for {{.Organization}}.
Amounts are in {{.Currency}}. Call out the largest expense categories, months where net income
was negative and the overall trend. Finish with two practical suggestions.{{end}}
{{define "market_research"}}Write a market research brief for the property below. Cover typical
rents for comparable {{.Type}} properties in {{.City}}, whether the current rent looks high or low,
and the main risks for a landlord in the area. Amounts are in {{.Currency}}.{{end}}
{{define "reminder"}}Draft a polite but firm email from {{.Organization}} to {{.TenantName}} about
unpaid rent at {{.PropertyName}}. State the amount owed ({{.TotalOwed}}) and how long it has been
overdue. Ask them to pay or get in touch within seven days. Do not threaten legal action.{{end}}
`))

// buildPrompt renders the fixed instructions for kind and appends the stored facts
func buildPrompt(kind models.ReportKind, input string) (Prompt, error) {
	var facts interface{}
	switch kind {
	case models.ReportProfitAndLoss:
		facts = &PnLFacts{}
	case models.ReportMarketResearch:
		facts = &MarketFacts{}
	case models.ReportReminder:
		facts = &ReminderFacts{}
	default:
		return Prompt{}, fmt.Errorf("unknown report kind %q", kind)
	}
	if err := json.Unmarshal([]byte(input), facts); err != nil {
		return Prompt{}, fmt.Errorf("failed to decode report input: %w", err)
	}

	var buf bytes.Buffer
	if err := promptTemplates.ExecuteTemplate(&buf, string(kind), facts); err != nil {
		return Prompt{}, fmt.Errorf("failed to render prompt: %w", err)
	}
	pretty, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return Prompt{}, err
	}
	buf.WriteString("\n\nFacts:\n")
	buf.Write(pretty)

	return Prompt{System: systemPrompt, User: buf.String()}, nil
}
