package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/spigell/rfp-responder/internal/ai"
	"github.com/spigell/rfp-responder/internal/rfp"
)

const (
	stageDraft       = "email drafting"
	pendingID        = "TBD"
	defaultSignature = "Procurement Team"
)

var (
	draftPrompt = mustPrompt("draft.md")
	draftConfig = ai.GenerationConfig{Temperature: 0.4, TopK: 40, TopP: 0.95, MaxOutputTokens: 1536, JSON: true}

	amountPrinter = message.NewPrinter(language.English)
)

// Email is a drafted RFP invitation.
type Email struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Drafter writes RFP invitation emails.
type Drafter struct {
	caller
}

func NewDrafter(generator ai.Generator, log *zap.Logger, maxLogLength int) *Drafter {
	return &Drafter{caller: newCaller(generator, log, maxLogLength)}
}

// Draft always returns an email whose subject carries the RFP id. A failed
// or unparseable generation is replaced by FallbackEmail.
func (d *Drafter) Draft(ctx context.Context, rs rfp.RequirementSet, vendorName string) Email {
	log := d.logger.With(zap.String("rfp_id", rs.ID), zap.String("vendor", vendorName))

	email, err := d.draft(ctx, rs, vendorName)
	if err != nil {
		log.Warn("email drafting failed, using template", zap.Error(err))
		email = FallbackEmail(rs, vendorName)
	}

	return withIdentifier(email, rs.ID)
}

func (d *Drafter) draft(ctx context.Context, rs rfp.RequirementSet, vendorName string) (Email, error) {
	rfpJSON, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return Email{}, err
	}

	id := rs.ID
	if id == "" {
		id = pendingID
	}

	raw, err := d.generate(ctx, stageDraft, render(draftPrompt, map[string]string{
		"RFP_JSON":    string(rfpJSON),
		"RFP_ID":      id,
		"VENDOR_NAME": vendorName,
	}), draftConfig)
	if err != nil {
		return Email{}, err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return Email{}, &rfp.ExtractionError{Stage: stageDraft, Raw: raw, Err: err}
	}

	email := Email{
		Subject: coerceString(data["subject"]),
		Body:    coerceString(data["body"]),
	}
	if email.Subject == "" || email.Body == "" {
		return Email{}, &rfp.ExtractionError{Stage: stageDraft, Raw: raw, Err: errors.New("subject or body is missing")}
	}
	return email, nil
}

// withIdentifier makes sure replies can be matched back to the RFP.
func withIdentifier(email Email, id string) Email {
	if id == "" {
		return email
	}
	if !strings.Contains(email.Subject, id) {
		email.Subject = fmt.Sprintf("%s (RFP ID: %s)", strings.TrimSpace(email.Subject), id)
	}
	if !strings.Contains(email.Body, id) {
		email.Body = fmt.Sprintf("%s\n\nRFP ID: %s", strings.TrimRight(email.Body, "\n"), id)
	}
	return email
}

// FallbackEmail renders the invitation without generation.
func FallbackEmail(rs rfp.RequirementSet, vendorName string) Email {
	id := rs.ID
	if id == "" {
		id = pendingID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", vendorName)
	b.WriteString("We are pleased to invite you to submit a proposal for the following procurement:\n\n")
	if rs.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", rs.Description)
	}
	fmt.Fprintf(&b, "RFP ID: %s\n(Please include this ID in your response subject line)\n\n", id)

	b.WriteString("REQUIREMENTS:\n")
	for _, item := range rs.Items {
		fmt.Fprintf(&b, "- %s: %d units%s\n", item.Name, item.Quantity, specSuffix(item.Specifications))
	}
	b.WriteString("\n")

	if rs.Budget != nil {
		fmt.Fprintf(&b, "Budget: $%s\n", formatAmount(*rs.Budget))
	}
	if rs.DeliveryDays != nil {
		fmt.Fprintf(&b, "Delivery Timeline: %d days\n", *rs.DeliveryDays)
	}
	if rs.PaymentTerms != "" {
		fmt.Fprintf(&b, "Payment Terms: %s\n", rs.PaymentTerms)
	}
	if rs.WarrantyYears != nil {
		fmt.Fprintf(&b, "Warranty Required: %s year(s)\n", formatNumber(*rs.WarrantyYears))
	}

	if len(rs.AdditionalRequirements) > 0 {
		b.WriteString("\nADDITIONAL REQUIREMENTS:\n")
		for _, req := range rs.AdditionalRequirements {
			fmt.Fprintf(&b, "- %s\n", req)
		}
	}

	b.WriteString("\nPlease provide a detailed quotation including:\n")
	b.WriteString("1. Item-by-item pricing\n2. Total cost\n3. Delivery timeline\n4. Payment terms\n5. Warranty information\n6. Any additional services or benefits\n\n")
	fmt.Fprintf(&b, "IMPORTANT: Please include the RFP ID (%s) in your email response subject line.\n\n", id)
	b.WriteString("We look forward to receiving your proposal.\n\nBest regards,\n" + defaultSignature)

	return Email{
		Subject: fmt.Sprintf("RFP: %s (ID: %s)", rs.Title, id),
		Body:    b.String(),
	}
}

func specSuffix(specs map[string]any) string {
	if len(specs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, coerceString(specs[k])))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return amountPrinter.Sprintf("%d", int64(v))
	}
	return amountPrinter.Sprintf("%.2f", v)
}
