package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/ai"
	"github.com/spigell/rfp-responder/internal/logger"
	"github.com/spigell/rfp-responder/internal/rfp"
)

const stageExtract = "proposal extraction"

var (
	extractPrompt = mustPrompt("extract.md")
	extractConfig = ai.GenerationConfig{Temperature: 0.2, MaxOutputTokens: 3072}
)

// Extractor reads a structured proposal out of a vendor reply.
type Extractor struct {
	caller
}

func NewExtractor(generator ai.Generator, log *zap.Logger, maxLogLength int) *Extractor {
	return &Extractor{caller: newCaller(generator, log, maxLogLength)}
}

// Extract maps vendor text onto an ExtractedProposal, using rs as the list of
// requested items. Unparseable output fails with an *rfp.ExtractionError
// carrying the raw response.
func (e *Extractor) Extract(ctx context.Context, text string, rs rfp.RequirementSet) (rfp.ExtractedProposal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return rfp.ExtractedProposal{}, rfp.Invalid("vendor text is required")
	}

	rfpJSON, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return rfp.ExtractedProposal{}, fmt.Errorf("marshal requirement set: %w", err)
	}

	prompt := render(extractPrompt, map[string]string{
		"RFP_JSON":    string(rfpJSON),
		"VENDOR_TEXT": text,
	})

	raw, err := e.generate(ctx, stageExtract, prompt, extractConfig, logger.RFPFields(rs.ID, "")...)
	if err != nil {
		return rfp.ExtractedProposal{}, err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return rfp.ExtractedProposal{}, &rfp.ExtractionError{Stage: stageExtract, Raw: raw, Err: err}
	}

	proposal := proposalFrom(data)

	fields := []zap.Field{zap.Int("items", len(proposal.Items))}
	if proposal.Confidence != nil {
		fields = append(fields, zap.Float64("confidence", *proposal.Confidence))
	}
	if proposal.TotalPrice != nil {
		fields = append(fields, zap.Float64("total_price", *proposal.TotalPrice))
	}
	e.logger.Info("extracted proposal", append(fields, logger.RFPFields(rs.ID, "")...)...)

	return proposal, nil
}

func proposalFrom(data map[string]any) rfp.ExtractedProposal {
	p := rfp.ExtractedProposal{
		TotalPrice:         rfp.ParseAmount(data["totalPrice"]),
		DeliveryDays:       rfp.ParseDays(data["deliveryDays"]),
		PaymentTerms:       rfp.TermsFrom(data["paymentTerms"]),
		Warranty:           optionalString(data["warranty"]),
		AdditionalServices: coerceStrings(data["additionalServices"]),
		Notes:              optionalString(data["notes"]),
	}

	if confidence := rfp.ParseAmount(data["confidence"]); confidence != nil {
		c := rfp.ClampScore(*confidence)
		p.Confidence = &c
	}

	for _, entry := range coerceList(data["items"]) {
		name := coerceString(entry["name"])
		if name == "" {
			continue
		}
		p.Items = append(p.Items, rfp.QuotedItem{
			Name:           name,
			Quantity:       rfp.ParseAmount(entry["quantity"]),
			UnitPrice:      rfp.ParseAmount(entry["unitPrice"]),
			TotalPrice:     rfp.ParseAmount(entry["totalPrice"]),
			Specifications: coerceMap(entry["specifications"]),
		})
	}

	return p
}
