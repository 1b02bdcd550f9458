package evaluation

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/ai"
	"github.com/spigell/rfp-responder/internal/rfp"
)

const stageStructure = "rfp structuring"

var (
	structurePrompt = mustPrompt("structure.md")
	structureConfig = ai.GenerationConfig{Temperature: 0.3, MaxOutputTokens: 2048}
)

// Structurer converts a natural language purchase request into a RequirementSet.
type Structurer struct {
	caller
}

func NewStructurer(generator ai.Generator, log *zap.Logger, maxLogLength int) *Structurer {
	return &Structurer{caller: newCaller(generator, log, maxLogLength)}
}

// Structure asks the generator for a requirement set. Output without a
// title or in the wrong shape fails with an *rfp.ExtractionError.
func (s *Structurer) Structure(ctx context.Context, prompt string) (rfp.RequirementSet, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return rfp.RequirementSet{}, rfp.Invalid("prompt is required")
	}

	raw, err := s.generate(ctx, stageStructure, render(structurePrompt, map[string]string{"PROMPT": prompt}), structureConfig)
	if err != nil {
		return rfp.RequirementSet{}, err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return rfp.RequirementSet{}, &rfp.ExtractionError{Stage: stageStructure, Raw: raw, Err: err}
	}

	rs := requirementSetFrom(data)
	if rs.Title == "" {
		return rfp.RequirementSet{}, &rfp.ExtractionError{Stage: stageStructure, Raw: raw, Err: errors.New("title is missing")}
	}

	s.logger.Info("structured rfp",
		zap.String("title", rs.Title),
		zap.Int("items", len(rs.Items)),
	)

	return rs, nil
}

func requirementSetFrom(data map[string]any) rfp.RequirementSet {
	rs := rfp.RequirementSet{
		Title:                  coerceString(data["title"]),
		Description:            coerceString(data["description"]),
		Budget:                 rfp.ParseAmount(data["budget"]),
		DeliveryDays:           rfp.ParseDays(data["deliveryDays"]),
		PaymentTerms:           rfp.TermsFrom(data["paymentTerms"]).String(),
		WarrantyYears:          rfp.ParseAmount(data["warrantyYears"]),
		AdditionalRequirements: coerceStrings(data["additionalRequirements"]),
	}

	for _, entry := range coerceList(data["items"]) {
		name := coerceString(entry["name"])
		if name == "" {
			continue
		}
		item := rfp.Item{
			Name:           name,
			Specifications: coerceMap(entry["specifications"]),
		}
		if qty := rfp.ParseAmount(entry["quantity"]); qty != nil {
			item.Quantity = int(math.Round(*qty))
		}
		rs.Items = append(rs.Items, item)
	}

	return rs
}
