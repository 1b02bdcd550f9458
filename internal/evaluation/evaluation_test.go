package evaluation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/rfp-responder/internal/ai"
	"github.com/spigell/rfp-responder/internal/rfp"
)

type stubGenerator struct {
	response   string
	err        error
	calls      int
	lastPrompt string
	lastConfig ai.GenerationConfig
}

func (s *stubGenerator) Generate(_ context.Context, prompt string, cfg ai.GenerationConfig) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	s.lastConfig = cfg
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func ptr[T any](v T) *T { return &v }

func laptopRFP() rfp.RequirementSet {
	return rfp.RequirementSet{
		ID:           "0b6e2b8c-1f0a-4c3e-9a57-2d4f1e6c9a10",
		Title:        "Laptops",
		Description:  "Laptops for the new office",
		Items:        []rfp.Item{{Name: "Laptop", Quantity: 20, Specifications: map[string]any{"ram": "16GB"}}},
		Budget:       ptr(10000.0),
		DeliveryDays: ptr(14),
	}
}

func TestStripFencesAndFirstObject(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "plain", input: `{"a":1}`, expect: `{"a":1}`},
		{name: "json fence", input: "```json\n{\"a\":1}\n```", expect: `{"a":1}`},
		{name: "bare fence", input: "```\n{\"a\":1}\n```", expect: `{"a":1}`},
		{name: "backticks inside value", input: "```json\n{\"notes\":\"use ```code``` blocks\"}\n```", expect: "{\"notes\":\"use ```code``` blocks\"}"},
		{name: "unfenced backticks kept", input: "{\"notes\":\"a ``` b\"}", expect: "{\"notes\":\"a ``` b\"}"},
		{name: "prose around", input: "Here you go: {\"a\":{\"b\":2}} hope it helps {\"c\":3}", expect: `{"a":{"b":2}}`},
		{name: "brace in string", input: `{"a":"}{"}`, expect: `{"a":"}{"}`},
		{name: "escaped quote", input: `{"a":"say \"}\""} trailing`, expect: `{"a":"say \"}\""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned := stripFences(tt.input)
			got, ok := firstObject(cleaned)
			if !ok {
				t.Fatalf("expected object in %q", cleaned)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}

	if _, ok := firstObject(`{"unterminated": 1`); ok {
		t.Fatalf("expected unbalanced input to be rejected")
	}
}

func TestDecodeObjectRejectsNonObjects(t *testing.T) {
	for _, input := range []string{"", "not json at all", "[1,2,3]", "null"} {
		if _, err := decodeObject(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestStructure(t *testing.T) {
	stub := &stubGenerator{response: "```json\n" + `{
		"title": "Office Laptops",
		"description": "Laptops for staff",
		"items": [{"name": "Laptop", "quantity": "20", "specifications": {"ram": "16GB"}}, {"name": ""}],
		"budget": "$50,000",
		"deliveryDays": "one month",
		"paymentTerms": ["Net 30"],
		"warrantyYears": 1,
		"additionalRequirements": ["Installation"]
	}` + "\n```"}

	rs, err := NewStructurer(stub, zap.NewNop(), 0).Structure(context.Background(), "I need 20 laptops in a month, budget $50k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rs.Title != "Office Laptops" {
		t.Fatalf("unexpected title %q", rs.Title)
	}
	if len(rs.Items) != 1 || rs.Items[0].Quantity != 20 {
		t.Fatalf("unexpected items: %+v", rs.Items)
	}
	if rs.Budget == nil || *rs.Budget != 50000 {
		t.Fatalf("unexpected budget: %v", rs.Budget)
	}
	if rs.DeliveryDays == nil || *rs.DeliveryDays != 30 {
		t.Fatalf("unexpected delivery days: %v", rs.DeliveryDays)
	}
	if rs.PaymentTerms != "Net 30" {
		t.Fatalf("unexpected payment terms %q", rs.PaymentTerms)
	}
	if stub.lastConfig.Temperature != 0.3 || stub.lastConfig.MaxOutputTokens != 2048 {
		t.Fatalf("unexpected config: %+v", stub.lastConfig)
	}
	if !strings.Contains(stub.lastPrompt, "budget $50k") {
		t.Fatalf("expected request in prompt")
	}
}

func TestStructureErrors(t *testing.T) {
	if _, err := NewStructurer(&stubGenerator{}, nil, 0).Structure(context.Background(), "  "); !errors.Is(err, rfp.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err := NewStructurer(&stubGenerator{response: "sorry, I cannot help"}, nil, 0).Structure(context.Background(), "laptops")
	var extractionErr *rfp.ExtractionError
	if !errors.As(err, &extractionErr) || extractionErr.Raw != "sorry, I cannot help" {
		t.Fatalf("expected extraction error with raw output, got %v", err)
	}

	_, err = NewStructurer(&stubGenerator{response: `{"description": "no title"}`}, nil, 0).Structure(context.Background(), "laptops")
	if !errors.Is(err, rfp.ErrExtraction) {
		t.Fatalf("expected extraction error for missing title, got %v", err)
	}
}

func TestExtract(t *testing.T) {
	stub := &stubGenerator{response: "```json\n" + `{
		"items": [{"name": "Laptop", "quantity": 20, "unitPrice": "$450", "totalPrice": "$9,000", "specifications": {"ram": "16GB"}}],
		"totalPrice": "$9,500.00",
		"deliveryDays": "two weeks",
		"paymentTerms": "Net 30",
		"warranty": "",
		"additionalServices": ["Free installation"],
		"notes": null,
		"confidence": 140
	}` + "\n```"}

	rs := laptopRFP()
	p, err := NewExtractor(stub, zap.NewNop(), 0).Extract(context.Background(), "Our quote is $9,500 delivered in two weeks.", rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.TotalPrice == nil || *p.TotalPrice != 9500 {
		t.Fatalf("unexpected total: %v", p.TotalPrice)
	}
	if p.DeliveryDays == nil || *p.DeliveryDays != 14 {
		t.Fatalf("unexpected delivery: %v", p.DeliveryDays)
	}
	if p.Warranty != nil {
		t.Fatalf("expected blank warranty to be nil, got %q", *p.Warranty)
	}
	if p.Notes != nil {
		t.Fatalf("expected null notes to stay nil")
	}
	if p.Confidence == nil || *p.Confidence != 100 {
		t.Fatalf("expected confidence clamped to 100, got %v", p.Confidence)
	}
	if len(p.Items) != 1 || p.Items[0].TotalPrice == nil || *p.Items[0].TotalPrice != 9000 {
		t.Fatalf("unexpected items: %+v", p.Items)
	}
	if len(p.PaymentTerms) != 1 || p.PaymentTerms[0] != "Net 30" {
		t.Fatalf("unexpected terms: %v", p.PaymentTerms)
	}

	if !strings.Contains(stub.lastPrompt, rs.ID) || !strings.Contains(stub.lastPrompt, "two weeks") {
		t.Fatalf("expected prompt to carry rfp and vendor text")
	}
	if stub.lastConfig.Temperature != 0.2 || stub.lastConfig.MaxOutputTokens != 3072 {
		t.Fatalf("unexpected config: %+v", stub.lastConfig)
	}
}

func TestExtractFailures(t *testing.T) {
	rs := laptopRFP()

	_, err := NewExtractor(&stubGenerator{response: "I could not read the quote"}, nil, 0).Extract(context.Background(), "quote", rs)
	var extractionErr *rfp.ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if extractionErr.Raw != "I could not read the quote" {
		t.Fatalf("expected raw output to be kept, got %q", extractionErr.Raw)
	}

	apiErr := errors.New("quota exceeded")
	_, err = NewExtractor(&stubGenerator{err: apiErr}, nil, 0).Extract(context.Background(), "quote", rs)
	if !errors.Is(err, apiErr) || errors.Is(err, rfp.ErrExtraction) {
		t.Fatalf("expected generation error to propagate as is, got %v", err)
	}

	stub := &stubGenerator{}
	if _, err := NewExtractor(stub, nil, 0).Extract(context.Background(), " ", rs); !errors.Is(err, rfp.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if stub.calls != 0 {
		t.Fatalf("expected no generation for empty text")
	}
}

func TestScorePrimary(t *testing.T) {
	stub := &stubGenerator{response: `Sure! {"score": 130, "evaluation": "Under budget and on time.", "breakdown": {"price": 30, "delivery": 25, "completeness": 20, "terms": 8, "value": 5}}`}
	rs := laptopRFP()
	p := rfp.ExtractedProposal{TotalPrice: ptr(9500.0), DeliveryDays: ptr(10)}

	got := NewScorer(stub, zap.NewNop(), 0).Score(context.Background(), rs, p, "Acme")

	if got.Fallback {
		t.Fatalf("expected primary path")
	}
	if got.Score != 100 {
		t.Fatalf("expected clamped score 100, got %v", got.Score)
	}
	if got.Breakdown == nil || got.Breakdown.Delivery != rfp.MaxDeliveryPoints {
		t.Fatalf("expected delivery capped at %d, got %+v", rfp.MaxDeliveryPoints, got.Breakdown)
	}
	if !stub.lastConfig.JSON || stub.lastConfig.Temperature != 0.1 {
		t.Fatalf("unexpected config: %+v", stub.lastConfig)
	}
	for _, want := range []string{"Price at or under budget: 30", "1-5 days late: 15", "Proposal from Acme", "Within budget: YES", "On time: YES"} {
		if !strings.Contains(stub.lastPrompt, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}
}

func TestScorePromptWithoutBudget(t *testing.T) {
	stub := &stubGenerator{response: `{"score": 70, "evaluation": ""}`}
	rs := rfp.RequirementSet{ID: "r", Title: "Chairs"}

	got := NewScorer(stub, nil, 0).Score(context.Background(), rs, rfp.ExtractedProposal{}, "Acme")

	if got.Evaluation != defaultEvaluation {
		t.Fatalf("expected default evaluation, got %q", got.Evaluation)
	}
	if !strings.Contains(stub.lastPrompt, "No budget was stated") || !strings.Contains(stub.lastPrompt, "No deadline was stated") {
		t.Fatalf("expected open rules in prompt")
	}
}

func TestScoreFallback(t *testing.T) {
	rs := laptopRFP()
	p := rfp.ExtractedProposal{TotalPrice: ptr(9500.0), DeliveryDays: ptr(10)}

	tests := []struct {
		name string
		stub *stubGenerator
	}{
		{name: "prose", stub: &stubGenerator{response: "The proposal looks great, I would give it 85."}},
		{name: "missing score", stub: &stubGenerator{response: `{"evaluation": "fine"}`}},
		{name: "generation error", stub: &stubGenerator{err: errors.New("unavailable")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, observed := observer.New(zapcore.WarnLevel)
			got := NewScorer(tt.stub, zap.New(core), 0).Score(context.Background(), rs, p, "Acme")

			if !got.Fallback {
				t.Fatalf("expected fallback")
			}
			if got.Score != 65 {
				t.Fatalf("expected fallback score 65, got %v", got.Score)
			}
			if !strings.HasPrefix(got.Evaluation, "Automated scoring: 65/100.") {
				t.Fatalf("unexpected evaluation %q", got.Evaluation)
			}
			if observed.Len() != 1 {
				t.Fatalf("expected one warning, got %d", observed.Len())
			}
		})
	}
}

func comparisonRows() []rfp.ComparisonRow {
	return []rfp.ComparisonRow{
		{VendorID: "v1", VendorName: "Acme", Score: 72, TotalPrice: ptr(9800.0)},
		{VendorID: "v2", VendorName: "Globex", Score: 88, TotalPrice: ptr(9100.0)},
		{VendorID: "v3", VendorName: "Initech", Score: 60},
	}
}

func TestRecommend(t *testing.T) {
	stub := &stubGenerator{response: `{"recommendedVendorId": "v1", "reasoning": "Best support.", "comparisonSummary": "Acme leads."}`}
	rec := NewRecommender(stub, nil, 0).Recommend(context.Background(), laptopRFP(), comparisonRows())

	if rec == nil || rec.RecommendedVendorID != "v1" || rec.Reasoning != "Best support." {
		t.Fatalf("unexpected recommendation: %+v", rec)
	}
	if stub.lastConfig.TopK != 40 || stub.lastConfig.TopP != 0.95 || stub.lastConfig.Temperature != 0.5 {
		t.Fatalf("unexpected config: %+v", stub.lastConfig)
	}
	if !strings.Contains(stub.lastPrompt, "v1, v2, v3") {
		t.Fatalf("expected vendor ids in prompt")
	}
}

func TestRecommendFallsBackToTopScore(t *testing.T) {
	tests := []struct {
		name string
		stub *stubGenerator
	}{
		{name: "unknown vendor", stub: &stubGenerator{response: `{"recommendedVendorId": "vendor-123", "reasoning": "x"}`}},
		{name: "not json", stub: &stubGenerator{response: "Globex, clearly."}},
		{name: "error", stub: &stubGenerator{err: errors.New("boom")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecommender(tt.stub, nil, 0).Recommend(context.Background(), laptopRFP(), comparisonRows())
			if rec == nil || rec.RecommendedVendorID != "v2" {
				t.Fatalf("expected top scored vendor v2, got %+v", rec)
			}
			if !strings.Contains(rec.ComparisonSummary, "Initech scored 60/100 at N/A.") {
				t.Fatalf("unexpected summary %q", rec.ComparisonSummary)
			}
		})
	}
}

func TestRecommendNeedsTwoRows(t *testing.T) {
	stub := &stubGenerator{response: `{"recommendedVendorId": "v1"}`}
	r := NewRecommender(stub, nil, 0)

	if rec := r.Recommend(context.Background(), laptopRFP(), nil); rec != nil {
		t.Fatalf("expected no recommendation for zero rows")
	}
	if rec := r.Recommend(context.Background(), laptopRFP(), comparisonRows()[:1]); rec != nil {
		t.Fatalf("expected no recommendation for one row")
	}
	if stub.calls != 0 {
		t.Fatalf("expected no generation calls, got %d", stub.calls)
	}
}

func TestDraft(t *testing.T) {
	rs := laptopRFP()

	stub := &stubGenerator{response: `{"subject": "Request for proposal: laptops", "body": "Dear Acme,\nPlease quote."}`}
	email := NewDrafter(stub, nil, 0).Draft(context.Background(), rs, "Acme")

	if !strings.Contains(email.Subject, rs.ID) {
		t.Fatalf("expected id appended to subject, got %q", email.Subject)
	}
	if !strings.HasSuffix(email.Body, "RFP ID: "+rs.ID) {
		t.Fatalf("expected id appended to body, got %q", email.Body)
	}

	stub = &stubGenerator{response: `{"subject": "RFP ` + rs.ID + `", "body": "Body with ` + rs.ID + `"}`}
	email = NewDrafter(stub, nil, 0).Draft(context.Background(), rs, "Acme")
	if email.Subject != "RFP "+rs.ID {
		t.Fatalf("expected subject untouched, got %q", email.Subject)
	}
}

func TestDraftFallback(t *testing.T) {
	rs := laptopRFP()
	rs.PaymentTerms = "Net 30"
	rs.AdditionalRequirements = []string{"On-site setup"}

	for _, stub := range []*stubGenerator{{response: "Dear vendor, ..."}, {err: errors.New("down")}} {
		email := NewDrafter(stub, nil, 0).Draft(context.Background(), rs, "Acme")

		if email.Subject != "RFP: Laptops (ID: "+rs.ID+")" {
			t.Fatalf("unexpected subject %q", email.Subject)
		}
		for _, want := range []string{
			"Dear Acme,",
			"- Laptop: 20 units (ram: 16GB)",
			"Budget: $10,000",
			"Delivery Timeline: 14 days",
			"Payment Terms: Net 30",
			"- On-site setup",
		} {
			if !strings.Contains(email.Body, want) {
				t.Fatalf("expected body to contain %q:\n%s", want, email.Body)
			}
		}
	}
}
