package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/rfp-responder/internal/ai"
)

type fakeModels struct {
	resp *genai.GenerateContentResponse
	err  error

	calls  int
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func newTestGenerator(models contentModels) *Generator {
	return &Generator{models: models, modelName: "gemini-test", logger: zap.NewNop(), maxLogLen: 50}
}

func TestGeneratorGenerate(t *testing.T) {
	models := &fakeModels{resp: textResponse(" first ", "", "second")}
	g := newTestGenerator(models)

	output, err := g.Generate(context.Background(), "  score this  ", ai.GenerationConfig{
		Temperature:       0.1,
		MaxOutputTokens:   2048,
		JSON:              true,
		TopK:              40,
		SystemInstruction: "you are a procurement evaluator",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "first\nsecond" {
		t.Fatalf("unexpected output: %q", output)
	}

	if models.model != "gemini-test" {
		t.Fatalf("unexpected model: %s", models.model)
	}
	if models.prompt != "score this" {
		t.Fatalf("expected trimmed prompt, got %q", models.prompt)
	}

	cfg := models.config
	if cfg == nil {
		t.Fatal("expected config to be sent")
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.1 {
		t.Fatalf("unexpected temperature: %v", cfg.Temperature)
	}
	if cfg.MaxOutputTokens != 2048 {
		t.Fatalf("unexpected max output tokens: %d", cfg.MaxOutputTokens)
	}
	if cfg.ResponseMIMEType != "application/json" {
		t.Fatalf("expected json mime type, got %q", cfg.ResponseMIMEType)
	}
	if cfg.TopK == nil || *cfg.TopK != 40 {
		t.Fatalf("unexpected top k: %v", cfg.TopK)
	}
	if cfg.TopP != nil {
		t.Fatalf("expected top p to be unset")
	}
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "you are a procurement evaluator" {
		t.Fatalf("expected system instruction to be set")
	}
}

func TestGeneratorRejectsEmptyPrompt(t *testing.T) {
	models := &fakeModels{resp: textResponse("ok")}
	g := newTestGenerator(models)

	if _, err := g.Generate(context.Background(), "   ", ai.GenerationConfig{}); err == nil {
		t.Fatal("expected error for empty prompt")
	}
	if models.calls != 0 {
		t.Fatalf("expected no api call, got %d", models.calls)
	}
}

func TestGeneratorPropagatesAPIError(t *testing.T) {
	apiErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	models := &fakeModels{err: apiErr}
	g := newTestGenerator(models)

	_, err := g.Generate(context.Background(), "prompt", ai.GenerationConfig{})
	if err == nil {
		t.Fatal("expected error")
	}

	var target genai.APIError
	if !errors.As(err, &target) || target.Code != http.StatusInternalServerError {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
	if models.calls != 1 {
		t.Fatalf("expected a single call without retries, got %d", models.calls)
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	g := newTestGenerator(&fakeModels{resp: &genai.GenerateContentResponse{}})

	_, err := g.Generate(context.Background(), "prompt", ai.GenerationConfig{})
	if err == nil || !strings.Contains(err.Error(), "empty response") {
		t.Fatalf("expected empty response error, got %v", err)
	}
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	if _, err := NewGenerator(context.Background(), "  ", "", 0, nil); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
