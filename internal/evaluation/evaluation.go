// Package evaluation turns free text into structured procurement data and
// judges vendor proposals with a text generation backend.
package evaluation

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/ai"
	"github.com/spigell/rfp-responder/internal/logger"
)

//go:embed prompts/*.md
var prompts embed.FS

func mustPrompt(name string) string {
	data, err := prompts.ReadFile("prompts/" + name)
	if err != nil {
		panic(fmt.Sprintf("missing prompt %s: %v", name, err))
	}
	return string(data)
}

// render fills {{KEY}} placeholders of a prompt template.
func render(template string, values map[string]string) string {
	for key, value := range values {
		template = strings.ReplaceAll(template, "{{"+key+"}}", value)
	}
	return template
}

type caller struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func newCaller(generator ai.Generator, log *zap.Logger, maxLogLength int) caller {
	if maxLogLength <= 0 {
		maxLogLength = logger.DefaultMaxLogLength
	}
	return caller{
		generator: generator,
		logger:    logger.OrNop(log),
		maxLogLen: maxLogLength,
	}
}

func (c caller) generate(ctx context.Context, stage, prompt string, cfg ai.GenerationConfig, fields ...zap.Field) (string, error) {
	if c.generator == nil {
		return "", errors.New("text generator is not configured")
	}

	log := c.logger.With(zap.String("stage", stage)).With(fields...)
	log.Debug("generation request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, c.maxLogLen)),
	)

	raw, err := c.generator.Generate(ctx, prompt, cfg)
	if err != nil {
		return "", fmt.Errorf("%s: %w", stage, err)
	}

	log.Debug("generation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, c.maxLogLen)),
	)

	return raw, nil
}

// Suite bundles every generation-backed component.
type Suite struct {
	Structurer  *Structurer
	Extractor   *Extractor
	Scorer      *Scorer
	Recommender *Recommender
	Drafter     *Drafter
}

// NewSuite builds all components on one generator.
func NewSuite(generator ai.Generator, log *zap.Logger, maxLogLength int) *Suite {
	return &Suite{
		Structurer:  NewStructurer(generator, log, maxLogLength),
		Extractor:   NewExtractor(generator, log, maxLogLength),
		Scorer:      NewScorer(generator, log, maxLogLength),
		Recommender: NewRecommender(generator, log, maxLogLength),
		Drafter:     NewDrafter(generator, log, maxLogLength),
	}
}
