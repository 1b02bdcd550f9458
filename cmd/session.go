package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/ai/gemini"
	"github.com/spigell/rfp-responder/internal/evaluation"
	"github.com/spigell/rfp-responder/internal/logger"
	"github.com/spigell/rfp-responder/internal/procurement"
	"github.com/spigell/rfp-responder/internal/resend"
	"github.com/spigell/rfp-responder/internal/secrets"
	"github.com/spigell/rfp-responder/internal/storage"
)

// needs lists the optional collaborators a command depends on.
type needs struct {
	ai   bool
	mail bool
	// soft commands start without a missing collaborator instead of failing.
	soft bool
}

type session struct {
	config  *Config
	logger  *zap.Logger
	store   *storage.Store
	service *procurement.Service
}

func newSession(ctx context.Context, n needs) (*session, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(config.Database.Path, log)
	if err != nil {
		return nil, err
	}

	rt := &session{config: config, logger: log, store: store}
	deps := procurement.Dependencies{Store: store, Logger: log}

	if n.ai {
		suite, err := newSuite(ctx, config.AI, log)
		switch {
		case err == nil:
			deps = deps.WithSuite(suite)
		case n.soft:
			log.Warn("generation is disabled", zap.Error(err))
		default:
			rt.Close()
			return nil, err
		}
	}

	if n.mail {
		mailer, err := newMailer(config.Mail.Resend, log)
		switch {
		case err == nil:
			deps.Dispatcher = mailer
			deps.Fetcher = mailer
		case n.soft:
			log.Warn("email dispatch is disabled", zap.Error(err))
		default:
			rt.Close()
			return nil, err
		}
	}

	rt.service, err = procurement.New(deps)
	if err != nil {
		rt.Close()
		return nil, err
	}

	return rt, nil
}

func (rt *session) Close() {
	if err := rt.store.Close(); err != nil {
		rt.logger.Warn("closing the store", zap.Error(err))
	}
	_ = rt.logger.Sync()
}

func newSuite(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*evaluation.Suite, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, err
	}

	maxLogLength := cfg.MaxLogLength
	if maxLogLength <= 0 {
		maxLogLength = logger.DefaultMaxLogLength
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, maxLogLength, log)
	if err != nil {
		return nil, err
	}

	evalLogger := logger.WithCommonFields(log, "gemini", generator.Model())
	return evaluation.NewSuite(generator, evalLogger, maxLogLength), nil
}

func newMailer(cfg *ResendConfig, log *zap.Logger) (*resend.Client, error) {
	if cfg == nil {
		return nil, errors.New("mail.resend is not configured")
	}

	token, err := secrets.Load(secrets.Source{
		Name:  "resend api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   "RESEND_API_KEY",
	})
	if err != nil {
		return nil, err
	}

	client := resend.New(token, cfg.From, log.With(zap.String(logger.FieldProvider, "resend")))
	if cfg.APIURL != "" {
		client.APIURL = strings.TrimRight(cfg.APIURL, "/")
	}
	if cfg.RequestTimeout > 0 {
		client.HTTPClient.Timeout = cfg.RequestTimeout
	}
	return client, nil
}
