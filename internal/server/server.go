// Package server exposes the procurement workflow over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/logger"
	"github.com/spigell/rfp-responder/internal/mailbox"
	"github.com/spigell/rfp-responder/internal/procurement"
	"github.com/spigell/rfp-responder/internal/rfp"
)

const shutdownTimeout = 10 * time.Second

// Procurement is the workflow the HTTP API drives.
type Procurement interface {
	PreviewRFP(ctx context.Context, prompt string) (rfp.RequirementSet, error)
	CreateRFP(ctx context.Context, prompt string) (rfp.RFP, error)
	GetRFP(ctx context.Context, id string) (rfp.RFP, error)
	ListRFPs(ctx context.Context) ([]rfp.RFP, error)
	GetRFPWithVendors(ctx context.Context, id string) (rfp.RFPWithVendors, error)
	DeleteRFP(ctx context.Context, id string) error
	SendRFPToVendors(ctx context.Context, rfpID string, vendorIDs []string) (procurement.SendResult, error)
	CompareProposals(ctx context.Context, rfpID string) (rfp.Comparison, error)

	CreateVendor(ctx context.Context, v rfp.Vendor) (rfp.Vendor, error)
	GetVendor(ctx context.Context, id string) (rfp.Vendor, error)
	ListVendors(ctx context.Context) ([]rfp.Vendor, error)
	SearchVendors(ctx context.Context, query string) ([]rfp.Vendor, error)
	UpdateVendor(ctx context.Context, id string, upd rfp.VendorUpdate) (rfp.Vendor, error)
	DeleteVendor(ctx context.Context, id string) error

	ProcessProposal(ctx context.Context, rfpID, vendorEmail, text string) (rfp.Proposal, error)
	GetProposal(ctx context.Context, id string) (rfp.Proposal, error)
	ListProposalsByRFP(ctx context.Context, rfpID string) ([]rfp.Proposal, error)
	ListProposalsByVendor(ctx context.Context, vendorID string) ([]rfp.Proposal, error)
	DeleteProposal(ctx context.Context, id string) error
	ProposalStats(ctx context.Context, rfpID string) (rfp.Stats, error)

	HandleInbound(ctx context.Context, msg mailbox.Message) (procurement.InboundResult, error)
	Reparse(ctx context.Context, id string) (rfp.Proposal, error)
	ListUnprocessed(ctx context.Context, rfpID string) ([]rfp.InboundEmail, error)
}

// Config controls the HTTP listener and its request limits.
type Config struct {
	Addr         string    `mapstructure:"addr"`
	CORSOrigins  []string  `mapstructure:"cors-origins"`
	GeneralLimit RateLimit `mapstructure:"general-limit"`
	AILimit      RateLimit `mapstructure:"ai-limit"`
}

// DefaultConfig allows 100 API requests per 15 minutes and 10 generation
// requests per minute for each client address.
func DefaultConfig() Config {
	return Config{
		Addr:         ":3000",
		GeneralLimit: RateLimit{Requests: 100, Window: 15 * time.Minute},
		AILimit:      RateLimit{Requests: 10, Window: time.Minute},
	}
}

type Server struct {
	svc    Procurement
	cfg    Config
	logger *zap.Logger
	engine *gin.Engine
}

func New(svc Procurement, cfg Config, log *zap.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("procurement service is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}

	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger.OrNop(log),
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(s.logger))
	if len(s.cfg.CORSOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = s.cfg.CORSOrigins
		engine.Use(cors.New(corsCfg))
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Resend delivers here; it sits outside the API limiters.
	engine.POST("/api/webhooks/inbound-email", s.inboundWebhook)

	api := engine.Group("/api", newLimiter(s.cfg.GeneralLimit, "Too many requests from this IP, please try again later.").middleware())
	ai := newLimiter(s.cfg.AILimit, "Too many AI requests, please try again later.").middleware()

	rfps := api.Group("/rfps")
	{
		rfps.POST("/preview", ai, s.previewRFP)
		rfps.POST("", ai, s.createRFP)
		rfps.GET("", s.listRFPs)
		rfps.GET("/:id", s.getRFP)
		rfps.GET("/:id/vendors", s.getRFPVendors)
		rfps.POST("/:id/send", ai, s.sendRFP)
		rfps.POST("/:id/proposals", ai, s.submitProposal)
		rfps.GET("/:id/compare", ai, s.compareProposals)
		rfps.DELETE("/:id", s.deleteRFP)
	}

	vendors := api.Group("/vendors")
	{
		vendors.POST("", s.createVendor)
		vendors.GET("", s.listVendors)
		vendors.GET("/search/:query", s.searchVendors)
		vendors.GET("/:id", s.getVendor)
		vendors.PUT("/:id", s.updateVendor)
		vendors.DELETE("/:id", s.deleteVendor)
	}

	proposals := api.Group("/proposals")
	{
		proposals.GET("/rfp/:rfpId", s.proposalsByRFP)
		proposals.GET("/rfp/:rfpId/stats", s.proposalStats)
		proposals.GET("/vendor/:vendorId", s.proposalsByVendor)
		proposals.GET("/:id", s.getProposal)
		proposals.DELETE("/:id", s.deleteProposal)
	}

	emails := api.Group("/emails/inbound")
	{
		emails.GET("/unprocessed", s.unprocessedEmails)
		emails.POST("/:id/reparse", ai, s.reparseEmail)
	}

	return engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
