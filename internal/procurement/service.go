// Package procurement drives the RFP workflow: structuring requests, sending
// them to vendors, turning replies into scored proposals and comparing them.
package procurement

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/evaluation"
	"github.com/spigell/rfp-responder/internal/logger"
	"github.com/spigell/rfp-responder/internal/mailbox"
	"github.com/spigell/rfp-responder/internal/rfp"
)

// Store persists every record the workflow touches.
type Store interface {
	CreateRFP(ctx context.Context, r *rfp.RFP) error
	GetRFP(ctx context.Context, id string) (rfp.RFP, error)
	ListRFPs(ctx context.Context) ([]rfp.RFP, error)
	DeleteRFP(ctx context.Context, id string) error
	RFPVendors(ctx context.Context, rfpID string) ([]rfp.RFPVendor, error)
	AdvanceVendorStatus(ctx context.Context, rfpID, vendorID string, next rfp.VendorStatus) (rfp.VendorStatus, error)

	CreateVendor(ctx context.Context, v *rfp.Vendor) error
	GetVendor(ctx context.Context, id string) (rfp.Vendor, error)
	GetVendorByEmail(ctx context.Context, email string) (rfp.Vendor, error)
	ListVendors(ctx context.Context) ([]rfp.Vendor, error)
	SearchVendors(ctx context.Context, query string) ([]rfp.Vendor, error)
	UpdateVendor(ctx context.Context, v rfp.Vendor) error
	DeleteVendor(ctx context.Context, id string) error
	CountVendorProposals(ctx context.Context, vendorID string) (int, error)

	CreateProposal(ctx context.Context, p *rfp.Proposal) error
	GetProposal(ctx context.Context, id string) (rfp.Proposal, error)
	ListProposalsByRFP(ctx context.Context, rfpID string) ([]rfp.Proposal, error)
	ListProposalsByVendor(ctx context.Context, vendorID string) ([]rfp.Proposal, error)
	DeleteProposal(ctx context.Context, id string) error

	CreateInboundEmail(ctx context.Context, e *rfp.InboundEmail) error
	GetInboundEmail(ctx context.Context, id string) (rfp.InboundEmail, error)
	UpdateInboundEmail(ctx context.Context, e rfp.InboundEmail) error
	ListUnprocessedEmails(ctx context.Context, rfpID string) ([]rfp.InboundEmail, error)
}

type Structurer interface {
	Structure(ctx context.Context, prompt string) (rfp.RequirementSet, error)
}

type Extractor interface {
	Extract(ctx context.Context, text string, rs rfp.RequirementSet) (rfp.ExtractedProposal, error)
}

type Scorer interface {
	Score(ctx context.Context, rs rfp.RequirementSet, p rfp.ExtractedProposal, vendorName string) rfp.Assessment
}

type Recommender interface {
	Recommend(ctx context.Context, rs rfp.RequirementSet, rows []rfp.ComparisonRow) *rfp.Recommendation
}

type Drafter interface {
	Draft(ctx context.Context, rs rfp.RequirementSet, vendorName string) evaluation.Email
}

// Dispatcher sends one email and returns the provider message id.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

// Fetcher loads the full content of an inbound email.
type Fetcher interface {
	GetEmail(ctx context.Context, id string) (mailbox.Message, error)
}

// Dependencies are the collaborators of a Service. Store is required; the
// operations that need a missing collaborator fail with an error.
type Dependencies struct {
	Store       Store
	Structurer  Structurer
	Extractor   Extractor
	Scorer      Scorer
	Recommender Recommender
	Drafter     Drafter
	Dispatcher  Dispatcher
	Fetcher     Fetcher
	Logger      *zap.Logger
}

// WithSuite fills the generation-backed collaborators from suite.
func (d Dependencies) WithSuite(suite *evaluation.Suite) Dependencies {
	if suite == nil {
		return d
	}
	d.Structurer = suite.Structurer
	d.Extractor = suite.Extractor
	d.Scorer = suite.Scorer
	d.Recommender = suite.Recommender
	d.Drafter = suite.Drafter
	return d
}

type Service struct {
	store       Store
	structurer  Structurer
	extractor   Extractor
	scorer      Scorer
	recommender Recommender
	drafter     Drafter
	dispatcher  Dispatcher
	fetcher     Fetcher
	logger      *zap.Logger
}

var errNotConfigured = errors.New("not configured")

func New(deps Dependencies) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}

	return &Service{
		store:       deps.Store,
		structurer:  deps.Structurer,
		extractor:   deps.Extractor,
		scorer:      deps.Scorer,
		recommender: deps.Recommender,
		drafter:     deps.Drafter,
		dispatcher:  deps.Dispatcher,
		fetcher:     deps.Fetcher,
		logger:      logger.OrNop(deps.Logger),
	}, nil
}
