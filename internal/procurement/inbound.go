package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/logger"
	"github.com/spigell/rfp-responder/internal/mailbox"
	"github.com/spigell/rfp-responder/internal/rfp"
)

const (
	msgNoVendor  = "Email received but no matching vendor found"
	msgNoRFPID   = "Email received but no RFP ID found"
	msgNoRFP     = "Email received but RFP not found"
	msgProcessed = "Proposal processed successfully"
)

var errNoIdentifier = errors.New("no RFP identifier found in subject or body")

// InboundResult describes what happened to an inbound email.
type InboundResult struct {
	Message        string `json:"message"`
	InboundEmailID string `json:"inboundEmailId,omitempty"`
	ProposalID     string `json:"proposalId,omitempty"`
	VendorName     string `json:"vendorName,omitempty"`
	RFPTitle       string `json:"rfpTitle,omitempty"`
}

// HandleInbound turns a vendor reply into a proposal. Emails from unknown
// senders are ignored. Emails from known vendors are stored first. A missing
// or unknown RFP id is saved on the record and reported in the result; any
// other failure is saved on the record and returned.
func (s *Service) HandleInbound(ctx context.Context, msg mailbox.Message) (InboundResult, error) {
	if msg.Body() == "" && msg.EmailID != "" && s.fetcher != nil {
		full, err := s.fetcher.GetEmail(ctx, msg.EmailID)
		if err != nil {
			return InboundResult{}, fmt.Errorf("fetch email %s: %w", msg.EmailID, err)
		}
		msg = msg.Merge(full)
	}

	from := mailbox.ExtractAddress(msg.From)
	text := msg.ProposalText()
	if from == "" || text == "" {
		return InboundResult{}, rfp.Invalid("missing required email fields")
	}

	log := s.logger.With(zap.String(logger.FieldVendorEmail, from), zap.String("email_id", msg.EmailID))

	v, err := s.store.GetVendorByEmail(ctx, from)
	if errors.Is(err, rfp.ErrNotFound) {
		log.Info("inbound email from unknown sender ignored")
		return InboundResult{Message: msgNoVendor}, nil
	}
	if err != nil {
		return InboundResult{}, err
	}

	record := rfp.InboundEmail{
		From:     from,
		Subject:  msg.Subject,
		RawBody:  text,
		VendorID: v.ID,
	}
	if err := s.store.CreateInboundEmail(ctx, &record); err != nil {
		return InboundResult{}, err
	}

	result := InboundResult{InboundEmailID: record.ID, VendorName: v.Name}

	rfpID, matcher := rfp.MatchIdentifier(msg.Subject + " " + text)
	if rfpID == "" {
		log.Info("inbound email without rfp identifier")
		result.Message = msgNoRFPID
		return result, s.markFailed(ctx, &record, errNoIdentifier)
	}
	record.RFPID = rfpID

	r, err := s.store.GetRFP(ctx, rfpID)
	if errors.Is(err, rfp.ErrNotFound) {
		// The record must not reference a missing RFP.
		record.RFPID = ""
		result.Message = msgNoRFP
		return result, s.markFailed(ctx, &record, err)
	}
	if err != nil {
		return result, s.fail(ctx, &record, err)
	}
	result.RFPTitle = r.Title

	log.Info("processing inbound proposal", zap.String(logger.FieldRFP, rfpID), zap.String("matcher", matcher))

	p, err := s.processFor(ctx, r, v, text)
	if err != nil {
		return result, s.fail(ctx, &record, err)
	}

	if err := s.succeed(ctx, &record, p.ID); err != nil {
		return result, err
	}

	result.ProposalID = p.ID
	result.Message = msgProcessed
	return result, nil
}

// Reparse runs extraction and scoring again for a stored inbound email.
// Success clears the stored error; failure replaces it.
func (s *Service) Reparse(ctx context.Context, id string) (rfp.Proposal, error) {
	record, err := s.store.GetInboundEmail(ctx, id)
	if err != nil {
		return rfp.Proposal{}, err
	}

	var v rfp.Vendor
	if record.VendorID != "" {
		v, err = s.store.GetVendor(ctx, record.VendorID)
	} else {
		v, err = s.store.GetVendorByEmail(ctx, record.From)
	}
	if err != nil {
		return rfp.Proposal{}, s.fail(ctx, &record, err)
	}
	record.VendorID = v.ID

	if record.RFPID == "" {
		record.RFPID = rfp.ExtractIdentifier(record.Subject, record.RawBody)
	}
	if record.RFPID == "" {
		return rfp.Proposal{}, s.fail(ctx, &record, rfp.Invalid("%v", errNoIdentifier))
	}

	r, err := s.store.GetRFP(ctx, record.RFPID)
	if err != nil {
		if errors.Is(err, rfp.ErrNotFound) {
			record.RFPID = ""
		}
		return rfp.Proposal{}, s.fail(ctx, &record, err)
	}

	p, err := s.processFor(ctx, r, v, record.RawBody)
	if err != nil {
		return rfp.Proposal{}, s.fail(ctx, &record, err)
	}

	if err := s.succeed(ctx, &record, p.ID); err != nil {
		return rfp.Proposal{}, err
	}
	return p, nil
}

// ListUnprocessed returns inbound emails that are pending or failed. An empty
// rfpID lists them across all RFPs.
func (s *Service) ListUnprocessed(ctx context.Context, rfpID string) ([]rfp.InboundEmail, error) {
	return s.store.ListUnprocessedEmails(ctx, rfpID)
}

// fail stores cause on the record and returns it.
func (s *Service) fail(ctx context.Context, record *rfp.InboundEmail, cause error) error {
	if err := s.markFailed(ctx, record, cause); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// markFailed stores cause on the record. Only a storage error is returned.
func (s *Service) markFailed(ctx context.Context, record *rfp.InboundEmail, cause error) error {
	now := time.Now().UTC()
	record.Processed = false
	record.ProcessingError = cause.Error()
	record.ProcessedAt = &now

	s.logger.Warn("inbound email processing failed",
		zap.String("inbound_email_id", record.ID),
		zap.String(logger.FieldRFP, record.RFPID),
		zap.Error(cause),
	)

	if err := s.store.UpdateInboundEmail(ctx, *record); err != nil {
		return fmt.Errorf("record processing error: %w", err)
	}
	return nil
}

func (s *Service) succeed(ctx context.Context, record *rfp.InboundEmail, proposalID string) error {
	now := time.Now().UTC()
	record.Processed = true
	record.ProcessingError = ""
	record.ProposalID = proposalID
	record.ProcessedAt = &now
	return s.store.UpdateInboundEmail(ctx, *record)
}
