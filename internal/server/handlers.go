package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/mailbox"
	"github.com/spigell/rfp-responder/internal/procurement"
	"github.com/spigell/rfp-responder/internal/rfp"
)

type promptRequest struct {
	NaturalLanguagePrompt string `json:"naturalLanguagePrompt"`
}

type sendRequest struct {
	VendorIDs []string `json:"vendorIds"`
}

type proposalRequest struct {
	VendorEmail string `json:"vendorEmail"`
	EmailBody   string `json:"emailBody"`
}

func (s *Server) previewRFP(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.NaturalLanguagePrompt == "" {
		badRequest(c, "Natural language prompt is required")
		return
	}

	rs, err := s.svc.PreviewRFP(c.Request.Context(), req.NaturalLanguagePrompt)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, rs)
}

func (s *Server) createRFP(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.NaturalLanguagePrompt == "" {
		badRequest(c, "Natural language prompt is required")
		return
	}

	r, err := s.svc.CreateRFP(c.Request.Context(), req.NaturalLanguagePrompt)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, r)
}

func (s *Server) listRFPs(c *gin.Context) {
	rfps, err := s.svc.ListRFPs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, rfps)
}

func (s *Server) getRFP(c *gin.Context) {
	r, err := s.svc.GetRFP(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, r)
}

func (s *Server) getRFPVendors(c *gin.Context) {
	r, err := s.svc.GetRFPWithVendors(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, r)
}

func (s *Server) deleteRFP(c *gin.Context) {
	if err := s.svc.DeleteRFP(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
}

func (s *Server) sendRFP(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.VendorIDs) == 0 {
		badRequest(c, "vendorIds must be a non-empty array")
		return
	}

	result, err := s.svc.SendRFPToVendors(c.Request.Context(), c.Param("id"), req.VendorIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (s *Server) submitProposal(c *gin.Context) {
	var req proposalRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.VendorEmail == "" || req.EmailBody == "" {
		badRequest(c, "vendorEmail and emailBody are required")
		return
	}

	p, err := s.svc.ProcessProposal(c.Request.Context(), c.Param("id"), req.VendorEmail, req.EmailBody)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, p)
}

func (s *Server) compareProposals(c *gin.Context) {
	comparison, err := s.svc.CompareProposals(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, comparison)
}

func (s *Server) createVendor(c *gin.Context) {
	var v rfp.Vendor
	if err := c.ShouldBindJSON(&v); err != nil {
		badRequest(c, "invalid vendor payload")
		return
	}

	created, err := s.svc.CreateVendor(c.Request.Context(), rfp.Vendor{Name: v.Name, Email: v.Email, Notes: v.Notes})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, created)
}

func (s *Server) listVendors(c *gin.Context) {
	vendors, err := s.svc.ListVendors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, vendors)
}

func (s *Server) searchVendors(c *gin.Context) {
	vendors, err := s.svc.SearchVendors(c.Request.Context(), c.Param("query"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, vendors)
}

func (s *Server) getVendor(c *gin.Context) {
	v, err := s.svc.GetVendor(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, v)
}

func (s *Server) updateVendor(c *gin.Context) {
	var upd rfp.VendorUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badRequest(c, "invalid vendor payload")
		return
	}

	v, err := s.svc.UpdateVendor(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, v)
}

func (s *Server) deleteVendor(c *gin.Context) {
	if err := s.svc.DeleteVendor(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
}

func (s *Server) getProposal(c *gin.Context) {
	p, err := s.svc.GetProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}

func (s *Server) deleteProposal(c *gin.Context) {
	if err := s.svc.DeleteProposal(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
}

func (s *Server) proposalsByRFP(c *gin.Context) {
	proposals, err := s.svc.ListProposalsByRFP(c.Request.Context(), c.Param("rfpId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, proposals)
}

func (s *Server) proposalStats(c *gin.Context) {
	stats, err := s.svc.ProposalStats(c.Request.Context(), c.Param("rfpId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func (s *Server) proposalsByVendor(c *gin.Context) {
	proposals, err := s.svc.ListProposalsByVendor(c.Request.Context(), c.Param("vendorId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, proposals)
}

func (s *Server) unprocessedEmails(c *gin.Context) {
	emails, err := s.svc.ListUnprocessed(c.Request.Context(), c.Query("rfpId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, emails)
}

func (s *Server) reparseEmail(c *gin.Context) {
	p, err := s.svc.Reparse(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}

// inboundWebhook always answers 200. The outcome is carried in the envelope.
func (s *Server) inboundWebhook(c *gin.Context) {
	var event mailbox.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusOK, envelope{Success: false, Error: "invalid webhook payload"})
		return
	}

	if event.Type != mailbox.EventReceived {
		s.logger.Debug("webhook event ignored", zap.String("type", event.Type))
		c.JSON(http.StatusOK, envelope{Success: true, Message: "Ignored non-received event"})
		return
	}

	msg, err := mailbox.DecodeMessage(event.Data)
	if err != nil {
		c.JSON(http.StatusOK, envelope{Success: false, Error: err.Error()})
		return
	}

	result, err := s.svc.HandleInbound(c.Request.Context(), msg)
	if err != nil {
		s.logger.Warn("inbound email failed", zap.String("email_id", msg.EmailID), zap.Error(err))
		c.JSON(http.StatusOK, envelope{Success: false, Error: err.Error(), Data: webhookData(result)})
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: result.Message, Data: webhookData(result)})
}

func webhookData(result procurement.InboundResult) any {
	if result.InboundEmailID == "" {
		return nil
	}
	return result
}
