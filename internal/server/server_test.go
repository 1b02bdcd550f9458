package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/rfp-responder/internal/mailbox"
	"github.com/spigell/rfp-responder/internal/procurement"
	"github.com/spigell/rfp-responder/internal/rfp"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeProcurement implements only what a test sets; other calls panic
// through the nil embedded interface.
type fakeProcurement struct {
	Procurement

	createRFP func(prompt string) (rfp.RFP, error)
	getRFP    func(id string) (rfp.RFP, error)
	send      func(rfpID string, vendorIDs []string) (procurement.SendResult, error)
	vendors   func() ([]rfp.Vendor, error)
	inbound   func(msg mailbox.Message) (procurement.InboundResult, error)
	inboundN  int
}

func (f *fakeProcurement) CreateRFP(_ context.Context, prompt string) (rfp.RFP, error) {
	return f.createRFP(prompt)
}

func (f *fakeProcurement) GetRFP(_ context.Context, id string) (rfp.RFP, error) {
	return f.getRFP(id)
}

func (f *fakeProcurement) SendRFPToVendors(_ context.Context, rfpID string, vendorIDs []string) (procurement.SendResult, error) {
	return f.send(rfpID, vendorIDs)
}

func (f *fakeProcurement) ListVendors(_ context.Context) ([]rfp.Vendor, error) {
	return f.vendors()
}

func (f *fakeProcurement) HandleInbound(_ context.Context, msg mailbox.Message) (procurement.InboundResult, error) {
	f.inboundN++
	return f.inbound(msg)
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T, svc Procurement, cfg Config) http.Handler {
	t.Helper()
	s, err := New(svc, cfg, nil)
	require.NoError(t, err)
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestNewRequiresService(t *testing.T) {
	_, err := New(nil, DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, &fakeProcurement{}, Config{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatusForErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{err: rfp.NotFound("rfp", "x"), status: http.StatusNotFound},
		{err: rfp.Invalid("bad"), status: http.StatusBadRequest},
		{err: fmt.Errorf("vendor: %w", rfp.ErrDuplicate), status: http.StatusConflict},
		{err: fmt.Errorf("%w: smtp down", rfp.ErrDispatch), status: http.StatusBadGateway},
		{err: &rfp.ExtractionError{Stage: "rfp structuring", Err: errors.New("bad")}, status: http.StatusUnprocessableEntity},
		{err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}

func TestCreateRFP(t *testing.T) {
	svc := &fakeProcurement{createRFP: func(prompt string) (rfp.RFP, error) {
		return rfp.RFP{ID: "r1", Title: "Laptops", RawPrompt: prompt}, nil
	}}
	h := newTestServer(t, svc, Config{})

	rec, resp := do(t, h, http.MethodPost, "/api/rfps", map[string]string{"naturalLanguagePrompt": "20 laptops"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)

	var got rfp.RFP
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, "20 laptops", got.RawPrompt)

	rec, resp = do(t, h, http.MethodPost, "/api/rfps", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Natural language prompt is required", resp.Error)
}

func TestErrorEnvelope(t *testing.T) {
	svc := &fakeProcurement{getRFP: func(id string) (rfp.RFP, error) {
		return rfp.RFP{}, rfp.NotFound("rfp", id)
	}}
	h := newTestServer(t, svc, Config{})

	rec, resp := do(t, h, http.MethodGet, "/api/rfps/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "missing")
}

func TestSendRFP(t *testing.T) {
	svc := &fakeProcurement{send: func(rfpID string, vendorIDs []string) (procurement.SendResult, error) {
		assert.Equal(t, "r1", rfpID)
		assert.Equal(t, []string{"v1", "v2", "v3"}, vendorIDs)
		return procurement.SendResult{Success: true, SentCount: 2, FailedVendors: []string{"Globex"}}, nil
	}}
	h := newTestServer(t, svc, Config{})

	rec, resp := do(t, h, http.MethodPost, "/api/rfps/r1/send", map[string]any{"vendorIds": []string{"v1", "v2", "v3"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"sentCount":2,"failedVendors":["Globex"]}`, string(resp.Data))

	rec, _ = do(t, h, http.MethodPost, "/api/rfps/r1/send", map[string]any{"vendorIds": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookAlwaysOK(t *testing.T) {
	svc := &fakeProcurement{inbound: func(msg mailbox.Message) (procurement.InboundResult, error) {
		if msg.From == "broken@acme.test" {
			return procurement.InboundResult{InboundEmailID: "e1"}, &rfp.ExtractionError{Stage: "proposal extraction", Err: errors.New("bad json")}
		}
		return procurement.InboundResult{Message: "Proposal processed successfully", InboundEmailID: "e2", ProposalID: "p1"}, nil
	}}
	h := newTestServer(t, svc, Config{})

	rec, resp := do(t, h, http.MethodPost, "/api/webhooks/inbound-email", map[string]any{"type": "email.sent"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Ignored non-received event", resp.Message)
	assert.Zero(t, svc.inboundN)

	rec, resp = do(t, h, http.MethodPost, "/api/webhooks/inbound-email", map[string]any{
		"type": "email.received",
		"data": map[string]any{"email_id": "m1", "from": "sales@acme.test", "subject": "Quote", "text": "hi"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Proposal processed successfully", resp.Message)

	rec, resp = do(t, h, http.MethodPost, "/api/webhooks/inbound-email", map[string]any{
		"type": "email.received",
		"data": map[string]any{"email_id": "m2", "from": "broken@acme.test", "subject": "Quote", "text": "hi"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "bad json")
	assert.Equal(t, 2, svc.inboundN)
}

func TestGeneralRateLimit(t *testing.T) {
	svc := &fakeProcurement{vendors: func() ([]rfp.Vendor, error) { return []rfp.Vendor{}, nil }}
	h := newTestServer(t, svc, Config{GeneralLimit: RateLimit{Requests: 2, Window: time.Hour}})

	for range 2 {
		rec, _ := do(t, h, http.MethodGet, "/api/vendors", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec, resp := do(t, h, http.MethodGet, "/api/vendors", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, resp.Success)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAIRateLimitOnlyCoversGenerationRoutes(t *testing.T) {
	svc := &fakeProcurement{
		createRFP: func(prompt string) (rfp.RFP, error) { return rfp.RFP{ID: "r1"}, nil },
		vendors:   func() ([]rfp.Vendor, error) { return []rfp.Vendor{}, nil },
	}
	h := newTestServer(t, svc, Config{AILimit: RateLimit{Requests: 1, Window: time.Hour}})

	rec, _ := do(t, h, http.MethodPost, "/api/rfps", map[string]string{"naturalLanguagePrompt": "a"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec, resp := do(t, h, http.MethodPost, "/api/rfps", map[string]string{"naturalLanguagePrompt": "b"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many AI requests, please try again later.", resp.Error)

	rec, _ = do(t, h, http.MethodGet, "/api/vendors", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLimiterForgetsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newLimiter(RateLimit{Requests: 1, Window: time.Hour}, "slow down")
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))

	now = now.Add(idleTTL + time.Minute)
	assert.True(t, l.allow("10.0.0.2"))
	assert.Len(t, l.clients, 1)
}
