package resend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New("re_test", "", zap.NewNop())
	c.APIURL = srv.URL
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestSend(t *testing.T) {
	var got struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		Text    string   `json:"text"`
		HTML    string   `json:"html"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, `{"id":"msg_1"}`)
	})

	id, err := c.Send(context.Background(), "sales@acme.test", "RFP: Laptops", "Line 1\nA <b> & c")
	require.NoError(t, err)

	assert.Equal(t, "msg_1", id)
	assert.Equal(t, DefaultFrom, got.From)
	assert.Equal(t, []string{"sales@acme.test"}, got.To)
	assert.Equal(t, "RFP: Laptops", got.Subject)
	assert.Equal(t, "Line 1\nA <b> & c", got.Text)
	assert.Equal(t, "Line 1<br>A &lt;b&gt; &amp; c", got.HTML)
}

func TestSendAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `{"statusCode":422,"name":"validation_error","message":"Invalid to field"}`)
	})

	_, err := c.Send(context.Background(), "nope", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid to field")

	_, err = c.Send(context.Background(), " ", "s", "b")
	assert.Error(t, err)
}

func TestGetEmail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/emails/em_1", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"object":"email","id":"em_1","from":"Acme <sales@acme.test>","subject":"Re: RFP","text":"Quote: $9,500","html":"","to":["rfp@example.test"]}`)
	})

	msg, err := c.GetEmail(context.Background(), "em_1")
	require.NoError(t, err)

	assert.Equal(t, "em_1", msg.EmailID)
	assert.Equal(t, "Acme <sales@acme.test>", msg.From)
	assert.Equal(t, "Quote: $9,500", msg.Body())
	assert.Equal(t, "Re: RFP", msg.Subject)

	_, err = c.GetEmail(context.Background(), "")
	assert.Error(t, err)
}
