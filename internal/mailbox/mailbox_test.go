package mailbox

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{input: "Acme Sales <Sales@Acme.test>", expect: "sales@acme.test"},
		{input: "  BIDS@globex.test ", expect: "bids@globex.test"},
		{input: `"Initech, Inc." <quotes@initech.test>`, expect: "quotes@initech.test"},
		{input: "", expect: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expect, ExtractAddress(tt.input), tt.input)
	}
}

func TestComposeText(t *testing.T) {
	text := ComposeText(" Our quote is attached. ", []Attachment{
		{Filename: "prices.csv", ContentType: "text/csv", Content: b64("item,price\nLaptop,450")},
		{Filename: "notes.txt", ContentType: "text/plain; charset=utf-8", Content: b64("Delivery in 2 weeks")},
		{Filename: "quote.pdf", ContentType: "application/pdf", Content: b64("%PDF")},
		{Filename: "broken.txt", ContentType: "text/plain", Content: "***not base64***"},
	})

	expect := strings.Join([]string{
		"Our quote is attached.",
		"",
		"--- ATTACHMENTS ---",
		"",
		"[Attachment: prices.csv]",
		"item,price\nLaptop,450",
		"",
		"[Attachment: notes.txt]",
		"Delivery in 2 weeks",
		"",
		"[Attachment: quote.pdf (application/pdf) - content not processed]",
		"",
		"[Attachment: broken.txt (text/plain) - content not processed]",
	}, "\n")

	assert.Equal(t, expect, text)
	assert.Equal(t, "body", ComposeText("body\n", nil))
}

func TestHTMLToText(t *testing.T) {
	html := `<html><head><style>p{}</style></head><body>
<p>Hello,</p>
<table><tr><th>Item</th><th>Price</th></tr><tr><td>Laptop</td><td>$450</td></tr></table>
<ul><li>Free installation</li></ul>
</body></html>`

	text := HTMLToText(html)

	assert.Contains(t, text, "Hello,")
	assert.Contains(t, text, "| Laptop | $450")
	assert.Contains(t, text, "- Free installation")
	assert.NotContains(t, text, "p{}")
	assert.NotContains(t, text, "\n\n\n")
}

func TestDecodeMessageAndBody(t *testing.T) {
	msg, err := DecodeMessage(map[string]any{
		"email_id": "em_1",
		"from":     "Acme <sales@acme.test>",
		"subject":  "Re: RFP",
		"html":     "<p>Total: $9,500</p>",
		"to":       []any{"rfp@example.test"},
		"attachments": []any{
			map[string]any{"filename": "a.txt", "content_type": "text/plain", "content": b64("extra")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "em_1", msg.EmailID)
	assert.Equal(t, "Total: $9,500", msg.Body())
	require.Len(t, msg.Attachments, 1)
	assert.Contains(t, msg.ProposalText(), "[Attachment: a.txt]\nextra")

	fetched, err := DecodeMessage(map[string]any{"id": "em_2", "text": "plain", "html": nil})
	require.NoError(t, err)
	assert.Equal(t, "em_2", fetched.EmailID)

	merged := Message{EmailID: "em_2", From: "x@y.test"}.Merge(fetched)
	assert.Equal(t, "plain", merged.Body())
	assert.Equal(t, "x@y.test", merged.From)
}
