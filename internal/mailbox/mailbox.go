// Package mailbox normalizes inbound vendor emails into proposal text.
package mailbox

import (
	"encoding/base64"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/rfp-responder/internal/rfp"
)

// EventReceived is the webhook event type of a delivered inbound email.
const EventReceived = "email.received"

const attachmentsMarker = "--- ATTACHMENTS ---"

var angleAddressRe = regexp.MustCompile(`<(.+?)>`)

// textContentTypes are the attachment types whose content is read.
var textContentTypes = map[string]bool{
	"text/plain": true,
	"text/csv":   true,
}

// Attachment carries base64 encoded content.
type Attachment struct {
	Filename    string `mapstructure:"filename" json:"filename"`
	ContentType string `mapstructure:"content_type" json:"contentType"`
	Content     string `mapstructure:"content" json:"content,omitempty"`
}

// Message is an inbound email as delivered by the webhook or fetched from the provider.
type Message struct {
	ID          string       `mapstructure:"id"`
	EmailID     string       `mapstructure:"email_id"`
	From        string       `mapstructure:"from"`
	Subject     string       `mapstructure:"subject"`
	Text        string       `mapstructure:"text"`
	HTML        string       `mapstructure:"html"`
	Attachments []Attachment `mapstructure:"attachments"`
}

// Event is the webhook envelope.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// DecodeMessage reads a loosely typed email object.
func DecodeMessage(data map[string]any) (Message, error) {
	var msg Message
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &msg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Message{}, err
	}
	if err := decoder.Decode(data); err != nil {
		return Message{}, fmt.Errorf("decode email: %w", err)
	}
	if msg.EmailID == "" {
		msg.EmailID = msg.ID
	}
	return msg, nil
}

// Body returns the plain text body, converting HTML when no text part exists.
func (m Message) Body() string {
	if text := strings.TrimSpace(m.Text); text != "" {
		return text
	}
	if strings.TrimSpace(m.HTML) != "" {
		return HTMLToText(m.HTML)
	}
	return ""
}

// Merge fills the empty fields of m from other.
func (m Message) Merge(other Message) Message {
	if m.From == "" {
		m.From = other.From
	}
	if m.Subject == "" {
		m.Subject = other.Subject
	}
	if strings.TrimSpace(m.Text) == "" {
		m.Text = other.Text
	}
	if strings.TrimSpace(m.HTML) == "" {
		m.HTML = other.HTML
	}
	if len(m.Attachments) == 0 {
		m.Attachments = other.Attachments
	}
	return m
}

// ProposalText is the body followed by the readable attachments.
func (m Message) ProposalText() string {
	return ComposeText(m.Body(), m.Attachments)
}

// ExtractAddress returns the normalized address of a "Name <addr>" sender.
func ExtractAddress(from string) string {
	if match := angleAddressRe.FindStringSubmatch(from); len(match) == 2 {
		return rfp.NormalizeEmail(match[1])
	}
	if addr, err := mail.ParseAddress(from); err == nil {
		return rfp.NormalizeEmail(addr.Address)
	}
	return rfp.NormalizeEmail(from)
}

// ComposeText appends attachment text to body under a marker line. Only
// text/plain and text/csv content is decoded; other types leave a placeholder.
func ComposeText(body string, attachments []Attachment) string {
	body = strings.TrimSpace(body)
	if len(attachments) == 0 {
		return body
	}

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString(attachmentsMarker)

	for _, att := range attachments {
		name := att.Filename
		if name == "" {
			name = "unnamed"
		}
		contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(att.ContentType, ";", 2)[0]))

		text, ok := attachmentText(contentType, att.Content)
		if !ok {
			fmt.Fprintf(&b, "\n\n[Attachment: %s (%s) - content not processed]", name, contentType)
			continue
		}
		fmt.Fprintf(&b, "\n\n[Attachment: %s]\n%s", name, text)
	}

	return strings.TrimSpace(b.String())
}

func attachmentText(contentType, content string) (string, bool) {
	if !textContentTypes[contentType] || strings.TrimSpace(content) == "" {
		return "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(content))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(decoded)), true
}
