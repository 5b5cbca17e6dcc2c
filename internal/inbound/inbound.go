package inbound

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
)

// Email is one decoded inbound email, reduced to the signals the engine
// consumes.
type Email struct {
	From      string
	Subject   string
	Body      string
	MessageID string
	InReplyTo string
}

// payload mirrors the inbound webhook shape delivered by the email
// transport.
type payload struct {
	From struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"from"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
	HTML      string `json:"html"`
	MessageID string `json:"message_id"`
	InReplyTo string `json:"in_reply_to"`
}

// Decode parses a webhook request body into an Email. HTML-only messages
// are converted to plain text; if conversion fails the raw HTML is used so
// extraction still sees the content.
func Decode(body []byte) (Email, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Email{}, fmt.Errorf("inbound: decode payload: %w", err)
	}
	if p.From.Email == "" {
		return Email{}, fmt.Errorf("inbound: payload missing sender address")
	}

	text := p.Text
	if strings.TrimSpace(text) == "" && strings.TrimSpace(p.HTML) != "" {
		text = htmlToText(p.HTML)
	}

	return Email{
		From:      p.From.Email,
		Subject:   p.Subject,
		Body:      text,
		MessageID: p.MessageID,
		InReplyTo: p.InReplyTo,
	}, nil
}

// htmlToText extracts readable text from an HTML email body. Falls back to
// the raw markup when the document cannot be parsed.
func htmlToText(html string) string {
	u, _ := url.Parse("message://inbound")
	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		return html
	}
	var buf bytes.Buffer
	if err := article.RenderText(&buf); err != nil {
		return html
	}
	if strings.TrimSpace(buf.String()) == "" {
		return html
	}
	return buf.String()
}

// VerifySignature checks an HMAC-SHA256 webhook signature of the form
// "sha256=<hex>".
func VerifySignature(body []byte, secret, signature string) bool {
	if signature == "" {
		return false
	}
	sig := strings.TrimPrefix(signature, "sha256=")
	expected, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// ComputeSignature generates an HMAC-SHA256 signature for testing and for
// external senders.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
