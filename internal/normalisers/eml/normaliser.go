// Package eml extracts the headers and body text of saved email messages.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/normalisers/html"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles EML (email) documents.
type Normaliser struct {
	html *html.Normaliser
}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{html: html.New()}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".eml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise renders From, To, Date and Subject followed by the body.
// Plain text parts are preferred over HTML parts.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: not an email message: %w", domain.ErrParse, err)
	}

	body, warnings := n.body(ctx, msg.Header, msg.Body)

	var content strings.Builder
	for _, h := range []string{"From", "To", "Date", "Subject"} {
		if v := decodeHeader(msg.Header.Get(h)); v != "" {
			fmt.Fprintf(&content, "%s: %s\n", h, v)
		}
	}
	content.WriteString("\n")
	content.WriteString(body)

	return &driven.NormaliseResult{
		Content:  strings.TrimSpace(content.String()),
		MIMEType: "message/rfc822",
		Warnings: warnings,
	}, nil
}

// header is the subset of a MIME header the body walker needs.
type header interface {
	Get(key string) string
}

// body extracts the text of a single part, recursing into multiparts.
func (n *Normaliser) body(ctx context.Context, h header, r io.Reader) (string, []string) {
	contentType := h.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return n.multipart(ctx, r, params["boundary"])
	}

	data, err := io.ReadAll(decodeTransfer(h.Get("Content-Transfer-Encoding"), r))
	if err != nil {
		return "", []string{"email body could not be fully decoded"}
	}

	switch mediaType {
	case "text/plain":
		return string(data), nil
	case "text/html":
		res, err := n.html.Normalise(ctx, &domain.RawDocument{Content: data})
		if err != nil {
			return "", []string{"email HTML body could not be parsed"}
		}
		return res.Content, nil
	default:
		return "", nil
	}
}

func (n *Normaliser) multipart(ctx context.Context, r io.Reader, boundary string) (string, []string) {
	if boundary == "" {
		return "", []string{"multipart email without boundary"}
	}

	var (
		plain, rich, warnings []string
		attachments           int
	)
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			warnings = append(warnings, "email has a malformed MIME part")
			break
		}

		if disp, _, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition")); disp == "attachment" {
			attachments++
			part.Close()
			continue
		}

		mediaType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		text, w := n.body(ctx, part.Header, part)
		part.Close()
		warnings = append(warnings, w...)
		if strings.TrimSpace(text) == "" {
			continue
		}
		if mediaType == "text/html" {
			rich = append(rich, text)
		} else {
			plain = append(plain, text)
		}
	}

	if attachments > 0 {
		warnings = append(warnings, fmt.Sprintf("skipped %d email attachment(s)", attachments))
	}
	if len(plain) > 0 {
		return strings.Join(plain, "\n"), warnings
	}
	return strings.Join(rich, "\n"), warnings
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, newlineStripper{r})
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// newlineStripper drops CR and LF so wrapped base64 decodes.
type newlineStripper struct{ r io.Reader }

func (s newlineStripper) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	out := p[:0]
	for _, b := range p[:n] {
		if b != '\r' && b != '\n' {
			out = append(out, b)
		}
	}
	return len(out), err
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(v string) string {
	if v == "" {
		return ""
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}
