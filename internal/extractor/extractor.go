package extractor

import (
	"context"

	"github.com/quotedesk-io/quotedesk/pkg/protocol"
)

// Extraction is the structured result of running the extraction prompt
// over email text. Customer name and email ride alongside the FieldSet
// because they are ticket-level attributes, not quote fields.
type Extraction struct {
	CustomerName  string
	CustomerEmail string
	Fields        protocol.FieldSet
}

// Extractor converts raw email text into a structured field set. A failed
// call is non-fatal for the caller: the engine degrades to an empty
// Extraction and continues.
type Extractor interface {
	Extract(ctx context.Context, subject, body string) (Extraction, error)
}

// Composer generates customer-facing follow-up emails asking for the
// missing fields. On failure the engine falls back to FallbackFollowup.
type Composer interface {
	Followup(ctx context.Context, customerName string, missing []protocol.FieldKey, fields protocol.FieldSet) (subject, body string, err error)
}
