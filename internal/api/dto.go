package api

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/resolve"
	"github.com/starford/quire/internal/models"
)

var inputType = regexp.MustCompile(`^(insert|delete)`)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Validate checks the request fields.
func (r *CreateDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
	)
}

// UpdateDocumentRequest is the request body for replacing a document.
type UpdateDocumentRequest struct {
	Content *string `json:"content"`
}

// Validate checks the request fields.
func (r *UpdateDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.NotNil),
	)
}

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []models.DocumentMeta `json:"documents"`
	Total     int                   `json:"total"`
}

// SearchResult is a single search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Heading string `json:"heading,omitempty"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

func toSearchResponse(hits []index.SearchResult) SearchResponse {
	out := SearchResponse{Results: make([]SearchResult, len(hits))}
	for i, h := range hits {
		out.Results[i] = SearchResult(h)
	}
	return out
}

// OpenSessionRequest opens an editing session on a stored document.
type OpenSessionRequest struct {
	Path string `json:"path"`
}

// Validate checks the request fields.
func (r *OpenSessionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
	)
}

// InputRequest is one input event. Selection defaults to the session caret.
type InputRequest struct {
	Type      string     `json:"type"`
	Text      string     `json:"text"`
	Selection *ast.Range `json:"selection,omitempty"`
}

// Validate checks the request fields.
func (r *InputRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required, validation.Match(inputType).Error("must start with insert or delete")),
	)
}

func (r *InputRequest) event() resolve.InputEvent {
	return resolve.InputEvent{Type: r.Type, Text: r.Text}
}

func (r *InputRequest) selection() resolve.Selection {
	if r.Selection == nil {
		return nil
	}
	return resolve.StaticSelection{Range: *r.Selection}
}

// CaretRequest moves a session caret.
type CaretRequest struct {
	Caret ast.Point `json:"caret"`
}

// Validate checks the request fields.
func (r *CaretRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Caret, validation.By(func(any) error {
			if r.Caret.BlockID == 0 {
				return validation.NewError("validation_caret_block", "blockId is required")
			}
			return nil
		})),
	)
}

// SaveResponse reports the checksum of the saved text.
type SaveResponse struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// DiffResponse carries a unified diff against the saved text.
type DiffResponse struct {
	Diff  string `json:"diff"`
	Dirty bool   `json:"dirty"`
}
