// Package translation implements the Microsoft Translator Translate endpoint as an engine Cog.
package translation

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/takutakahashi/cogs/pkg/engine"
	"github.com/takutakahashi/cogs/pkg/utils"
)

const (
	// DefaultURL is the Translate endpoint of the v2 HTTP API
	DefaultURL = "https://api.microsofttranslator.com/v2/http.svc/Translate"

	// TraceIDHeader lets the service correlate a request with our logs
	TraceIDHeader = "X-ClientTraceId"
)

// ErrXMLParsing is returned when the response is not the expected XML document
var ErrXMLParsing = errors.New("translation: failed to parse XML response")

// Error wraps failures that happened before a response could be parsed:
// token, transport and status errors.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return "translation: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ContentType of the text being translated
type ContentType int

const (
	// ContentTypeDefault leaves the choice to the service (plain text)
	ContentTypeDefault ContentType = iota
	ContentTypePlain
	ContentTypeHTML
)

func (c ContentType) String() string {
	switch c {
	case ContentTypePlain:
		return "text/plain"
	case ContentTypeHTML:
		return "text/html"
	default:
		return ""
	}
}

// ParseContentType accepts "plain", "html" or the full MIME types
func ParseContentType(s string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ContentTypeDefault, nil
	case "plain", "text/plain":
		return ContentTypePlain, nil
	case "html", "text/html":
		return ContentTypeHTML, nil
	default:
		return ContentTypeDefault, fmt.Errorf("unknown content type %q (want plain or html)", s)
	}
}

// TranslateRequest translates Text into the To language
type TranslateRequest struct {
	Text string
	// From is detected by the service when empty
	From        string
	To          string
	ContentType ContentType
	Category    string

	// URL overrides DefaultURL
	URL string
}

var _ engine.Cog[string] = TranslateRequest{}

// Name labels the cog in metrics
func (r TranslateRequest) Name() string {
	return "translate"
}

// Request builds the GET request. Authorization is added by the engine.
func (r TranslateRequest) Request(ctx context.Context) (*http.Request, error) {
	if r.To == "" {
		return nil, errors.New("target language is required")
	}

	base := r.URL
	if base == "" {
		base = DefaultURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Set("to", r.To)
	q.Set("text", r.Text)
	if r.From != "" {
		q.Set("from", r.From)
	}
	if ct := r.ContentType.String(); ct != "" {
		q.Set("contentType", ct)
	}
	if r.Category != "" {
		q.Set("category", r.Category)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(TraceIDHeader, uuid.NewString())
	return req, nil
}

// Result extracts the translated text from the XML response
func (r TranslateRequest) Result(resp *http.Response, err error) (string, error) {
	if err != nil {
		return "", &Error{Err: err}
	}
	if err := utils.CheckHTTPResponse(resp); err != nil {
		return "", &Error{Err: err}
	}

	body, err := engine.ReadBody(resp)
	if err != nil {
		return "", &Error{Err: err}
	}
	return parseResult(body)
}

// parseResult returns the text content of the root element, e.g.
// <string xmlns="http://schemas.microsoft.com/2003/10/Serialization/">Hallo</string>
func parseResult(body []byte) (string, error) {
	var root struct {
		XMLName xml.Name
		Text    string `xml:",chardata"`
	}
	if err := xml.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("%w: %v", ErrXMLParsing, err)
	}
	return root.Text, nil
}
