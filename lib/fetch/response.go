package fetch

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html/charset"
)

// Response is an immutable fetched document: raw bytes, the final URL after
// redirects, and the declared or inferred text encoding.
type Response struct {
	Body       []byte
	URL        *url.URL
	StatusCode int
	Header     http.Header

	text string
}

// Text decodes the body using the Content-Type charset when declared,
// sniffing it from the content otherwise. The decoded form is memoized.
func (r *Response) Text() string {
	if r.text != "" || len(r.Body) == 0 {
		return r.text
	}

	contentType := ""
	if r.Header != nil {
		contentType = r.Header.Get("Content-Type")
	}
	reader, err := charset.NewReader(bytes.NewReader(r.Body), contentType)
	if err != nil {
		r.text = string(r.Body)
		return r.text
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		r.text = string(r.Body)
		return r.text
	}
	r.text = string(decoded)
	return r.text
}

// IsJSON reports whether the response declares or resembles a json body.
func (r *Response) IsJSON() bool {
	if r.Header != nil && strings.Contains(r.Header.Get("Content-Type"), "json") {
		return true
	}
	trimmed := strings.TrimLeft(r.Text(), " \t\r\n")
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}
