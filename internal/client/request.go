package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

// RequestOption customizes a single Send call.
type RequestOption func(*request)

// request is the replayable description of one logical call.
type request struct {
	method    string
	path      string
	query     url.Values
	header    http.Header
	body      any
	anonymous bool // no Authorization header
	noRefresh bool // a 401 is returned as-is
	isRefresh bool // this call is itself a token refresh
}

// WithQuery adds query parameters to the request URL.
func WithQuery(query url.Values) RequestOption {
	return func(r *request) {
		if r.query == nil {
			r.query = url.Values{}
		}
		for k, vs := range query {
			for _, v := range vs {
				r.query.Add(k, v)
			}
		}
	}
}

// WithHeader sets an extra request header.
func WithHeader(key, value string) RequestOption {
	return func(r *request) {
		if r.header == nil {
			r.header = http.Header{}
		}
		r.header.Set(key, value)
	}
}

// WithoutAuth sends the request without the bearer credential.
func WithoutAuth() RequestOption {
	return func(r *request) {
		r.anonymous = true
	}
}

// WithoutRefresh returns a 401 to the caller as a RequestError instead of
// entering the refresh coordinator. The login call uses this: a 401 there
// means bad credentials, not an expired token.
func WithoutRefresh() RequestOption {
	return func(r *request) {
		r.noRefresh = true
	}
}

// asRefresh marks the request as a token refresh attempt.
func asRefresh() RequestOption {
	return func(r *request) {
		r.isRefresh = true
	}
}

// canRefresh reports whether a 401 on this request may enter the coordinator.
// A request sent without the bearer credential never proves it stale.
func (r *request) canRefresh() bool {
	return !r.isRefresh && !r.noRefresh && !r.anonymous
}

// encodedBody is a request body serialized once so it can be sent again on replay.
type encodedBody struct {
	data        []byte
	contentType string
}

func (b *encodedBody) reader() io.Reader {
	if b == nil || b.data == nil {
		return nil
	}
	return bytes.NewReader(b.data)
}

// encodeBody serializes body according to its type:
//   - nil: no body
//   - url.Values: application/x-www-form-urlencoded
//   - *Multipart: multipart/form-data
//   - json.RawMessage or []byte: sent verbatim as JSON
//   - anything else: JSON
func encodeBody(body any) (*encodedBody, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return &encodedBody{data: []byte(b.Encode()), contentType: "application/x-www-form-urlencoded"}, nil
	case *Multipart:
		data, contentType, err := b.Encode()
		if err != nil {
			return nil, err
		}
		return &encodedBody{data: data, contentType: contentType}, nil
	case json.RawMessage:
		return &encodedBody{data: b, contentType: "application/json"}, nil
	case []byte:
		return &encodedBody{data: b, contentType: "application/json"}, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON body: %w", err)
		}
		return &encodedBody{data: data, contentType: "application/json"}, nil
	}
}

// Multipart builds a multipart/form-data body. Parts are written in the
// order they were added.
type Multipart struct {
	parts []multipartPart
}

type multipartPart struct {
	name        string
	value       string
	fileName    string
	contentType string
	content     io.Reader
}

// NewMultipart creates an empty multipart body.
func NewMultipart() *Multipart {
	return &Multipart{}
}

// Field adds a plain form field.
func (m *Multipart) Field(name, value string) *Multipart {
	m.parts = append(m.parts, multipartPart{name: name, value: value})
	return m
}

// File adds a file part read from content. An empty contentType defaults to
// application/octet-stream.
func (m *Multipart) File(name, fileName, contentType string, content io.Reader) *Multipart {
	m.parts = append(m.parts, multipartPart{
		name:        name,
		fileName:    fileName,
		contentType: contentType,
		content:     content,
	})
	return m
}

// HasFile reports whether at least one file part was added.
func (m *Multipart) HasFile() bool {
	for _, p := range m.parts {
		if p.content != nil {
			return true
		}
	}
	return false
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Encode writes all parts and returns the body with its Content-Type
// (including the boundary). File readers are consumed.
func (m *Multipart) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range m.parts {
		if p.content == nil {
			if err := w.WriteField(p.name, p.value); err != nil {
				return nil, "", fmt.Errorf("failed to write field %q: %w", p.name, err)
			}
			continue
		}

		contentType := p.contentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(p.name), quoteEscaper.Replace(p.fileName)))
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file part %q: %w", p.name, err)
		}
		if _, err := io.Copy(part, p.content); err != nil {
			return nil, "", fmt.Errorf("failed to copy file %q: %w", p.fileName, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
