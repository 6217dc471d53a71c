package engine

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"
)

// MaxBodySize is the largest response body ReadBody accepts
const MaxBodySize = 4 << 20

// ReadBody consumes the response body. The caller still owns closing it.
func ReadBody(resp *http.Response) ([]byte, error) {
	return readBody(resp, MaxBodySize)
}

// ReadString consumes the response body as UTF-8 text
func ReadString(resp *http.Response) (string, error) {
	return readString(resp, MaxBodySize)
}

func readBody(resp *http.Response, limit int64) ([]byte, error) {
	if resp.ContentLength > limit {
		return nil, fmt.Errorf("%w: %d bytes announced, limit %d", ErrBodyTooLarge, resp.ContentLength, limit)
	}
	var buf bytes.Buffer
	if resp.ContentLength > 0 {
		buf.Grow(int(resp.ContentLength))
	}
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, limit+1)); err != nil {
		return nil, &TransportError{Op: "read body", URL: requestURL(resp), Err: err}
	}
	if int64(buf.Len()) > limit {
		return nil, fmt.Errorf("%w: limit %d", ErrBodyTooLarge, limit)
	}
	return buf.Bytes(), nil
}

func readString(resp *http.Response, limit int64) (string, error) {
	body, err := readBody(resp, limit)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(body) {
		return "", fmt.Errorf("%w (%d bytes)", ErrEncoding, len(body))
	}
	return string(body), nil
}

func requestURL(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	return redactURL(resp.Request)
}

// redactURL drops the query string, which may carry user text
func redactURL(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}
