package engine

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func response(body io.Reader, contentLength int64) *http.Response {
	return &http.Response{
		StatusCode:    http.StatusOK,
		Body:          io.NopCloser(body),
		ContentLength: contentLength,
		Request: &http.Request{
			Method: http.MethodGet,
			URL:    &url.URL{Scheme: "https", Host: "example.com", Path: "/t", RawQuery: "text=secret"},
		},
	}
}

func TestReadBody(t *testing.T) {
	body, err := ReadBody(response(bytes.NewBufferString("Hallo"), 5))
	require.NoError(t, err)
	assert.Equal(t, []byte("Hallo"), body)

	body, err = ReadBody(response(bytes.NewBufferString("no length"), -1))
	require.NoError(t, err)
	assert.Equal(t, []byte("no length"), body)
}

func TestReadBody_TransportError(t *testing.T) {
	_, err := ReadBody(response(failingReader{}, -1))
	require.Error(t, err)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "read body", transportErr.Op)
	assert.Equal(t, "https://example.com/t", transportErr.URL)
}

func TestReadString(t *testing.T) {
	tests := []struct {
		name    string
		body    []byte
		want    string
		wantErr error
	}{
		{"ascii", []byte("tok-1"), "tok-1", nil},
		{"multibyte", []byte("こんにちは"), "こんにちは", nil},
		{"empty", []byte{}, "", nil},
		{"invalid utf-8", []byte{'o', 'k', 0xc3, 0x28}, "", ErrEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadString(response(bytes.NewReader(tt.body), int64(len(tt.body))))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadBody_Limit(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		contentLength int64
		wantErr       bool
	}{
		{"at the limit", "abcd", 4, false},
		{"over the limit, unknown length", "abcde", -1, true},
		{"over the limit, announced", "abcde", 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := readBody(response(strings.NewReader(tt.body), tt.contentLength), 4)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBodyTooLarge)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []byte(tt.body), body)
		})
	}
}
