// Package voice wraps recorded audio clips into the multipart body the
// submit endpoint expects. The body is built once and dispatched unchanged;
// the audio bytes themselves are opaque to the client.
package voice

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// audioFieldName is the multipart field the backend reads the clip from.
const audioFieldName = "audio"

// fallbackMimeType covers clips whose extension maps to no known type; the
// platform recorder emits wav.
const fallbackMimeType = "audio/wav"

// Payload is a pre-built multipart body carrying one recorded clip.
type Payload struct {
	Body        *bytes.Buffer
	ContentType string
}

// NewPayload builds the multipart body for raw audio bytes.
func NewPayload(filename string, data []byte) (*Payload, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, audioFieldName, filename))
	header.Set("Content-Type", mimeTypeFor(filename))

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create audio part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write audio part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	return &Payload{Body: buf, ContentType: writer.FormDataContentType()}, nil
}

// FromFile reads a recorded clip from disk and wraps it.
func FromFile(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}
	return NewPayload(filepath.Base(path), data)
}

func mimeTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return fallbackMimeType
}
