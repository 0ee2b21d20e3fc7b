package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// MaxUploadBytes is the client-side ceiling; oversized files are rejected
// before any network transfer starts.
const MaxUploadBytes = 10 << 20

var ErrFileTooLarge = errors.New("file exceeds the 10 MB upload limit")

type UploadResult struct {
	FileName  string `json:"fileName"`
	PublicURL string `json:"publicUrl"`
}

// FileUploadClient pushes a user-attached file to the storage endpoint and
// yields the canonical reference woven into the text protocol.
type FileUploadClient struct {
	AgentID string
	BaseURL string
	HTTP    *http.Client

	log zerolog.Logger
}

func NewFileUploadClient(agentID, baseURL string, log zerolog.Logger) *FileUploadClient {
	return &FileUploadClient{
		AgentID: agentID,
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

func (c *FileUploadClient) Upload(ctx context.Context, path string) (*UploadResult, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.Size() > MaxUploadBytes {
		return nil, ErrFileTooLarge
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := mw.WriteField("agentId", c.AgentID); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("file", filepath.Base(path)).Msg("upload transport failure")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		c.log.Error().Int("status", resp.StatusCode).Str("file", filepath.Base(path)).Msg("upload rejected")
		return nil, fmt.Errorf("upload failed: status %d", resp.StatusCode)
	}

	var out UploadResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("malformed upload response: %w", err)
	}
	c.log.Info().Str("file", out.FileName).Str("url", out.PublicURL).Msg("upload complete")
	return &out, nil
}

// Attachments are not a distinct protocol action; they travel the text
// channel as "[Image: name]\n<url>" or "[File: name]\n<url>" and are parsed
// back out at render time. The tagged Body variant keeps that parsing in one
// place.

type BodyKind string

const (
	BodyText  BodyKind = "text"
	BodyImage BodyKind = "image"
	BodyFile  BodyKind = "file"
)

type Body struct {
	Kind BodyKind
	Text string
	Name string
	URL  string
}

// EncodeAttachment builds the text-channel form of an uploaded file
// reference.
func EncodeAttachment(name, url string) string {
	tag := "File"
	if isImageName(name) {
		tag = "Image"
	}
	return fmt.Sprintf("[%s: %s]\n%s", tag, name, url)
}

// ParseBody classifies a message body as plain text or an encoded
// attachment.
func ParseBody(text string) Body {
	head, rest, found := strings.Cut(text, "\n")
	if !found {
		return Body{Kind: BodyText, Text: text}
	}
	head = strings.TrimSpace(head)
	url := strings.TrimSpace(rest)
	if !strings.HasPrefix(head, "[") || !strings.HasSuffix(head, "]") || url == "" || strings.ContainsAny(url, "\n ") {
		return Body{Kind: BodyText, Text: text}
	}
	tag, name, ok := strings.Cut(head[1:len(head)-1], ": ")
	if !ok || name == "" {
		return Body{Kind: BodyText, Text: text}
	}
	switch tag {
	case "Image":
		return Body{Kind: BodyImage, Name: name, URL: url}
	case "File":
		return Body{Kind: BodyFile, Name: name, URL: url}
	}
	return Body{Kind: BodyText, Text: text}
}

func isImageName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}
