package widget

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func writeTestFile(t *testing.T, name string, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(size); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadRejectsOversizedFileBeforeNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	path := writeTestFile(t, "big.bin", MaxUploadBytes+1)

	c := NewFileUploadClient("agent-1", srv.URL, zerolog.Nop())
	_, err := c.Upload(context.Background(), path)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("oversized file reached the network: %d requests", hits.Load())
	}
}

func TestUploadSendsMultipartForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if got := r.FormValue("agentId"); got != "agent-1" {
			t.Errorf("unexpected agentId %q", got)
		}
		_, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if hdr.Filename != "photo.png" {
			t.Errorf("unexpected filename %q", hdr.Filename)
		}
		_, _ = w.Write([]byte(`{"fileName":"photo.png","publicUrl":"https://cdn.example/photo.png"}`))
	}))
	defer srv.Close()

	path := writeTestFile(t, "photo.png", 128)

	c := NewFileUploadClient("agent-1", srv.URL, zerolog.Nop())
	res, err := c.Upload(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if res.FileName != "photo.png" || res.PublicURL != "https://cdn.example/photo.png" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestUploadSurfacesServerRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusForbidden)
	}))
	defer srv.Close()

	path := writeTestFile(t, "doc.pdf", 64)

	c := NewFileUploadClient("agent-1", srv.URL, zerolog.Nop())
	if _, err := c.Upload(context.Background(), path); err == nil {
		t.Fatal("expected an error on a rejected upload")
	}
}

func TestUploadMissingFile(t *testing.T) {
	c := NewFileUploadClient("agent-1", "http://unused.invalid", zerolog.Nop())
	if _, err := c.Upload(context.Background(), filepath.Join(t.TempDir(), "gone.txt")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestAttachmentEncoding(t *testing.T) {
	enc := EncodeAttachment("photo.PNG", "https://cdn.example/p")
	body := ParseBody(enc)
	if body.Kind != BodyImage || body.Name != "photo.PNG" || body.URL != "https://cdn.example/p" {
		t.Fatalf("unexpected image body %+v", body)
	}

	enc = EncodeAttachment("report.pdf", "https://cdn.example/r")
	body = ParseBody(enc)
	if body.Kind != BodyFile || body.Name != "report.pdf" {
		t.Fatalf("unexpected file body %+v", body)
	}
}

func TestParseBodyLeavesPlainTextAlone(t *testing.T) {
	cases := []string{
		"hello there",
		"line one\nline two",
		"[Image: photo.png]",
		"[Image: photo.png]\nnot a url at all",
		"[Weird: thing]\nhttps://cdn.example/x",
	}
	for _, text := range cases {
		if got := ParseBody(text); got.Kind != BodyText || got.Text != text {
			t.Fatalf("%q misparsed as %+v", text, got)
		}
	}
}
