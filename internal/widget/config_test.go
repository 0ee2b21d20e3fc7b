package widget

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchConfigAppliesDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("agentId"); got != "agent-1" {
			t.Errorf("unexpected agentId query %q", got)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg, err := FetchConfig(context.Background(), srv.Client(), srv.URL, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AgentID != "agent-1" {
		t.Fatalf("agent id not backfilled, got %q", cfg.AgentID)
	}
	if cfg.Title != "Chat with us" {
		t.Fatalf("default title missing, got %q", cfg.Title)
	}
	if cfg.Welcome.DelayMs != 3000 || cfg.TypingDelayMs != 800 {
		t.Fatalf("timing defaults missing: %+v", cfg)
	}
	if cfg.Appearance.PrimaryColor == "" || cfg.Appearance.BubbleShape != "rounded" {
		t.Fatalf("appearance defaults missing: %+v", cfg.Appearance)
	}
}

func TestFetchConfigKeepsProvidedValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"agentId":"remote-agent","title":"Acme Support","typingDelayMs":250}`))
	}))
	defer srv.Close()

	cfg, err := FetchConfig(context.Background(), srv.Client(), srv.URL, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AgentID != "remote-agent" || cfg.Title != "Acme Support" || cfg.TypingDelayMs != 250 {
		t.Fatalf("remote values overwritten: %+v", cfg)
	}
}

func TestFetchConfigFailuresAreFatal(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown agent", http.StatusNotFound)
	}))
	defer notFound.Close()
	if _, err := FetchConfig(context.Background(), notFound.Client(), notFound.URL, "agent-1"); err == nil {
		t.Fatal("expected an error for a 404 bundle")
	}

	garbled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer garbled.Close()
	if _, err := FetchConfig(context.Background(), garbled.Client(), garbled.URL, "agent-1"); err == nil {
		t.Fatal("expected an error for a malformed bundle")
	}

	if _, err := FetchConfig(context.Background(), nil, "http://unused.invalid", ""); err == nil {
		t.Fatal("expected an error for a missing agent id")
	}
}

func TestTabVisibility(t *testing.T) {
	off := false
	cfg := DefaultConfig("agent-1")

	if !cfg.HomeEnabled() || !cfg.ChatsEnabled() {
		t.Fatal("home and chats should default to enabled")
	}
	if cfg.FAQEnabled() {
		t.Fatal("faq with no items should be hidden")
	}

	cfg.FAQ.Items = []FAQItem{{Question: "Q", Answer: "A"}}
	if !cfg.FAQEnabled() {
		t.Fatal("faq with items should be visible")
	}

	cfg.FAQ.Enabled = &off
	if cfg.FAQEnabled() {
		t.Fatal("explicitly disabled faq should be hidden")
	}
	cfg.Home.Enabled = &off
	if cfg.HomeEnabled() {
		t.Fatal("explicitly disabled home should be hidden")
	}
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := "agent_id: yaml-agent\napi_url: https://engine.example/interact\ntest_mode: true\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.AgentID != "yaml-agent" || s.APIURL != "https://engine.example/interact" || !s.TestMode {
		t.Fatalf("unexpected settings %+v", s)
	}
}

func TestLoadSettingsMissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("CHATWIDGET_AGENT_ID", "env-agent")

	s, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if s.AgentID != "env-agent" {
		t.Fatalf("env fallback missing, got %q", s.AgentID)
	}
}
