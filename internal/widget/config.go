package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the per-agent configuration bundle. It is resolved once at load
// time and never mutated afterwards; changing anything requires a restart.
type Config struct {
	AgentID     string `json:"agentId"`
	Title       string `json:"title"`
	Description string `json:"description"`

	Welcome    WelcomeConfig `json:"welcome"`
	Appearance Appearance    `json:"appearance"`

	Home  HomeTab  `json:"home"`
	Chats ChatsTab `json:"chats"`
	FAQ   FAQTab   `json:"faq"`

	FileUploadEnabled bool `json:"fileUploadEnabled"`
	TypingDelayMs     int  `json:"typingDelayMs"`
}

// WelcomeConfig drives the proactive engagement bubble shown while the
// widget is still closed.
type WelcomeConfig struct {
	Enabled            bool   `json:"enabled"`
	Text               string `json:"text"`
	DelayMs            int    `json:"delayMs"`
	AutoDismissSeconds int    `json:"autoDismissSeconds"`
}

type Appearance struct {
	PrimaryColor string `json:"primaryColor"`
	AccentColor  string `json:"accentColor"`
	FontFamily   string `json:"fontFamily"`
	BubbleShape  string `json:"bubbleShape"` // rounded|square
	ButtonShape  string `json:"buttonShape"` // rounded|square
}

type HomeTab struct {
	Enabled *bool        `json:"enabled"`
	Buttons []HomeButton `json:"buttons"`
}

// HomeButton is a configured quick action: selecting it starts a fresh
// conversation seeded with Message.
type HomeButton struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

type ChatsTab struct {
	Enabled *bool `json:"enabled"`
}

type FAQTab struct {
	Enabled *bool     `json:"enabled"`
	Items   []FAQItem `json:"items"`
}

type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (c Config) HomeEnabled() bool  { return c.Home.Enabled == nil || *c.Home.Enabled }
func (c Config) ChatsEnabled() bool { return c.Chats.Enabled == nil || *c.Chats.Enabled }

// FAQEnabled defaults to true but an FAQ tab with no items renders nothing
// useful, so it is only shown when items exist.
func (c Config) FAQEnabled() bool {
	return (c.FAQ.Enabled == nil || *c.FAQ.Enabled) && len(c.FAQ.Items) > 0
}

func (c Config) TypingDelay() time.Duration {
	return time.Duration(c.TypingDelayMs) * time.Millisecond
}

func DefaultConfig(agentID string) Config {
	cfg := Config{AgentID: agentID}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Title) == "" {
		c.Title = "Chat with us"
	}
	if strings.TrimSpace(c.Description) == "" {
		c.Description = "We usually reply in a few minutes."
	}
	if c.Welcome.Text == "" {
		c.Welcome.Text = "Hi there! Need a hand?"
	}
	if c.Welcome.DelayMs <= 0 {
		c.Welcome.DelayMs = 3000
	}
	if c.Welcome.AutoDismissSeconds < 0 {
		c.Welcome.AutoDismissSeconds = 0
	}
	if c.TypingDelayMs <= 0 {
		c.TypingDelayMs = 800
	}
	if c.Appearance.PrimaryColor == "" {
		c.Appearance.PrimaryColor = "#1f6feb"
	}
	if c.Appearance.AccentColor == "" {
		c.Appearance.AccentColor = "#b45309"
	}
	if c.Appearance.BubbleShape == "" {
		c.Appearance.BubbleShape = "rounded"
	}
	if c.Appearance.ButtonShape == "" {
		c.Appearance.ButtonShape = "rounded"
	}
}

// FetchConfig retrieves the configuration bundle for agentID. A failure here
// is fatal to widget construction: nothing renders without a config.
func FetchConfig(ctx context.Context, client *http.Client, bundleURL, agentID string) (Config, error) {
	if strings.TrimSpace(agentID) == "" {
		return Config{}, errors.New("missing agent id")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	u, err := url.Parse(bundleURL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid config url: %w", err)
	}
	q := u.Query()
	q.Set("agentId", agentID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Config{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Config{}, fmt.Errorf("config bundle request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Config{}, err
	}
	if resp.StatusCode >= 300 {
		return Config{}, fmt.Errorf("config bundle error: status %d", resp.StatusCode)
	}

	cfg := Config{}
	if err := json.Unmarshal(body, &cfg); err != nil {
		return Config{}, fmt.Errorf("malformed config bundle: %w", err)
	}
	if cfg.AgentID == "" {
		cfg.AgentID = agentID
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Settings are local runtime overrides: which agent to load and which
// endpoints to talk to. They never affect the agent's appearance or
// behavior, which come from the remote bundle.
type Settings struct {
	AgentID    string `yaml:"agent_id"`
	ConfigURL  string `yaml:"config_url"`
	APIURL     string `yaml:"api_url"`
	UploadURL  string `yaml:"upload_url"`
	StorageDir string `yaml:"storage_dir"`
	TestMode   bool   `yaml:"test_mode"`
}

func DefaultSettings() Settings {
	return Settings{}
}

func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		s.applyEnv()
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.applyEnv()
			return s, nil
		}
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, err
	}
	s.applyEnv()
	return s, nil
}

func (s *Settings) applyEnv() {
	if s.AgentID == "" {
		s.AgentID = os.Getenv("CHATWIDGET_AGENT_ID")
	}
	if s.ConfigURL == "" {
		s.ConfigURL = os.Getenv("CHATWIDGET_CONFIG_URL")
	}
	if s.APIURL == "" {
		s.APIURL = os.Getenv("CHATWIDGET_API_URL")
	}
	if s.UploadURL == "" {
		s.UploadURL = os.Getenv("CHATWIDGET_UPLOAD_URL")
	}
}

func DefaultSettingsPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "chatwidget", "config.yml")
}
