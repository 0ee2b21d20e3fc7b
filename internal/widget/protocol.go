package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Action is one of the four logical operations the dialogue engine accepts.
type Action string

const (
	ActionLaunch Action = "launch"
	ActionText   Action = "text"
	ActionButton Action = "button"
	ActionReset  Action = "reset"
)

// MockBaseURL switches the client to canned responses, for offline demos and
// tests.
const MockBaseURL = "mock://"

const defaultInteractTimeout = 30 * time.Second

type interactRequest struct {
	AgentID        string `json:"agentId"`
	UserID         string `json:"userId"`
	Action         Action `json:"action"`
	Message        string `json:"message,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	IsTestMode     bool   `json:"isTestMode"`
}

type BotResponse struct {
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
}

type InteractResponse struct {
	ConversationID string        `json:"conversationId"`
	BotResponses   []BotResponse `json:"botResponses"`
}

// ProtocolError is a failed exchange with the dialogue engine. Status is 0
// for transport-level failures.
type ProtocolError struct {
	Status  int
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("interact failed: %s", e.Message)
	}
	return fmt.Sprintf("interact failed: status %d: %s", e.Status, e.Message)
}

// ProtocolClient is the only component that talks to the dialogue engine.
// The endpoint is authoritative for conversation identity: launch and lazy
// text sends both come back with the assigned conversation id.
type ProtocolClient struct {
	AgentID  string
	BaseURL  string
	UserID   string
	TestMode bool
	HTTP     *http.Client

	log zerolog.Logger
}

func NewProtocolClient(agentID, baseURL, userID string, testMode bool, timeout time.Duration, log zerolog.Logger) *ProtocolClient {
	if timeout <= 0 {
		timeout = defaultInteractTimeout
	}
	return &ProtocolClient{
		AgentID:  agentID,
		BaseURL:  baseURL,
		UserID:   userID,
		TestMode: testMode,
		HTTP:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

// Interact performs one exchange. The user identity sent is the session id,
// qualified by the remote session id when one exists so the backend can tell
// apart conversations started from the same client.
//
// launch must be called with an empty conversationID; text and button accept
// an empty one too, in which case the response carries the newly assigned id.
func (c *ProtocolClient) Interact(ctx context.Context, action Action, message, conversationID, remoteSessionID string) (*InteractResponse, error) {
	if c.BaseURL == MockBaseURL {
		return c.mockInteract(action, message, conversationID)
	}

	uid := c.UserID
	if remoteSessionID != "" {
		uid = c.UserID + "_" + remoteSessionID
	}
	payload, err := json.Marshal(interactRequest{
		AgentID:        c.AgentID,
		UserID:         uid,
		Action:         action,
		Message:        message,
		ConversationID: conversationID,
		IsTestMode:     c.TestMode,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("action", string(action)).Msg("interact transport failure")
		return nil, &ProtocolError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProtocolError{Message: err.Error()}
	}
	if resp.StatusCode >= 300 {
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &errResp)
		msg := errResp.Message
		if msg == "" {
			msg = errResp.Error
		}
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		c.log.Error().Int("status", resp.StatusCode).Str("action", string(action)).Msg("interact rejected")
		return nil, &ProtocolError{Status: resp.StatusCode, Message: msg}
	}

	var out InteractResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ProtocolError{Message: "malformed response: " + err.Error()}
	}
	c.log.Info().
		Str("action", string(action)).
		Str("conversationId", out.ConversationID).
		Int("botResponses", len(out.BotResponses)).
		Dur("took", time.Since(started)).
		Msg("interact")
	return &out, nil
}

// Reset clears remote-side state for the current user identity. It is a
// best-effort cleanup before a fresh launch, never a precondition: failures
// are logged and ignored by callers.
func (c *ProtocolClient) Reset(ctx context.Context, remoteSessionID string) error {
	_, err := c.Interact(ctx, ActionReset, "", "", remoteSessionID)
	return err
}

// NewRemoteSessionID mints the per-launch qualifier appended to the user id.
func NewRemoteSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (c *ProtocolClient) mockInteract(action Action, message, conversationID string) (*InteractResponse, error) {
	switch action {
	case ActionReset:
		return &InteractResponse{}, nil
	case ActionLaunch:
		return &InteractResponse{
			ConversationID: "mock-" + uuid.NewString(),
			BotResponses: []BotResponse{
				{Text: "Hello! I'm the demo assistant."},
				{Text: "What can I help you with?", Buttons: []Button{
					{Label: "Pricing", Value: "pricing"},
					{Label: "Support", Value: "support"},
				}},
			},
		}, nil
	case ActionButton:
		return &InteractResponse{
			ConversationID: orMockID(conversationID),
			BotResponses:   []BotResponse{{Text: "Got it: " + message + ". Anything else?"}},
		}, nil
	default:
		return &InteractResponse{
			ConversationID: orMockID(conversationID),
			BotResponses:   []BotResponse{{Text: "You said: " + message}},
		}, nil
	}
}

func orMockID(conversationID string) string {
	if conversationID != "" {
		return conversationID
	}
	return "mock-" + uuid.NewString()
}
