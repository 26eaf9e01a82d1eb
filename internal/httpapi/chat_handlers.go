package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/eaglechat/gateway/internal/apperr"
	"github.com/eaglechat/gateway/internal/conversation"
	"github.com/eaglechat/gateway/internal/providerkey"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Provider  string `json:"provider"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// anthropicChatBody and openAIChatBody are the minimal request bodies
// this gateway sends upstream; the response is trimmed to the single field
// the caller needs. Full provider fidelity (streaming, tool use, multi-turn
// context windows) is explicitly out of scope of this boundary.
type anthropicChatBody struct {
	Model     string              `json:"model"`
	MaxTokens int                 `json:"max_tokens"`
	Messages  []anthropicTurn     `json:"messages"`
}

type anthropicTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicChatReply struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

type openAIChatBody struct {
	Model    string         `json:"model"`
	Messages []anthropicTurn `json:"messages"`
}

type openAIChatReply struct {
	Choices []struct {
		Message anthropicTurn `json:"message"`
	} `json:"choices"`
}

// Chat handles POST /api/v1/chat. The caller's tenant must have a provider
// key configured for the requested provider; the plaintext key is held only
// for the duration of this one outbound call.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := GetTenantID(r.Context())
	if !ok {
		handleError(w, r, apperr.HmacNotConfigured())
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, apperr.Validation("malformed request body"))
		return
	}
	if req.SessionID == "" || req.Message == "" {
		handleError(w, r, apperr.Validation("session_id and message are required"))
		return
	}

	plaintextKey, err := s.Broker.Use(r.Context(), tenantID, req.Provider)
	if err != nil {
		handleError(w, r, err)
		return
	}

	reply, err := s.dispatchProviderChat(r, req.Provider, plaintextKey, req.Message)
	// plaintextKey is a local copy on the stack; it goes out of scope here
	// and is never logged, cached, or persisted.
	if err != nil {
		handleError(w, r, err)
		return
	}

	if _, err := s.Conversation.Append(r.Context(), tenantID, req.SessionID, r.RemoteAddr, r.UserAgent(), conversation.RoleUser, req.Message); err != nil {
		handleError(w, r, err)
		return
	}
	if _, err := s.Conversation.Append(r.Context(), tenantID, req.SessionID, r.RemoteAddr, r.UserAgent(), conversation.RoleAssistant, reply); err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) dispatchProviderChat(r *http.Request, provider, apiKey, message string) (string, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	switch provider {
	case providerkey.ProviderAnthropic:
		body, _ := json.Marshal(anthropicChatBody{
			Model:     "claude-3-haiku-20240307",
			MaxTokens: 1024,
			Messages:  []anthropicTurn{{Role: "user", Content: message}},
		})
		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, "https://api.anthropic.com/v1/messages", bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("x-api-key", apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return "", apperr.ProbeUnavailable(provider, err)
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if resp.StatusCode != http.StatusOK {
			return "", apperr.ProbeUnavailable(provider, nil)
		}
		var parsed anthropicChatReply
		if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Content) == 0 {
			return "", apperr.ProbeUnavailable(provider, err)
		}
		return parsed.Content[0].Text, nil

	case providerkey.ProviderOpenAI:
		body, _ := json.Marshal(openAIChatBody{
			Model:    "gpt-4o-mini",
			Messages: []anthropicTurn{{Role: "user", Content: message}},
		})
		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return "", apperr.ProbeUnavailable(provider, err)
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if resp.StatusCode != http.StatusOK {
			return "", apperr.ProbeUnavailable(provider, nil)
		}
		var parsed openAIChatReply
		if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
			return "", apperr.ProbeUnavailable(provider, err)
		}
		return parsed.Choices[0].Message.Content, nil

	default:
		return "", apperr.Validation("unknown provider: " + provider)
	}
}

type conversationHistoryRequest struct {
	SessionID string `json:"session_id"`
}

type conversationHistoryResponse struct {
	Messages []historyMessage `json:"messages"`
}

type historyMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"ts"`
}

// ConversationHistory handles POST /api/v1/conversation-history.
func (s *Server) ConversationHistory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := GetTenantID(r.Context())
	if !ok {
		handleError(w, r, apperr.HmacNotConfigured())
		return
	}

	var req conversationHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, apperr.Validation("malformed request body"))
		return
	}
	if req.SessionID == "" {
		handleError(w, r, apperr.Validation("session_id is required"))
		return
	}

	msgs, err := s.Conversation.History(r.Context(), tenantID, req.SessionID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	out := make([]historyMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, historyMessage{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano)})
	}
	writeJSON(w, http.StatusOK, conversationHistoryResponse{Messages: out})
}
