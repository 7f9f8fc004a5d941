package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/doodlebook/internal/story"
)

const validAnalysisJSON = `{"subject":"a purple dragon","character_appearance":"round and purple","environment":"candy forest","suggested_action":"dancing","story_title":"Dragon Day","pages":[{"text":"Once upon a time.","image_prompt":"dragon wakes"},{"text":"The end.","image_prompt":"dragon sleeps"}],"artist_name":"Maya","year":"2024","grade":"","age":"6"}`

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4.1",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenAIClient(OpenAIConfig{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		RateLimit:    100,
		PollInterval: time.Millisecond,
		MaxPolls:     5,
	})
}

func TestOpenAIAnalyzeSuccess(t *testing.T) {
	var payload map[string]any

	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatResponse(validAnalysisJSON)))
	})

	a, err := client.Analyze(context.Background(), MockPNG())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if a.StoryTitle != "Dragon Day" || len(a.Pages) != 2 || a.ArtistName != "Maya" {
		t.Fatalf("unexpected analysis: %+v", a)
	}
	if got, _ := payload["model"].(string); got != openAIDefaultChatModel {
		t.Fatalf("expected default model, got %q", got)
	}
	rf, _ := payload["response_format"].(map[string]any)
	if got, _ := rf["type"].(string); got != "json_schema" {
		t.Fatalf("expected json_schema response format, got %v", payload["response_format"])
	}
	if !strings.Contains(string(mustJSON(payload["messages"])), "data:image/png;base64,") {
		t.Fatal("expected drawing to be sent as a data URL")
	}
}

func TestOpenAIAnalyzeRepairsInvalidOutput(t *testing.T) {
	var calls atomic.Int32

	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(chatResponse(`{"story_title":"incomplete"}`)))
			return
		}
		_, _ = w.Write([]byte(chatResponse("```json\n" + validAnalysisJSON + "\n```")))
	})

	a, err := client.Analyze(context.Background(), MockPNG())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if a.StoryTitle != "Dragon Day" {
		t.Fatalf("unexpected title %q", a.StoryTitle)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestOpenAIUnauthorizedIsAPIKeyError(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","param":"","code":"invalid_api_key"}}`))
	})

	_, err := client.Analyze(context.Background(), MockPNG())
	if !IsAPIKeyError(err) {
		t.Fatalf("expected ErrAPIKey, got %v", err)
	}
}

func TestOpenAIMissingKey(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{})
	if _, err := client.Illustrate(context.Background(), MockPNG(), "dragon", "flying"); !errors.Is(err, ErrAPIKey) {
		t.Fatalf("expected ErrAPIKey, got %v", err)
	}
}

func TestOpenAIIllustrate(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/edits" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if !strings.Contains(r.FormValue("prompt"), "flying over the sea") {
			t.Fatalf("prompt missing scene: %q", r.FormValue("prompt"))
		}
		if r.FormValue("size") != openAIImageSize {
			t.Fatalf("unexpected size %q", r.FormValue("size"))
		}
		w.Header().Set("Content-Type", "application/json")
		resp, _ := json.Marshal(map[string]any{
			"created": 1,
			"data":    []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString([]byte("png-bytes"))}},
		})
		_, _ = w.Write(resp)
	})

	img, err := client.Illustrate(context.Background(), MockPNG(), "purple dragon", "flying over the sea")
	if err != nil {
		t.Fatalf("Illustrate() error = %v", err)
	}
	if string(img) != "png-bytes" {
		t.Fatalf("unexpected image %q", img)
	}
}

func TestOpenAIAnimate(t *testing.T) {
	var polls atomic.Int32

	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/videos":
			var req videoRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if !strings.Contains(req.Prompt, "a purple dragon") {
				t.Errorf("prompt missing subject: %q", req.Prompt)
			}
			_, _ = w.Write([]byte(`{"id":"vid_1","status":"queued","progress":0}`))
		case r.URL.Path == "/videos/vid_1":
			if polls.Add(1) < 3 {
				_, _ = w.Write([]byte(`{"id":"vid_1","status":"in_progress","progress":50}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"vid_1","status":"completed","progress":100}`))
		case r.URL.Path == "/videos/vid_1/content":
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = w.Write([]byte("mp4-bytes"))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	var statuses []string
	a := &story.Analysis{Subject: "a purple dragon", SuggestedAction: "dancing", Environment: "forest"}
	video, err := client.Animate(context.Background(), MockPNG(), a, func(s string) {
		statuses = append(statuses, s)
	})
	if err != nil {
		t.Fatalf("Animate() error = %v", err)
	}
	if string(video) != "mp4-bytes" {
		t.Fatalf("unexpected video %q", video)
	}
	if len(statuses) != 2 || statuses[0] != StatusWaking || statuses[1] != StatusPainting {
		t.Fatalf("unexpected statuses %v", statuses)
	}
}

func TestOpenAIAnimateFailedJob(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"id":"vid_2","status":"queued"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"vid_2","status":"failed","error":{"message":"moderation blocked"}}`))
	})

	_, err := client.Animate(context.Background(), MockPNG(), &story.Analysis{Subject: "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "moderation blocked") {
		t.Fatalf("expected job failure, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("3"); got != 3*time.Second {
		t.Errorf("parseRetryAfter(3) = %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("parseRetryAfter(\"\") = %v", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Errorf("parseRetryAfter(soon) = %v", got)
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
