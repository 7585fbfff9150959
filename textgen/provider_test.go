package textgen

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spooktrunt/vision"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"google.golang.org/genai"
)

func TestGenerationSchema(t *testing.T) {
	def := GenerationSchema().Definition
	if def.Type != jsonschema.Object {
		t.Fatalf("type = %q", def.Type)
	}
	structDef, ok := def.Properties["structure"]
	if !ok {
		t.Fatal("schema missing structure property")
	}
	impact := structDef.Properties["environmentalImpact"]
	if strings.Join(impact.Enum, ",") != "Low,Moderate,High,Unknown" {
		t.Errorf("impact enum = %v", impact.Enum)
	}
	if structDef.Properties["dimensions"].Properties["floors"].Type != jsonschema.Integer {
		t.Error("floors should be an integer")
	}
	if structDef.Properties["materials"].Items == nil {
		t.Error("materials should declare items")
	}
	if desc := structDef.Properties["materials"].Description; !strings.Contains(desc, "3-5") {
		t.Errorf("materials description = %q, want it to ask for 3-5 materials", desc)
	}
	if desc := structDef.Properties["style"].Description; !strings.Contains(desc, "Gothic-Futurism") {
		t.Errorf("style description = %q, want style examples", desc)
	}
	if desc := structDef.Properties["structuralIntegrityScore"].Description; !strings.Contains(desc, "structural soundness") {
		t.Errorf("integrity description = %q", desc)
	}
	for _, field := range []string{"structure", "imagePrompt"} {
		if !containsString(def.Required, field) {
			t.Errorf("%s should be required", field)
		}
	}
}

func TestFeasibilitySchema(t *testing.T) {
	def := FeasibilitySchema().Definition
	for _, field := range []string{"stability", "energyEfficiency", "materialSuitability", "costEstimation", "suggestions"} {
		if !containsString(def.Required, field) {
			t.Errorf("%s should be required", field)
		}
	}
	if def.Properties["stability"].Properties["rating"].Type != jsonschema.Number {
		t.Error("rating should be a number")
	}
	if desc := def.Properties["costEstimation"].Description; !strings.Contains(desc, "1=cheap, 10=exorbitant") {
		t.Errorf("costEstimation description = %q, want the cost scale", desc)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestToGenaiSchema(t *testing.T) {
	s := toGenaiSchema(GenerationSchema().Definition)
	if s.Type != genai.TypeObject {
		t.Fatalf("type = %v", s.Type)
	}
	st := s.Properties["structure"]
	if st == nil || st.Type != genai.TypeObject {
		t.Fatalf("structure = %+v", st)
	}
	if st.Properties["materials"].Type != genai.TypeArray || st.Properties["materials"].Items.Type != genai.TypeString {
		t.Error("materials should be an array of strings")
	}
	if st.Properties["structuralIntegrityScore"].Type != genai.TypeNumber {
		t.Error("score should be a number")
	}
	if len(st.PropertyOrdering) == 0 || st.PropertyOrdering[0] != "id" {
		t.Errorf("PropertyOrdering = %v, want id first", st.PropertyOrdering)
	}
	if len(st.Properties["environmentalImpact"].Enum) != 4 {
		t.Error("impact enum lost in conversion")
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Content []struct {
				Type     string `json:"type"`
				Text     string `json:"text"`
				ImageURL *struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"content"`
		} `json:"messages"`
		ResponseFormat *struct {
			Type       string `json:"type"`
			JSONSchema struct {
				Name   string `json:"name"`
				Strict bool   `json:"strict"`
			} `json:"json_schema"`
		} `json:"response_format"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = srv.URL + "/v1"
	p := NewOpenAIProvider(openai.NewClientWithConfig(cfg), "")

	text, err := p.Complete(context.Background(), Request{
		Op:          OpRevive,
		Instruction: "revive this",
		Images:      []vision.Payload{vision.NewPayload([]byte("img"), vision.MIMEPNG)},
		Schema:      GenerationSchema(),
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if text != `{"ok":true}` {
		t.Errorf("text = %q", text)
	}

	if captured.Model != DefaultOpenAIModel {
		t.Errorf("model = %q", captured.Model)
	}
	if len(captured.Messages) != 1 {
		t.Fatalf("messages = %+v", captured.Messages)
	}
	parts := captured.Messages[0].Content
	if len(parts) != 2 || parts[0].Text != "revive this" {
		t.Fatalf("parts = %+v", parts)
	}
	if parts[1].ImageURL == nil || !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
		t.Errorf("image part = %+v", parts[1])
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != string(openai.ChatCompletionResponseFormatTypeJSONSchema) {
		t.Fatalf("response format = %+v", captured.ResponseFormat)
	}
	if captured.ResponseFormat.JSONSchema.Name != "architectural_creation" || !captured.ResponseFormat.JSONSchema.Strict {
		t.Errorf("json schema = %+v", captured.ResponseFormat.JSONSchema)
	}
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[]}`)
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = srv.URL + "/v1"
	p := NewOpenAIProvider(openai.NewClientWithConfig(cfg), "gpt-test")

	if _, err := p.Complete(context.Background(), Request{Op: OpSummon, Instruction: "x"}); err != ErrEmptyResponse {
		t.Errorf("Complete() error = %v, want ErrEmptyResponse", err)
	}
}

func TestGeminiProvider_Complete(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.5-pro:generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"ok\":"},{"text":"true}"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	if err != nil {
		t.Fatalf("genai.NewClient() error: %v", err)
	}
	p := NewGeminiProvider(client, "models/gemini-2.5-pro")
	if p.Model() != "gemini-2.5-pro" {
		t.Errorf("Model() = %q", p.Model())
	}

	text, err := p.Complete(context.Background(), Request{
		Op:          OpAnalyze,
		Instruction: "analyze",
		Images:      []vision.Payload{vision.NewPayload([]byte("jpg"), vision.MIMEJPEG)},
		Schema:      FeasibilitySchema(),
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if text != `{"ok":true}` {
		t.Errorf("text = %q", text)
	}

	contents, _ := captured["contents"].([]any)
	if len(contents) != 1 {
		t.Fatalf("contents = %v", captured["contents"])
	}
	parts, _ := contents[0].(map[string]any)["parts"].([]any)
	if len(parts) != 2 {
		t.Errorf("parts = %v, want text followed by image", parts)
	}
}
