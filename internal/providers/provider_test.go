package providers

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dshills/codecoach/internal/cache"
)

type schemaProbe struct {
	Title    string   `json:"title"`
	Severity int      `json:"severity"`
	Lines    []string `json:"lines"`
}

func TestNew_Factory(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://localhost:11434")
	for _, name := range []string{"ollama", "lmstudio", "OLLAMA"} {
		c, err := New(name, "llama3")
		if err != nil {
			t.Fatalf("New(%q) error: %v", name, err)
		}
		if c.Name() != "ollama" || c.Model() != "llama3" {
			t.Errorf("New(%q) = %s/%s", name, c.Name(), c.Model())
		}
	}
	if _, err := New("watson", "x"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestParseModelSpec(t *testing.T) {
	p, m, err := ParseModelSpec("anthropic:claude-sonnet-4-5")
	if err != nil || p != "anthropic" || m != "claude-sonnet-4-5" {
		t.Errorf("ParseModelSpec = %q, %q, %v", p, m, err)
	}
	for _, bad := range []string{"", "openai", ":gpt", "openai:"} {
		if _, _, err := ParseModelSpec(bad); err == nil {
			t.Errorf("ParseModelSpec(%q) should fail", bad)
		}
	}
}

func TestSchemaFor_Strict(t *testing.T) {
	s := SchemaFor[schemaProbe]("probe")
	data, err := json.Marshal(s.Definition)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc map[string]any
	json.Unmarshal(data, &doc)
	if doc["additionalProperties"] != false {
		t.Errorf("additionalProperties = %v, want false", doc["additionalProperties"])
	}
	req, _ := doc["required"].([]any)
	if len(req) != 3 {
		t.Errorf("required = %v, want all three fields", req)
	}
	if !strings.Contains(s.Instructions(), `"probe"`) {
		t.Error("instructions should name the schema")
	}
}

func TestCached_SingleTurnHits(t *testing.T) {
	c, err := cache.New(true, t.TempDir(), 3600)
	if err != nil {
		t.Fatal(err)
	}
	inner := &countingClassifier{reply: "ok"}
	cl := NewCached(inner, c, nil)

	req := Request{System: "s", Messages: []Message{UserMessage("code")}}
	for i := 0; i < 3; i++ {
		resp, err := cl.Complete(context.Background(), req)
		if err != nil || resp.Content != "ok" {
			t.Fatalf("Complete = %+v, %v", resp, err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}

	req.System = "other"
	cl.Complete(context.Background(), req)
	if inner.calls != 2 {
		t.Errorf("different system prompt should miss, calls = %d", inner.calls)
	}
}

func TestCached_ConversationBypass(t *testing.T) {
	c, _ := cache.New(true, t.TempDir(), 3600)
	inner := &countingClassifier{reply: "ok"}
	cl := NewCached(inner, c, nil)

	req := Request{Messages: []Message{UserMessage("a"), AssistantMessage("b"), UserMessage("c")}}
	cl.Complete(context.Background(), req)
	cl.Complete(context.Background(), req)
	if inner.calls != 2 {
		t.Errorf("conversation requests must not be cached, calls = %d", inner.calls)
	}
}

func TestNewCached_DisabledReturnsInner(t *testing.T) {
	c, _ := cache.New(false, "", 0)
	inner := &countingClassifier{}
	if got := NewCached(inner, c, nil); got != Classifier(inner) {
		t.Error("disabled cache should return the inner classifier")
	}
}
