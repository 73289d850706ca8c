package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dshills/codecoach/internal/providers"
)

const coachReply = `{"language":"go","feedback_points":[{"title":"Loop bound","description":"Off by one.","questions":"What is the last index?","line_numbers":"2-3","code_example":"","summary":"edge","type":"Bug","severity":4}]}`

// fakeCoach answers every coach with coachReply, grouping with
// groupReply, and chat by echoing the last message.
type fakeCoach struct {
	mu         sync.Mutex
	provider   string
	groupReply string
	err        error
	calls      int
}

func (f *fakeCoach) Name() string  { return "fake" }
func (f *fakeCoach) Model() string { return "fake-1" }

func (f *fakeCoach) Complete(_ context.Context, req providers.Request) (providers.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return providers.Response{}, f.err
	}
	switch {
	case req.Schema == nil:
		return providers.Response{Content: "coach: " + req.Messages[len(req.Messages)-1].Content}, nil
	case req.Schema.Name == "merge_decisions":
		if f.groupReply != "" {
			return providers.Response{Content: f.groupReply}, nil
		}
		return providers.Response{Content: `{"merge_groups":[]}`}, nil
	default:
		return providers.Response{Content: coachReply}, nil
	}
}

// resetFlags resets all package-level flag variables to their defaults.
func resetFlags() {
	flagConfigFile = ""
	flagLogLevel = ""
	flagProvider = ""
	flagModel = ""
	flagFormat = ""
	flagOut = ""
	flagFailOn = ""
	flagCategories = ""
	flagProfiles = ""
	flagRev = ""
	flagConcurrency = 0
	flagNoRedact = false
	flagNoCache = false
	flagChatFile = ""
	flagChatItem = 1
	flagChatThread = ""
	flagAddr = ""
	flagOrigins = ""
	flagLinesJSON = false
}

// setup isolates config, cache and env, and installs a fake classifier.
func setup(t *testing.T) (*fakeCoach, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for _, kv := range os.Environ() {
		if k, _, _ := strings.Cut(kv, "="); strings.HasPrefix(k, "CODECOACH_") {
			t.Setenv(k, "")
			os.Unsetenv(k)
		}
	}
	t.Setenv("CODECOACH_LOG_LEVEL", "error")

	fake := &fakeCoach{}
	orig := newClassifier
	newClassifier = func(provider, _ string) (providers.Classifier, error) {
		fake.provider = provider
		return fake, nil
	}
	resetFlags()
	t.Cleanup(func() {
		newClassifier = orig
		resetFlags()
	})
	return fake, dir
}

func run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	resetFlags()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
