package hook

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/signassess/internal/session"
	"github.com/ayusman/signassess/internal/summary"
)

// writeHook creates dir/name with a manifest and a shell script executable.
func writeHook(t *testing.T, dir, name, script string, events ...string) string {
	t.Helper()

	hookDir := filepath.Join(dir, name)
	if err := os.MkdirAll(hookDir, 0755); err != nil {
		t.Fatalf("failed to create hook dir: %v", err)
	}

	manifest, err := json.Marshal(Manifest{
		Name:       name,
		Version:    "1.0.0",
		Executable: "run.sh",
		Events:     events,
		Config:     json.RawMessage(`{"course":"basics"}`),
	})
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(hookDir, ManifestFile), manifest, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(hookDir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return hookDir
}

func skipOnWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
}

func testRecord() *session.Record {
	return &session.Record{
		ID:       "session-1",
		UserID:   "user-1",
		Username: "Asha",
		TopSigns: []summary.SignCount{{Label: "Hello", Count: 2}},
	}
}

const okScript = `#!/bin/sh
cat > /dev/null
echo '{"success":true}'
`

func TestManifest_Handles(t *testing.T) {
	tests := []struct {
		events []string
		want   bool
	}{
		{events: nil, want: true},
		{events: []string{EventSessionFinished}, want: true},
		{events: []string{"quiz.completed"}, want: false},
	}

	for _, tt := range tests {
		m := Manifest{Events: tt.events}
		if got := m.Handles(EventSessionFinished); got != tt.want {
			t.Errorf("Handles() with events %v = %v, want %v", tt.events, got, tt.want)
		}
	}
}

func TestManager_Discover(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "report", okScript)
	writeHook(t, dir, "archive", okScript)

	// Not hooks
	os.MkdirAll(filepath.Join(dir, "empty"), 0755)
	os.MkdirAll(filepath.Join(dir, "broken"), 0755)
	os.WriteFile(filepath.Join(dir, "broken", ManifestFile), []byte(`{invalid`), 0644)
	os.WriteFile(filepath.Join(dir, "stray.json"), []byte(`{}`), 0644)

	m := NewManager(dir)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	hooks := m.List()
	if len(hooks) != 2 {
		t.Fatalf("List() = %d hooks, want 2", len(hooks))
	}
	if hooks[0].Manifest.Name != "archive" || hooks[1].Manifest.Name != "report" {
		t.Errorf("List() order = %s, %s; want archive, report", hooks[0].Manifest.Name, hooks[1].Manifest.Name)
	}

	h, err := m.Get("report")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if h.Executable != filepath.Join(dir, "report", "run.sh") {
		t.Errorf("Executable = %q", h.Executable)
	}

	if _, err := m.Get("missing"); err != ErrHookNotFound {
		t.Errorf("Get(missing) error = %v, want ErrHookNotFound", err)
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope"))
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(m.List()) != 0 {
		t.Error("expected no hooks")
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	writeHook(t, dir, "echo", `#!/bin/sh
INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`)

	m := NewManager(dir)
	m.Discover()
	h, err := m.Get("echo")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, &Request{
		Event:   EventSessionFinished,
		Session: testRecord(),
		Config:  h.Manifest.Config,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}

	var data struct {
		Received Request `json:"received"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data.Received.Event != EventSessionFinished {
		t.Errorf("event = %q", data.Received.Event)
	}
	if data.Received.Session == nil || data.Received.Session.ID != "session-1" {
		t.Errorf("session = %+v", data.Received.Session)
	}
	if string(data.Received.Config) != `{"course":"basics"}` {
		t.Errorf("config = %s", data.Received.Config)
	}
}

func TestExecutor_Errors(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name    string
		script  string
		timeout time.Duration
		wantErr string
	}{
		{
			name:    "timeout",
			script:  "#!/bin/sh\nsleep 10\necho '{\"success\":true}'\n",
			timeout: 100 * time.Millisecond,
			wantErr: "timed out",
		},
		{
			name:    "exit status",
			script:  "#!/bin/sh\necho 'boom' >&2\nexit 1\n",
			timeout: 5 * time.Second,
			wantErr: "boom",
		},
		{
			name:    "invalid response",
			script:  "#!/bin/sh\necho 'not json'\n",
			timeout: 5 * time.Second,
			wantErr: "failed to parse hook response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeHook(t, dir, "h", tt.script)
			m := NewManager(dir)
			m.Discover()
			h, _ := m.Get("h")

			_, err := NewExecutor(tt.timeout).Execute(context.Background(), h, &Request{Event: EventSessionFinished})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Execute() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSink_Save(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "seen")
	writeHook(t, dir, "record", "#!/bin/sh\ncat > "+out+"\necho '{\"success\":true}'\n", EventSessionFinished)
	writeHook(t, dir, "quiz-only", "#!/bin/sh\necho '{\"success\":false,\"error\":\"should not run\"}'\n", "quiz.completed")

	m := NewManager(dir)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	s := NewSink(m, NewExecutor(0), nil)
	if err := s.Save(context.Background(), testRecord()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("hook did not run: %v", err)
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("hook input is not JSON: %v", err)
	}
	if req.Session == nil || req.Session.Username != "Asha" {
		t.Errorf("hook input session = %+v", req.Session)
	}
}

func TestSink_Save_Failure(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	writeHook(t, dir, "ok", okScript)
	writeHook(t, dir, "refuse", "#!/bin/sh\ncat > /dev/null\necho '{\"success\":false,\"error\":\"LMS offline\"}'\n")

	m := NewManager(dir)
	m.Discover()

	err := NewSink(m, NewExecutor(0), nil).Save(context.Background(), testRecord())
	if err == nil || !strings.Contains(err.Error(), "LMS offline") {
		t.Errorf("Save() error = %v, want hook failure", err)
	}
}
