package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comigor/convoview/internal/analysis"
	"github.com/comigor/convoview/internal/conversation"
	"github.com/comigor/convoview/internal/diagnostics"
	"github.com/comigor/convoview/internal/view"
)

type fakeService struct {
	list    []conversation.Summary
	details map[string]*conversation.Detail
	listErr error
	deleted []string
	saved   []string
}

func (f *fakeService) List(ctx context.Context) ([]conversation.Summary, error) {
	return f.list, f.listErr
}

func (f *fakeService) Get(ctx context.Context, id string) (*conversation.Detail, error) {
	return f.details[id], nil
}

func (f *fakeService) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeService) Save(ctx context.Context, id, filename string) error {
	f.saved = append(f.saved, filename)
	return nil
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(ctx context.Context, d *conversation.Detail) (*analysis.Profile, error) {
	return &analysis.Profile{UserName: "Rosa", Mood: "calm", Topics: []string{"garden"}}, nil
}

func num(n int64) *int64 { return &n }

func newFake() *fakeService {
	done := "done"
	return &fakeService{
		list: []conversation.Summary{
			{ConversationID: "abc", Status: &done, CallDurationSecs: num(42), StartTimeUnixSecs: num(1700000000)},
		},
		details: map[string]*conversation.Detail{
			"abc": {
				ConversationID: "abc",
				AgentID:        "agent-7",
				Status:         "done",
				Transcript: []conversation.Message{
					{Role: "agent", Message: "Hello!"},
					{Role: "user", Message: "Hi", TimeInCallSecs: num(3)},
				},
			},
		},
	}
}

func run(t *testing.T, app *App, stdin string, args ...string) (string, error) {
	t.Helper()
	if app.Clock.Location == nil {
		app.Clock = view.Clock{Location: time.UTC}
	}
	root := newRootCommand(app, "test")
	var out bytes.Buffer
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestList(t *testing.T) {
	out, err := run(t, &App{Service: newFake()}, "", "list")
	require.NoError(t, err)
	require.Contains(t, out, "ID")
	require.Contains(t, out, "abc")
	require.Contains(t, out, "Conversation with AI")
	require.Contains(t, out, "11/14/2023, 10:13:20 PM")
	require.Contains(t, out, "42 seconds")
}

func TestList_JSONPreservesBackendShape(t *testing.T) {
	out, err := run(t, &App{Service: newFake()}, "", "list", "-o", "json")
	require.NoError(t, err)
	require.Contains(t, out, `"conversation_id": "abc"`)
	require.Contains(t, out, `"start_time_unix_secs": 1700000000`)
}

func TestList_BadFormat(t *testing.T) {
	_, err := run(t, &App{Service: newFake()}, "", "list", "-o", "xml")
	require.ErrorContains(t, err, "unknown output format")
}

func TestList_Failure(t *testing.T) {
	_, err := run(t, &App{Service: &fakeService{listErr: errors.New("dial tcp")}}, "", "list")
	require.EqualError(t, err, view.ListFetchFailed)
}

func TestShow(t *testing.T) {
	out, err := run(t, &App{Service: newFake()}, "", "show", "abc")
	require.NoError(t, err)
	require.Contains(t, out, "Agent ID: agent-7")
	require.Contains(t, out, "Agent: Hello!")
	require.Contains(t, out, "You (3s): Hi")
	require.Contains(t, out, "Duration: 0 seconds")
}

func TestShow_YAML(t *testing.T) {
	out, err := run(t, &App{Service: newFake()}, "", "show", "abc", "-o", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "conversation_id: abc")
	require.Contains(t, out, "time_in_call_secs: 3")
}

func TestShow_NotFound(t *testing.T) {
	_, err := run(t, &App{Service: newFake()}, "", "show", "missing")
	require.EqualError(t, err, view.NotFoundMessage)
}

func TestDelete_Prompt(t *testing.T) {
	svc := newFake()
	out, err := run(t, &App{Service: svc}, "n\n", "delete", "abc")
	require.NoError(t, err)
	require.Contains(t, out, view.DeletePrompt)
	require.Contains(t, out, "Cancelled.")
	require.Empty(t, svc.deleted)

	out, err = run(t, &App{Service: svc}, "y\n", "delete", "abc")
	require.NoError(t, err)
	require.Contains(t, out, "Deleted conversation abc.")
	require.Equal(t, []string{"abc"}, svc.deleted)
}

func TestDelete_Yes(t *testing.T) {
	svc := newFake()
	out, err := run(t, &App{Service: svc}, "", "delete", "abc", "--yes")
	require.NoError(t, err)
	require.NotContains(t, out, view.DeletePrompt)
	require.Equal(t, []string{"abc"}, svc.deleted)
}

func TestSave(t *testing.T) {
	svc := newFake()
	out, err := run(t, &App{Service: svc}, "", "save", "abc")
	require.NoError(t, err)
	require.Contains(t, out, view.SaveSuccessMessage)
	require.Equal(t, []string{"conversation_abc.txt"}, svc.saved)
}

func TestAnalyze(t *testing.T) {
	_, err := run(t, &App{Service: newFake()}, "", "analyze", "abc")
	require.ErrorContains(t, err, "not configured")

	out, err := run(t, &App{Service: newFake(), Analyzer: fakeAnalyzer{}}, "", "analyze", "abc", "-o", "json")
	require.NoError(t, err)
	require.Contains(t, out, `"user_name": "Rosa"`)
}

func TestDiagnostics(t *testing.T) {
	j := diagnostics.Open("")
	defer j.Close()
	app := &App{Service: &fakeService{listErr: errors.New("connection refused")}, Journal: j}

	_, err := run(t, app, "", "list")
	require.Error(t, err)

	out, err := run(t, app, "", "diagnostics")
	require.NoError(t, err)
	require.Contains(t, out, "list.fetch")
	require.Contains(t, out, "connection refused")
}

func TestAppInit_ConfigSources(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	write := func(name, url string) string {
		path := filepath.Join(dir, name)
		body := "api:\n  base_url: " + url + "\ndiagnostics:\n  db_path: \"\"\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}
	fromEnv := write("env.yaml", "http://from-env:5000")
	fromFlag := write("flag.yaml", "http://from-flag:5000")
	t.Setenv("CONFIG_PATH", fromEnv)

	app := &App{}
	require.NoError(t, app.init(&rootFlags{}))
	require.Equal(t, "http://from-env:5000", app.Config.API.BaseURL)

	app = &App{}
	require.NoError(t, app.init(&rootFlags{configPath: fromFlag, apiURL: "http://override:1"}))
	require.Equal(t, "http://override:1", app.Config.API.BaseURL)
	require.NotNil(t, app.Service)
	require.Nil(t, app.Analyzer)
}
