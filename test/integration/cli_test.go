package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

// silencioBin is the path to the compiled binary, set by TestMain.
var silencioBin string

func TestMain(m *testing.M) {
	// Build binary once for all tests.
	tmp, err := os.MkdirTemp("", "silencio-integration-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmp)

	silencioBin = filepath.Join(tmp, "silencio")
	cmd := exec.Command("go", "build", "-o", silencioBin, "./cmd/silencio/")
	cmd.Dir = findModuleRoot()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// =============================================================================
// Helpers
// =============================================================================

// findModuleRoot walks up from cwd to find go.mod.
func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("go.mod not found")
		}
		dir = parent
	}
}

const memo = "Bob Smith asked Bob to rotate AKIA-TEST-KEY on ACME's build host.\n"

// setupProject creates a temp dir with a document and matching row/inventory files.
func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "memo.txt"), memo)
	writeFile(t, filepath.Join(dir, "rows.json"), `[
  {"number": 1, "item": "Bob Smith", "aliases": ["Bob"], "code": "(1)(A)(a)", "desc": "Real names"},
  {"number": 2, "item": "AKIA-TEST-KEY", "code": "(3)(A)(b)", "desc": "API keys"}
]`)
	writeFile(t, filepath.Join(dir, "inventory.yaml"), `items:
  - item: ACME
    code: (2)(A)
    desc: Corporate identities
  - item: Bob Smith
    code: (1)(A)(a)
    desc: Real names
    aliases: [Bob]
`)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// baseEnv strips classifier settings inherited from the host.
func baseEnv(extra ...string) []string {
	env := []string{"NO_COLOR=1", "OPENAI_API_KEY=", "OPENAI_BASE_URL=", "MODEL_NAME=", "LOG_LEVEL="}
	return append(append(os.Environ(), env...), extra...)
}

// runSilencio executes the binary in dir with args, returns stdout, stderr, exit code.
func runSilencio(t *testing.T, dir string, env []string, stdin string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	cmd := exec.Command(silencioBin, args...)
	cmd.Dir = dir
	cmd.Env = env
	if env == nil {
		cmd.Env = baseEnv()
	}
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("exec error (not ExitError): %v", err)
		}
	}
	return
}

// fakeModel serves /v1/chat/completions with a fixed inventory and counts calls.
func fakeModel(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	content := `{"items":[` +
		`{"item":"Bob Smith","code":"(1)(A)(a)","desc":"Real names","aliases":["Bob"],"notes":""},` +
		`{"item":"AKIA-TEST-KEY","code":"(3)(A)(b)","desc":"API keys","aliases":[],"notes":""}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/chat/completions" || r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// holdDBLock uses flock(1) to hold an exclusive lock on the bbolt file,
// simulating another process. Returns cleanup func.
func holdDBLock(t *testing.T, dbPath string) func() {
	t.Helper()
	cmd := exec.Command("flock", "-x", dbPath, "-c", "sleep 60")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		t.Skipf("flock: %v", err)
	}
	// Give flock time to acquire the lock.
	time.Sleep(200 * time.Millisecond)
	return func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
			cmd.Wait()
		}
	}
}

// =============================================================================
// Offline redaction: explicit rows and inventory files
// =============================================================================

func TestRedact_Rows(t *testing.T) {
	dir := setupProject(t)
	stdout, stderr, exit := runSilencio(t, dir, nil, "", "redact", "--rows", "rows.json", "memo.txt")
	if exit != 0 {
		t.Fatalf("exit %d: %s", exit, stderr)
	}
	want := "[REDACTED(#1): (1)(A)(a), Real names] asked [REDACTED(#1): (1)(A)(a), Real names] " +
		"to rotate [REDACTED(#2): (3)(A)(b), API keys] on ACME's build host.\n"
	if stdout != want {
		t.Errorf("redacted output:\n got %q\nwant %q", stdout, want)
	}
}

func TestRedact_InventoryFromStdin(t *testing.T) {
	dir := setupProject(t)
	stdout, stderr, exit := runSilencio(t, dir, nil, memo, "redact", "--inventory", "inventory.yaml")
	if exit != 0 {
		t.Fatalf("exit %d: %s", exit, stderr)
	}
	// Rows are numbered by code then item: (1)(A)(a) Bob Smith = #1, (2)(A) ACME = #2.
	if !strings.Contains(stdout, "[REDACTED(#2): (2)(A), Corporate identities]'s build host") {
		t.Errorf("ACME not redacted as #2:\n%s", stdout)
	}
	if strings.Contains(stdout, "Bob") {
		t.Errorf("Bob should be redacted:\n%s", stdout)
	}
}

func TestRedact_JSONReport(t *testing.T) {
	dir := setupProject(t)
	stdout, stderr, exit := runSilencio(t, dir, nil, "", "redact", "--json", "--rows", "rows.json", "memo.txt")
	if exit != 0 {
		t.Fatalf("exit %d: %s", exit, stderr)
	}
	var report struct {
		Source  string `json:"source"`
		Matches []struct {
			Start   int    `json:"start"`
			End     int    `json:"end"`
			Number  int    `json:"number"`
			Surface string `json:"surface"`
		} `json:"matches"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if report.Source != "memo.txt" {
		t.Errorf("source = %q", report.Source)
	}
	if len(report.Matches) != 3 {
		t.Fatalf("want 3 matches, got %d", len(report.Matches))
	}
	first := report.Matches[0]
	if first.Start != 0 || first.End != 9 || first.Surface != "Bob Smith" || first.Number != 1 {
		t.Errorf("first match = %+v", first)
	}
}

func TestRedact_Summary(t *testing.T) {
	dir := setupProject(t)
	_, stderr, exit := runSilencio(t, dir, nil, "", "redact", "--summary", "--rows", "rows.json", "memo.txt")
	if exit != 0 {
		t.Fatalf("exit %d", exit)
	}
	if !strings.Contains(stderr, "3 spans redacted") {
		t.Errorf("summary missing:\n%s", stderr)
	}
}

func TestRedact_OutputFile(t *testing.T) {
	dir := setupProject(t)
	_, stderr, exit := runSilencio(t, dir, nil, "", "redact", "--rows", "rows.json", "-o", "out.txt", "memo.txt")
	if exit != 0 {
		t.Fatalf("exit %d: %s", exit, stderr)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "[REDACTED(#1)") {
		t.Errorf("unexpected file content:\n%s", data)
	}
}

func TestRedact_DuplicateRowNumbers(t *testing.T) {
	dir := setupProject(t)
	writeFile(t, filepath.Join(dir, "dup.json"), `[{"number":1,"item":"a"},{"number":1,"item":"b"}]`)
	_, stderr, exit := runSilencio(t, dir, nil, "", "redact", "--rows", "dup.json", "memo.txt")
	if exit == 0 {
		t.Fatal("duplicate row numbers should fail")
	}
	if !strings.Contains(stderr, "invalid input") {
		t.Errorf("error should mention invalid input:\n%s", stderr)
	}
}

func TestRedact_NoAPIKey(t *testing.T) {
	dir := setupProject(t)
	_, stderr, exit := runSilencio(t, dir, nil, "", "redact", "memo.txt")
	if exit == 0 {
		t.Fatal("classifier-backed redact without a key should fail")
	}
	if !strings.Contains(stderr, "OPENAI_API_KEY") {
		t.Errorf("error should name OPENAI_API_KEY:\n%s", stderr)
	}
}

func TestRedact_NoInput(t *testing.T) {
	dir := setupProject(t)
	_, stderr, exit := runSilencio(t, dir, nil, "", "redact", "--rows", "rows.json")
	if exit == 0 {
		t.Fatal("redact with no file and a terminal-less empty stdin should fail")
	}
	if !strings.Contains(stderr, "no input") {
		t.Errorf("error should say 'no input':\n%s", stderr)
	}
}

// =============================================================================
// Classifier-backed commands against a fake model
// =============================================================================

func TestClassify_CachesInventory(t *testing.T) {
	dir := setupProject(t)
	var calls atomic.Int32
	srv := fakeModel(t, &calls)
	env := baseEnv("OPENAI_API_KEY=sk-test", "OPENAI_BASE_URL="+srv.URL+"/v1", "SILENCIO_RATE_LIMIT=0")

	stdout, stderr, exit := runSilencio(t, dir, env, "", "classify", "--format", "json", "memo.txt")
	if exit != 0 {
		t.Fatalf("classify exit %d: %s", exit, stderr)
	}
	if !strings.Contains(stdout, `"item": "AKIA-TEST-KEY"`) {
		t.Errorf("inventory missing key:\n%s", stdout)
	}

	// Same document: served from cache.
	stdout, stderr, exit = runSilencio(t, dir, env, "", "redact", "memo.txt")
	if exit != 0 {
		t.Fatalf("redact exit %d: %s", exit, stderr)
	}
	if !strings.Contains(stdout, "[REDACTED(#2): (3)(A)(b), API keys]") {
		t.Errorf("key not redacted:\n%s", stdout)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("model calls = %d, want 1 (second run cached)", got)
	}

	stdout, _, exit = runSilencio(t, dir, env, "", "cache", "list")
	if exit != 0 || !strings.Contains(stdout, "1 cached inventories") || !strings.Contains(stdout, "memo.txt") {
		t.Errorf("cache list (exit %d):\n%s", exit, stdout)
	}

	stdout, _, exit = runSilencio(t, dir, env, "", "cache", "clear", "--force")
	if exit != 0 || !strings.Contains(stdout, "cleared") {
		t.Errorf("cache clear (exit %d):\n%s", exit, stdout)
	}
	stdout, _, _ = runSilencio(t, dir, env, "", "cache", "list")
	if !strings.Contains(stdout, "0 cached inventories") {
		t.Errorf("cache should be empty:\n%s", stdout)
	}
}

func TestClassify_WriteYAMLFile(t *testing.T) {
	dir := setupProject(t)
	var calls atomic.Int32
	srv := fakeModel(t, &calls)
	env := baseEnv("OPENAI_API_KEY=sk-test", "OPENAI_BASE_URL="+srv.URL+"/v1", "SILENCIO_RATE_LIMIT=0")

	_, stderr, exit := runSilencio(t, dir, env, "", "classify", "--no-cache", "-o", "found.yaml", "memo.txt")
	if exit != 0 {
		t.Fatalf("classify exit %d: %s", exit, stderr)
	}
	data, err := os.ReadFile(filepath.Join(dir, "found.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "item: Bob Smith") {
		t.Errorf("yaml inventory:\n%s", data)
	}

	// The written inventory feeds straight back into redact.
	stdout, stderr, exit := runSilencio(t, dir, nil, "", "redact", "--inventory", "found.yaml", "memo.txt")
	if exit != 0 {
		t.Fatalf("redact exit %d: %s", exit, stderr)
	}
	if strings.Contains(stdout, "AKIA-TEST-KEY") {
		t.Errorf("key leaked:\n%s", stdout)
	}
}

func TestCache_Locked(t *testing.T) {
	dir := setupProject(t)
	var calls atomic.Int32
	srv := fakeModel(t, &calls)
	env := baseEnv("OPENAI_API_KEY=sk-test", "OPENAI_BASE_URL="+srv.URL+"/v1", "SILENCIO_RATE_LIMIT=0")
	runSilencio(t, dir, env, "", "classify", "memo.txt")

	release := holdDBLock(t, filepath.Join(dir, ".silencio", "silencio.db"))
	defer release()

	start := time.Now()
	_, stderr, exit := runSilencio(t, dir, env, "", "cache", "list")
	elapsed := time.Since(start)
	if exit == 0 {
		t.Fatal("cache list should fail when the cache is locked")
	}
	if elapsed > 3*time.Second {
		t.Errorf("should fail fast (<3s), took %v", elapsed)
	}
	if !strings.Contains(stderr, "locked") || !strings.Contains(stderr, "process") {
		t.Errorf("error should explain the lock:\n%s", stderr)
	}
}

// =============================================================================
// Tags, config and serve
// =============================================================================

func TestTags(t *testing.T) {
	dir := setupProject(t)
	redacted := "x [REDACTED(#1): (1)(A)(a), Real names] y [REDACTED: (2)(C), Internal project details]"
	stdout, _, exit := runSilencio(t, dir, nil, redacted, "tags", "-")
	if exit != 0 {
		t.Fatalf("exit %d", exit)
	}
	for _, want := range []string{"2 tags", "#1", "(1)(A)(a)", "(2)(C)", "Internal project details"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("tags output missing %q:\n%s", want, stdout)
		}
	}
}

func TestConfig_Basic(t *testing.T) {
	dir := setupProject(t)
	stdout, _, exit := runSilencio(t, dir, nil, "", "config")
	if exit != 0 {
		t.Fatalf("exit %d", exit)
	}
	for _, want := range []string{"Root:", "Cache:", "Model:", "gpt-5-mini", "API key:", "not set", "lower-row"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config missing %q:\n%s", want, stdout)
		}
	}
}

func TestConfig_FileAndEnv(t *testing.T) {
	dir := setupProject(t)
	writeFile(t, filepath.Join(dir, ".silencio", "config.yaml"), "classifier:\n  model: from-file\nredact:\n  tie_break: higher-row\n")
	writeFile(t, filepath.Join(dir, ".env"), "OPENAI_API_KEY=sk-dotenv\n")

	env := append(os.Environ(), "NO_COLOR=1", "MODEL_NAME=", "SILENCIO_TIE_BREAK=")
	env = withoutVar(env, "OPENAI_API_KEY")
	stdout, _, exit := runSilencio(t, dir, env, "", "config")
	if exit != 0 {
		t.Fatalf("exit %d", exit)
	}
	for _, want := range []string{"from-file", "higher-row", "✓ set"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config missing %q:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "sk-dotenv") {
		t.Errorf("API key must never be printed:\n%s", stdout)
	}
}

// withoutVar drops every NAME=... entry so that .env can supply it.
func withoutVar(env []string, name string) []string {
	out := env[:0:0]
	for _, kv := range env {
		if !strings.HasPrefix(kv, name+"=") {
			out = append(out, kv)
		}
	}
	return out
}

func TestServe_RedactAndShutdown(t *testing.T) {
	dir := setupProject(t)
	cmd := exec.Command(silencioBin, "serve", "--port", "0")
	cmd.Dir = dir
	cmd.Env = baseEnv()
	var errBuf strings.Builder
	cmd.Stderr = &errBuf
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	defer cmd.Process.Kill()

	portFile := filepath.Join(dir, ".silencio", "run", "http.port")
	var port string
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(portFile); err == nil && len(data) > 0 {
			port = strings.TrimSpace(string(data))
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if port == "" {
		t.Fatalf("port file never appeared; stderr:\n%s", errBuf.String())
	}

	body := `{"document":"call Bob","items":[{"item":"Bob","code":"(1)(A)(a)","desc":"Real names"}]}`
	resp, err := http.Post("http://127.0.0.1:"+port+"/api/redact", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 || !strings.Contains(string(data), `"redacted_text":"call [REDACTED(#1): (1)(A)(a), Real names]"`) {
		t.Errorf("redact via API (status %d):\n%s", resp.StatusCode, data)
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not exit after SIGTERM")
	}
	if _, err := os.Stat(portFile); !os.IsNotExist(err) {
		t.Error("port file should be removed on shutdown")
	}
}
