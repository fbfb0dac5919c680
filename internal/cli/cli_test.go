package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/sink"
	"github.com/spf13/viper"
)

// runCLI executes the command tree with args and returns stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)

	var out, errOut bytes.Buffer
	root := NewRootCommand(v, &out, &errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestChunk_Stdin(t *testing.T) {
	out, err := runCLI(t, "short1\n\nshort2\n", "chunk", "--min", "20", "--target", "40", "--max", "80")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var chunk string
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &chunk); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if chunk != "short1\nshort2\n" {
		t.Errorf("expected merged chunk, got %q", chunk)
	}
}

func TestChunk_InvalidThresholds(t *testing.T) {
	if _, err := runCLI(t, "x", "chunk", "--min", "900"); err == nil {
		t.Fatal("expected error for min above target")
	}
}

func TestTree(t *testing.T) {
	path := writeFile(t, t.TempDir(), "guide.md", "# A\nhello\n## B\nworld\n# C\nfoo")
	out, err := runCLI(t, "", "tree", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var tree doctree.Tree
	if err := json.Unmarshal([]byte(out), &tree); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tree.Title != "guide" || len(tree.Blocks) != 2 || tree.Blocks[0].Children[0].Title != "B" {
		t.Errorf("unexpected tree %+v", tree)
	}
}

func TestTree_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.bin", "x")
	if _, err := runCLI(t, "", "tree", path); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestWalk_JSONToStdout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "# A\nhello\n## B\nworld")
	writeFile(t, dir, "sub/b.md", "# C\nfoo")
	writeFile(t, dir, "skip.txt", "ignored")

	out, err := runCLI(t, "", "walk", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d: %q", len(lines), out)
	}
	files := map[string]string{}
	for _, line := range lines {
		var r doctree.Record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		files[r.File] = r.Title
	}
	if files["a.md"] != "A" || files["sub/b.md"] != "C" {
		t.Errorf("unexpected records %v", files)
	}
}

func TestWalk_RecordsAndLogsOnSeparateStreams(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "# A\nhello")

	v := viper.New()
	config.SetDefaults(v)
	var out, errOut bytes.Buffer
	root := NewRootCommand(v, &out, &errOut)
	root.SetArgs([]string{"walk", dir, "--log-level", "info"})
	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var r doctree.Record
		if err := json.Unmarshal([]byte(line), &r); err != nil || r.File == "" {
			t.Errorf("expected only records on stdout, got %q", line)
		}
	}
	if errOut.Len() == 0 {
		t.Error("expected info logs on stderr")
	}
}

func TestWalk_NestedWithExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "# A\nhello\n## B\nworld")
	writeFile(t, dir, "n.txt", "plain")

	out, err := runCLI(t, "", "walk", dir, "--nested", "--ext", ".md,.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Count(out, "\n"); got != 3 {
		t.Errorf("expected 3 records, got %d: %q", got, out)
	}
	if !strings.Contains(out, `"breadcrumb":["A"]`) {
		t.Errorf("expected breadcrumb on nested record: %s", out)
	}
}

func TestWalk_SQLiteSink(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "docs/a.md", "# A\nx\n# B\ny")
	dbPath := filepath.Join(dir, "out.db")

	if _, err := runCLI(t, "", "walk", filepath.Join(dir, "docs"), "--sink", "sqlite", "--sqlite-path", dbPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, err := sink.OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	records, err := s.Records(context.Background(), "a.md")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestWalk_FailedFileIsError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.md", "\xff\xfe")
	writeFile(t, dir, "good.md", "# G\nok")

	out, err := runCLI(t, "", "walk", dir)
	if err == nil {
		t.Fatal("expected error when a file fails")
	}
	if !strings.Contains(out, `"title":"G"`) {
		t.Errorf("expected the good file to still be written, got %q", out)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "docsplit.yaml", "min_tokens: 20\ntarget_tokens: 40\nmax_tokens: 80\n")

	out, err := runCLI(t, "short1\n\nshort2\n", "chunk", "--config", cfgPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("expected a single merged chunk, got %q", out)
	}
}

func TestConfigFile_Missing(t *testing.T) {
	if _, err := runCLI(t, "", "chunk", "--config", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
