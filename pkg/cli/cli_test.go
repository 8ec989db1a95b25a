package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// runCLI runs a command with an isolated data directory.
func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("NIX_INSPECT_DATA", t.TempDir())
	t.Setenv("NIX_INSPECT_LOGLEVEL", "")
	var out, errOut bytes.Buffer
	code := Run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestVersionAndUsage(t *testing.T) {
	code, out, _ := runCLI(t, "", "version")
	if code != exitOK || !strings.HasPrefix(out, "nix-inspect ") {
		t.Errorf("version: %d %q", code, out)
	}
	code, out, _ = runCLI(t, "", "--version")
	if code != exitOK || !strings.HasPrefix(out, "nix-inspect ") {
		t.Errorf("--version: %d %q", code, out)
	}

	code, _, errOut := runCLI(t, "")
	if code != exitUsage || !strings.Contains(errOut, "Commands:") {
		t.Errorf("no args: %d %q", code, errOut)
	}
	code, _, errOut = runCLI(t, "", "frob")
	if code != exitUsage || !strings.Contains(errOut, `unknown command "frob"`) {
		t.Errorf("unknown command: %d %q", code, errOut)
	}
	code, _, _ = runCLI(t, "", "help")
	if code != exitOK {
		t.Errorf("help: %d", code)
	}
}

func TestEval(t *testing.T) {
	expr := `{ a = { b = 42; }; f = { x }: x; }`

	code, out, _ := runCLI(t, "", "eval", "-e", expr, "a.b", "a")
	if code != exitOK {
		t.Fatalf("eval exited %d", code)
	}
	want := `{"type":"1","data":42}` + "\n" + `{"type":"7","data":["b"]}` + "\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	code, out, _ = runCLI(t, "", "eval", "-e", expr)
	if code != exitOK || out != `{"type":"7","data":["a","f"]}`+"\n" {
		t.Errorf("root: %d %q", code, out)
	}

	code, out, _ = runCLI(t, "", "eval", "-e", expr, "--argstr", "x=hi", "f")
	if code != exitOK || out != `{"type":"4","data":"hi"}`+"\n" {
		t.Errorf("argstr: %d %q", code, out)
	}
	code, out, _ = runCLI(t, "", "eval", "-e", expr, "--arg", "x=1 + 2", "f")
	if code != exitOK || out != `{"type":"1","data":3}`+"\n" {
		t.Errorf("arg: %d %q", code, out)
	}

	code, out, errOut := runCLI(t, "", "eval", "-e", expr, "a.c", "a.b")
	if code != exitError {
		t.Errorf("missing attribute should fail, got %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "MissingAttribute") || lines[1] != `{"type":"1","data":42}` {
		t.Errorf("partial failure output: %q", out)
	}
	if !strings.Contains(errOut, "1 of 2 paths failed") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestEvalFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "default.nix")
	if err := os.WriteFile(file, []byte("{\n  answer = 42;\n}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, errOut := runCLI(t, "", "eval", "-f", file, "answer")
	if code != exitOK || out != `{"type":"1","data":42}`+"\n" {
		t.Errorf("eval -f: %d %q %q", code, out, errOut)
	}
}

func TestEvalErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"no_expr", []string{"eval"}, exitError, "no root expression"},
		{"both", []string{"eval", "-e", "1", "-f", "x.nix"}, exitError, "mutually exclusive"},
		{"bad_flag", []string{"eval", "--nope"}, exitUsage, "flag provided but not defined"},
		{"bad_arg", []string{"eval", "-e", "1", "--arg", "novalue"}, exitUsage, "expected name=value"},
		{"dup_arg", []string{"eval", "-e", "1", "--arg", "x=1", "--argstr", "x=1"}, exitError, "both"},
		{"syntax", []string{"eval", "-e", "{ a = ; }"}, exitError, "parsing root expression"},
		{"log_level", []string{"eval", "-e", "1", "--log-level", "loud"}, exitError, "unknown log level"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, "", tc.args...)
			if code != tc.code {
				t.Errorf("exit code %d, want %d", code, tc.code)
			}
			if !strings.Contains(errOut, tc.msg) {
				t.Errorf("stderr %q does not mention %q", errOut, tc.msg)
			}
		})
	}
}

func TestEvalConfig(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "type_tags: name\nformat: json\nlog_file: \"-\"\nargstrs:\n  x: from-config\n"
	if err := os.WriteFile(cfgFile, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, _ := runCLI(t, "", "eval", "--config", cfgFile, "-e", "{ f = { x }: x; }", "f")
	if code != exitOK || out != `{"type":"string","data":"from-config"}`+"\n" {
		t.Errorf("config: %d %q", code, out)
	}
}

func TestWorker(t *testing.T) {
	stdin := "{ a = 1; xs = [ 1 2 3 ]; }\na\nxs\n:quit\n"
	code, out, errOut := runCLI(t, stdin, "worker")
	if code != exitOK {
		t.Fatalf("worker exited %d: %s", code, errOut)
	}
	want := `{"type":"1","data":1}` + "\n" + `{"type":"8","data":3}` + "\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	code, out, _ = runCLI(t, "1 / 0\na\n", "worker")
	if code != exitError || !strings.Contains(out, `"type":"11"`) {
		t.Errorf("failing root: %d %q", code, out)
	}
}

func TestBookmarkCommand(t *testing.T) {
	t.Setenv("NIX_INSPECT_DATA", t.TempDir())
	var out, errOut bytes.Buffer
	run := func(args ...string) int {
		out.Reset()
		errOut.Reset()
		return Run(args, strings.NewReader(""), &out, &errOut)
	}

	if code := run("bookmark", "add", "laptop", "nixosConfigurations.laptop"); code != exitOK {
		t.Fatalf("add: %d %s", code, errOut.String())
	}
	if code := run("bookmark", "ls"); code != exitOK || out.String() != "laptop\tnixosConfigurations.laptop\n" {
		t.Errorf("ls: %d %q", code, out.String())
	}
	if code := run("bookmark", "rm", "laptop"); code != exitOK {
		t.Errorf("rm: %d %s", code, errOut.String())
	}
	if code := run("bookmark", "rm", "laptop"); code != exitError {
		t.Errorf("second rm: %d", code)
	}
	if code := run("bookmark", "frob"); code != exitUsage {
		t.Errorf("bad subcommand: %d", code)
	}
}

func TestQueryUsage(t *testing.T) {
	code, _, errOut := runCLI(t, "", "query")
	if code != exitUsage || !strings.Contains(errOut, "Usage: nix-inspect query") {
		t.Errorf("query without op: %d %q", code, errOut)
	}
}
