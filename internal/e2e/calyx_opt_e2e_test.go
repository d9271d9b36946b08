package e2e

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/calyx-opt/internal/facts"
	"github.com/robert-at-pretension-io/calyx-opt/internal/ir"
	"github.com/robert-at-pretension-io/calyx-opt/internal/pipeline"
)

func TestCalyxOptE2E_Testdata(t *testing.T) {
	repoRoot := findRepoRoot(t)
	optBin := buildBinary(t, repoRoot, "calyx-opt")

	work := t.TempDir()
	outDir := filepath.Join(work, "out")
	reportPath := filepath.Join(work, "report.json")
	configPath := filepath.Join(work, "calyx_opt.json")
	config := `{"passes": ["clk-insertion"], "output": {"reportFile": "` + reportPath + `", "deltas": true}}`
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	programs := filepath.Join(repoRoot, "testdata", "programs")
	stdout, stderr := runBinary(t, optBin, work, "-c", configPath, "-o", outDir, programs)
	if stdout != "" {
		t.Fatalf("expected no stdout with -o, got:\n%s", stdout)
	}
	if !strings.Contains(stderr, "pass clk-insertion") {
		t.Fatalf("expected pass summary on stderr, got:\n%s", stderr)
	}

	want := map[string][]string{
		"clocked.json": {"a.clk = clk;"},
		"nested.json":  {"count.clk = clk;", "r.clk = clk;"},
	}
	for name, wires := range want {
		t.Run(name, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join(outDir, name))
			if err != nil {
				t.Fatalf("read output: %v", err)
			}
			prog, err := ir.DecodeProgram(data)
			if err != nil {
				t.Fatalf("decode output: %v", err)
			}
			var text strings.Builder
			if err := ir.Fprint(&text, prog); err != nil {
				t.Fatalf("print: %v", err)
			}
			for _, w := range wires {
				if strings.Count(text.String(), w) != 1 {
					t.Fatalf("expected %q exactly once in:\n%s", w, text.String())
				}
			}
		})
	}

	raw, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report pipeline.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	// the report file holds the last program processed
	if report.RunID == "" || len(report.Passes) != 1 || report.Passes[0].Added["assignments"] != 2 {
		t.Fatalf("unexpected report %s", raw)
	}
}

func TestCalyxOptE2E_Idempotent(t *testing.T) {
	repoRoot := findRepoRoot(t)
	optBin := buildBinary(t, repoRoot, "calyx-opt")

	work := t.TempDir()
	once := filepath.Join(work, "once.json")
	twice := filepath.Join(work, "twice.json")
	input := filepath.Join(repoRoot, "testdata", "programs", "clocked.json")

	runBinary(t, optBin, work, "-p", "clk-insertion", "-o", once, input)
	runBinary(t, optBin, work, "-p", "clk-insertion,clk-insertion", "-o", twice, input)

	a, err := os.ReadFile(once)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	b, err := os.ReadFile(twice)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("running clk-insertion twice changed the output:\n%s\nvs\n%s", a, b)
	}
}

func TestCalyxOptE2E_ListAndDebug(t *testing.T) {
	repoRoot := findRepoRoot(t)
	optBin := buildBinary(t, repoRoot, "calyx-opt")
	work := t.TempDir()

	stdout, _ := runBinary(t, optBin, work, "list")
	if !strings.Contains(stdout, "clk-insertion") || !strings.Contains(stdout, "sub-component clk") {
		t.Fatalf("list output missing clk-insertion:\n%s", stdout)
	}

	input := filepath.Join(repoRoot, "testdata", "programs", "clocked.json")
	stdout, _ = runBinary(t, optBin, work, "-d", "-p", "clk-insertion", input)
	if !strings.HasPrefix(stdout, "=============== clk-insertion ==============\n") {
		t.Fatalf("expected debug dump first, got:\n%s", stdout)
	}
}

func TestCalyxFactsE2E(t *testing.T) {
	repoRoot := findRepoRoot(t)
	factsBin := buildBinary(t, repoRoot, "calyx-facts")
	optBin := buildBinary(t, repoRoot, "calyx-opt")

	work := t.TempDir()
	input := filepath.Join(repoRoot, "testdata", "programs", "nested.json")
	before := filepath.Join(work, "before.facts.json")
	transformed := filepath.Join(work, "nested.json")
	deltaPath := filepath.Join(work, "delta.json")

	runBinary(t, factsBin, work, "-o", before, input)
	runBinary(t, optBin, work, "-p", "clk-insertion", "-o", transformed, input)
	runBinary(t, factsBin, work, "--components", "main", "--delta-from", before, "--delta-out", deltaPath, "-o", filepath.Join(work, "after.facts.json"), transformed)

	raw, err := os.ReadFile(deltaPath)
	if err != nil {
		t.Fatalf("read delta: %v", err)
	}
	var delta facts.Delta
	if err := json.Unmarshal(raw, &delta); err != nil {
		t.Fatalf("parse delta: %v", err)
	}
	if len(delta.Added.Assignments) != 1 || delta.Added.Assignments[0].Dst != "r.clk" {
		t.Fatalf("expected only main's r.clk in the filtered delta, got %+v", delta.Added.Assignments)
	}
	if delta.Removed.RowCount() != 0 {
		t.Fatalf("clk-insertion removes nothing, got %+v", delta.Removed)
	}
}

func runBinary(t *testing.T, bin, dir string, args ...string) (string, string) {
	t.Helper()

	home := t.TempDir()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
		"CALYX_DEBUG=",
		"CALYX_TIMING_JSONL=",
	)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("%s %v failed: %v\nstderr:\n%s", filepath.Base(bin), args, err, stderr.String())
	}
	return stdout.String(), stderr.String()
}

func buildBinary(t *testing.T, repoRoot, name string) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), name)
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/"+name)
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build %s failed: %v\n%s", name, err, string(out))
	}
	return binPath
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	dir := start
	for {
		candidate := filepath.Join(dir, "testdata", "programs", "clocked.json")
		if _, err := os.Stat(candidate); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("repo root not found from %s", start)
		}
		dir = parent
	}
}
