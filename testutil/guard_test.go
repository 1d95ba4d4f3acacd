package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestInternalImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"edcohort/internal/pipeline", true},
		{"edcohort/pkg/table", false},
		{"internal/abi", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestModuleImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"github.com/prometheus/client_golang/prometheus", true},
		{"modernc.org/sqlite", true},
		{"encoding/csv", false},
		{"crypto/internal/boring", false},
		{"vendor/golang.org/x/net/dns/dnsmessage", false},
		{"edcohort/pkg/table", false},
	}
	for _, c := range cases {
		if got := ModuleImportForbidden(c.in); got != c.want {
			t.Fatalf("ModuleImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestDriverImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"edcohort/internal/infra/blob/fs", true},
		{"edcohort/internal/infra/journal/sqlite", true},
		{"edcohort/internal/artifact", false},
		{"edcohort/internal/journal", false},
	}
	for _, c := range cases {
		if got := DriverImportForbidden(c.in); got != c.want {
			t.Fatalf("DriverImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

// TestAssertNoDirectImports exercises the success path with a tiny temp
// package whose imports are all allowed.
func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, func(string) bool { return false }, "none")
}

// TestAssertNoDirectImportsSkipsTestFiles plants a forbidden import in a
// _test.go file and expects the scan to ignore it.
func TestAssertNoDirectImportsSkipsTestFiles(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"forbidden/pkg\"\nvar _ = 1")
	if err := os.WriteFile(filepath.Join(dir, "x_test.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, func(p string) bool { return p == "forbidden/pkg" }, "test files are out of scope")
}

func TestDirectImportViolationsReportsFileName(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"forbidden/pkg\"\nvar _ = 1")
	if err := os.WriteFile(filepath.Join(dir, "bad.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, func(p string) bool { return p == "forbidden/pkg" })
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "forbidden/pkg (in bad.go)" {
		t.Fatalf("violations = %v", viols)
	}
}

// TestAssertNoTransitiveDependency runs against the current package with a
// predicate that always returns false to exercise the go list path.
func TestAssertNoTransitiveDependency(t *testing.T) {
	AssertNoTransitiveDependency(t, ".", func(string) bool { return false }, "none")
}

func TestTransitiveDependencyViolationsParsesListOutput(t *testing.T) {
	old := goListDeps
	defer func() { goListDeps = old }()
	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\nema.example/dep\n\nedcohort/pkg/table\n"), nil
	}
	viols, _, err := transitiveDependencyViolations("./...", ModuleImportForbidden)
	if err != nil {
		t.Fatalf("violations: %v", err)
	}
	if len(viols) != 1 || viols[0] != "ema.example/dep" {
		t.Fatalf("violations = %v", viols)
	}
}

func TestTransitiveDependencyViolationsSurfacesListError(t *testing.T) {
	old := goListDeps
	defer func() { goListDeps = old }()
	goListDeps = func(string) ([]byte, error) {
		return []byte("go: no such pattern"), errors.New("exit status 1")
	}
	_, out, err := transitiveDependencyViolations("./nope", func(string) bool { return false })
	if err == nil {
		t.Fatal("expected error")
	}
	if string(out) != "go: no such pattern" {
		t.Fatalf("out = %q", out)
	}
}

type fatalRecorder struct {
	calls []string
}

func (r *fatalRecorder) Fatalf(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func TestFailHelpersOnlyFireOnViolations(t *testing.T) {
	var rec fatalRecorder
	failIfDirectViolations(&rec, "reason", nil)
	failIfTransitiveViolations(&rec, "reason", nil)
	if len(rec.calls) != 0 {
		t.Fatalf("unexpected failures: %v", rec.calls)
	}
	failIfDirectViolations(&rec, "facade rule", []string{"edcohort/internal/infra/blob/fs (in main.go)"})
	if len(rec.calls) != 1 {
		t.Fatalf("calls = %v", rec.calls)
	}
}
