package configtree

import (
	"path/filepath"
	"testing"
)

func openTestTree(t *testing.T) *Tree {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.db")
	tr, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestInstallAndAppInstalled(t *testing.T) {
	tr := openTestTree(t)

	installed, err := tr.AppInstalled("demo")
	if err != nil {
		t.Fatalf("AppInstalled: %v", err)
	}
	if installed {
		t.Fatalf("expected demo to be uninstalled")
	}

	if err := tr.Install("demo", true, []ProcessSpec{
		{Name: "main", ExecPath: "/usr/bin/demo", Args: []string{"-v"}},
	}); err != nil {
		t.Fatalf("Install: %v", err)
	}

	installed, err = tr.AppInstalled("demo")
	if err != nil {
		t.Fatalf("AppInstalled: %v", err)
	}
	if !installed {
		t.Fatalf("expected demo to be installed")
	}

	manual, err := tr.StartManual("demo")
	if err != nil {
		t.Fatalf("StartManual: %v", err)
	}
	if !manual {
		t.Fatalf("expected startManual true")
	}
}

func TestProcessSpecsRoundTrip(t *testing.T) {
	tr := openTestTree(t)
	want := []ProcessSpec{
		{Name: "main", ExecPath: "/usr/bin/demo", Args: []string{"-v"}, Env: []string{"A=1"}, Priority: "high"},
	}
	if err := tr.Install("demo", false, want); err != nil {
		t.Fatalf("Install: %v", err)
	}

	got, err := tr.ProcessSpecs("demo")
	if err != nil {
		t.Fatalf("ProcessSpecs: %v", err)
	}
	if len(got) != 1 || got[0].Name != "main" || got[0].ExecPath != "/usr/bin/demo" {
		t.Fatalf("unexpected process specs: %+v", got)
	}
}

func TestAppChildren(t *testing.T) {
	tr := openTestTree(t)
	if err := tr.Install("one", false, nil); err != nil {
		t.Fatalf("Install one: %v", err)
	}
	if err := tr.Install("two", false, nil); err != nil {
		t.Fatalf("Install two: %v", err)
	}

	children, err := tr.AppChildren()
	if err != nil {
		t.Fatalf("AppChildren: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d: %v", len(children), children)
	}
}

func TestUninstall(t *testing.T) {
	tr := openTestTree(t)
	if err := tr.Install("demo", false, nil); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := tr.Uninstall("demo"); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	installed, err := tr.AppInstalled("demo")
	if err != nil {
		t.Fatalf("AppInstalled: %v", err)
	}
	if installed {
		t.Fatalf("expected demo to be gone after uninstall")
	}
}
