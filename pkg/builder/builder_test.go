package builder_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/stanza-build/stanza/pkg/builder"
	"github.com/stanza-build/stanza/pkg/logger"
	"github.com/stanza-build/stanza/pkg/state"
	"github.com/stanza-build/stanza/pkg/types"
)

type call struct {
	dir  string
	name string
	args []string
}

// fakeRunner records invocations and optionally fails a named tool
type fakeRunner struct {
	calls    []call
	failTool string
	failErr  error

	// observed captures transient file presence at sdist time
	sawSetup    bool
	sawManifest bool
	sawReadme   bool
}

func (f *fakeRunner) Run(_ context.Context, dir string, name string, args ...string) error {
	f.calls = append(f.calls, call{dir: dir, name: name, args: args})

	if name == "python" {
		f.sawSetup = exists(filepath.Join(dir, "setup.py"))
		f.sawManifest = exists(filepath.Join(dir, "MANIFEST.in"))
		f.sawReadme = exists(filepath.Join(dir, "README.rst"))
	}

	if name == f.failTool {
		return f.failErr
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func testLogger() logger.Logger {
	return logger.CreateLoggerWithOutput("error", io.Discard)
}

func testManifest(t *testing.T) *types.Manifest {
	t.Helper()
	root := t.TempDir()
	pkg := filepath.Join(root, "demo")
	if err := os.MkdirAll(pkg, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"__init__.py", "core.py"} {
		if err := os.WriteFile(filepath.Join(pkg, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	return &types.Manifest{
		BaseDir:      root,
		Name:         "demo",
		Version:      "0.1.0",
		Description:  "A demo package",
		Authors:      []string{"Jane Doe <jane@example.com>"},
		License:      "MIT",
		Homepage:     "https://example.com",
		Python:       []string{">=3.5,<4.0"},
		Include:      []string{"/demo/**/*.py"},
		Readme:       "# Demo\n",
		ReadmeFormat: types.ReadmeFormatMarkdown,
	}
}

func TestBuildInvokesToolsInOrder(t *testing.T) {
	m := testManifest(t)
	runner := &fakeRunner{}
	b := builder.New(testLogger(), runner, nil)

	if err := b.Build(context.Background(), m, builder.Options{}); err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if len(runner.calls) != 2 {
		t.Fatalf("got %d tool invocations, want 2", len(runner.calls))
	}

	sdist := runner.calls[0]
	if sdist.name != "python" || !reflect.DeepEqual(sdist.args, []string{"setup.py", "sdist"}) {
		t.Errorf("sdist call = %s %v", sdist.name, sdist.args)
	}
	if sdist.dir != m.BaseDir {
		t.Errorf("sdist dir = %q, want project root", sdist.dir)
	}

	wheel := runner.calls[1]
	wantWheel := []string{
		"wheel", "--no-index", "--no-deps",
		"--wheel-dir", "dist", filepath.Join("dist", "demo-0.1.0.tar.gz"),
	}
	if wheel.name != "pip" || !reflect.DeepEqual(wheel.args, wantWheel) {
		t.Errorf("wheel call = %s %v, want pip %v", wheel.name, wheel.args, wantWheel)
	}
}

func TestBuildMaterializesTransientFiles(t *testing.T) {
	m := testManifest(t)
	runner := &fakeRunner{}
	b := builder.New(testLogger(), runner, nil)

	if err := b.Build(context.Background(), m, builder.Options{}); err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if !runner.sawSetup || !runner.sawManifest {
		t.Error("setup.py and MANIFEST.in should exist during the sdist invocation")
	}
	if !runner.sawReadme {
		t.Error("README.rst fallback should exist for a markdown readme")
	}

	// All transient files are gone afterwards
	for _, name := range []string{"setup.py", "MANIFEST.in", "README.rst"} {
		if exists(filepath.Join(m.BaseDir, name)) {
			t.Errorf("%s still present after build", name)
		}
	}
}

func TestBuildKeepsPreexistingReadme(t *testing.T) {
	m := testManifest(t)
	readme := filepath.Join(m.BaseDir, "README.rst")
	if err := os.WriteFile(readme, []byte("existing\n"), 0644); err != nil {
		t.Fatal(err)
	}

	b := builder.New(testLogger(), &fakeRunner{}, nil)
	if err := b.Build(context.Background(), m, builder.Options{}); err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	data, err := os.ReadFile(readme)
	if err != nil {
		t.Fatalf("pre-existing README.rst was removed: %v", err)
	}
	if string(data) != "existing\n" {
		t.Errorf("pre-existing README.rst was overwritten: %q", data)
	}
}

func TestBuildUniversalFlag(t *testing.T) {
	m := testManifest(t)
	runner := &fakeRunner{}
	b := builder.New(testLogger(), runner, nil)

	if err := b.Build(context.Background(), m, builder.Options{Universal: true}); err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	wheel := runner.calls[len(runner.calls)-1]
	last := wheel.args[len(wheel.args)-1]
	if last != "--build-option=--universal" {
		t.Errorf("universal flag missing, args = %v", wheel.args)
	}
}

func TestBuildSdistFailureCleansUpAndPropagates(t *testing.T) {
	m := testManifest(t)
	bang := errors.New("sdist exploded")
	runner := &fakeRunner{failTool: "python", failErr: bang}
	b := builder.New(testLogger(), runner, nil)

	err := b.Build(context.Background(), m, builder.Options{})
	if !errors.Is(err, bang) {
		t.Fatalf("Build() error = %v, want the sdist failure", err)
	}

	// Cleanup ran; wheel was never attempted
	for _, name := range []string{"setup.py", "MANIFEST.in", "README.rst"} {
		if exists(filepath.Join(m.BaseDir, name)) {
			t.Errorf("%s still present after failed build", name)
		}
	}
	for _, c := range runner.calls {
		if c.name == "pip" {
			t.Error("wheel build ran despite sdist failure")
		}
	}
}

func TestBuildWheelFailurePropagates(t *testing.T) {
	m := testManifest(t)
	bang := errors.New("wheel exploded")
	runner := &fakeRunner{failTool: "pip", failErr: bang}
	b := builder.New(testLogger(), runner, nil)

	if err := b.Build(context.Background(), m, builder.Options{}); !errors.Is(err, bang) {
		t.Fatalf("Build() error = %v, want the wheel failure", err)
	}
}

func TestBuildBadAuthorFailsBeforeInvocation(t *testing.T) {
	m := testManifest(t)
	m.Authors = []string{"broken"}
	runner := &fakeRunner{}
	b := builder.New(testLogger(), runner, nil)

	if err := b.Build(context.Background(), m, builder.Options{}); err == nil {
		t.Fatal("expected author format error")
	}
	if len(runner.calls) != 0 {
		t.Errorf("tools invoked despite descriptor failure: %v", runner.calls)
	}
}

func TestBuildRecordsReceipts(t *testing.T) {
	m := testManifest(t)
	states := state.NewManager(m.BaseDir, testLogger())
	b := builder.New(testLogger(), &fakeRunner{}, states)

	if err := b.Build(context.Background(), m, builder.Options{}); err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	latest, err := states.Latest()
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if latest == nil || latest.Status != state.BuildSucceeded {
		t.Errorf("latest receipt = %+v, want succeeded", latest)
	}
	if latest.Archive != "demo-0.1.0.tar.gz" {
		t.Errorf("receipt archive = %q", latest.Archive)
	}
}

func TestBuildRecordsFailureReceipt(t *testing.T) {
	m := testManifest(t)
	states := state.NewManager(m.BaseDir, testLogger())
	runner := &fakeRunner{failTool: "python", failErr: errors.New("boom")}
	b := builder.New(testLogger(), runner, states)

	if err := b.Build(context.Background(), m, builder.Options{}); err == nil {
		t.Fatal("expected build failure")
	}

	latest, err := states.Latest()
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if latest == nil || latest.Status != state.BuildFailed {
		t.Errorf("latest receipt = %+v, want failed", latest)
	}
	if !strings.Contains(latest.Error, "boom") {
		t.Errorf("receipt error = %q", latest.Error)
	}
}
