package strategy

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openpcli/pcli-setup/internal/gallery"
	"github.com/openpcli/pcli-setup/internal/probe"
	"github.com/openpcli/pcli-setup/internal/resolver"
	"github.com/openpcli/pcli-setup/internal/stage"
)

type fakeGallery struct {
	t *testing.T

	resolveErr  error
	downloadErr error
	resolved    string
	badArchive  bool
	files       map[string]string

	resolveCalls  int
	downloadCalls int
}

func (f *fakeGallery) ResolveVersion(ctx context.Context, name string, requested string) (string, error) {
	f.resolveCalls++
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	if f.resolved != "" {
		return f.resolved, nil
	}
	if requested != "" {
		return requested, nil
	}
	return "13.2.1", nil
}

func (f *fakeGallery) Download(ctx context.Context, name string, ver string, destDir string) (string, error) {
	f.downloadCalls++
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	asset := filepath.Join(destDir, strings.ToLower(name)+"."+ver+".nupkg")
	if f.badArchive {
		return asset, os.WriteFile(asset, []byte("not a zip"), 0o644)
	}
	files := f.files
	if files == nil {
		files = map[string]string{
			name + ".psd1":           "@{ ModuleVersion = '" + ver + "' }\n",
			"net/VMware.Binding.dll": "binary payload",
		}
	}
	writeNupkg(f.t, asset, files)
	return asset, nil
}

func writeNupkg(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func newTestStager(t *testing.T) *stage.Stager {
	t.Helper()
	s, err := stage.New(filepath.Join(t.TempDir(), "stage"))
	if err != nil {
		t.Fatalf("stage.New: %v", err)
	}
	return s
}

type fakePrompter struct {
	accept bool
	err    error

	calls   int
	gotPath string
	preview string
}

func (p *fakePrompter) ConfirmReplace(path string, preview string) (bool, error) {
	p.calls++
	p.gotPath = path
	p.preview = preview
	return p.accept, p.err
}

func newManualStrategy(t *testing.T, params Params, g *fakeGallery, prompter stage.Prompter) *manualStrategy {
	t.Helper()
	if g.t == nil {
		g.t = t
	}
	return &manualStrategy{params: params, gallery: g, stager: newTestStager(t), prompter: prompter}
}

func TestManualPrecondition(t *testing.T) {
	root := t.TempDir()
	s := newManualStrategy(t, baseParams(root), &fakeGallery{}, nil)

	if ok, reason := s.Precondition(baseEnv(root)); !ok {
		t.Fatalf("expected pass, got %q", reason)
	}

	env := baseEnv(root)
	env.NetworkOK = false
	if ok, reason := s.Precondition(env); ok || !strings.Contains(reason, "network unavailable") {
		t.Fatalf("expected network skip, got ok=%v %q", ok, reason)
	}

	env = baseEnv(root)
	env.ModulePaths = []probe.ModulePath{{Dir: root, Writable: false}}
	if ok, reason := s.Precondition(env); ok || !strings.Contains(reason, "not writable") {
		t.Fatalf("expected writability skip, got ok=%v %q", ok, reason)
	}

	// A destination the probe never saw is vetted at placement time instead.
	env = baseEnv(t.TempDir())
	if ok, reason := s.Precondition(env); !ok {
		t.Fatalf("expected pass for unlisted dest, got %q", reason)
	}
}

func TestManualRunInstallsFreshTree(t *testing.T) {
	root := t.TempDir()
	params := baseParams(root)
	g := &fakeGallery{}
	s := newManualStrategy(t, params, g, nil)

	dir, err := s.Run(context.Background(), baseEnv(root))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	want := filepath.Join(root, "VMware.PowerCLI", "13.2.1")
	if dir != want {
		t.Fatalf("expected %s, got %s", want, dir)
	}
	if _, err := os.Stat(filepath.Join(dir, "VMware.PowerCLI.psd1")); err != nil {
		t.Fatalf("manifest missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "net", "VMware.Binding.dll")); err != nil {
		t.Fatalf("payload missing: %v", err)
	}
	if g.resolveCalls != 1 || g.downloadCalls != 1 {
		t.Fatalf("unexpected gallery calls: resolve=%d download=%d", g.resolveCalls, g.downloadCalls)
	}
}

func TestManualRunAlreadyInstalled(t *testing.T) {
	root := t.TempDir()
	params := baseParams(root)
	want := writeInstalled(t, root, params.Module, params.Version)
	g := &fakeGallery{}
	s := newManualStrategy(t, params, g, nil)

	dir, err := s.Run(context.Background(), baseEnv(root))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if dir != want {
		t.Fatalf("expected %s, got %s", want, dir)
	}
	if g.resolveCalls != 0 {
		t.Fatalf("gallery should not be consulted, got %d calls", g.resolveCalls)
	}
}

func TestManualRunClassifiesGalleryFailures(t *testing.T) {
	root := t.TempDir()

	t.Run("version not found", func(t *testing.T) {
		g := &fakeGallery{resolveErr: fmt.Errorf("package VMware.PowerCLI has no version 99.0.0: %w", gallery.ErrNotFound)}
		s := newManualStrategy(t, baseParams(root), g, nil)
		_, err := s.Run(context.Background(), baseEnv(root))
		var rerr *resolver.Error
		if !errors.As(err, &rerr) || rerr.Kind != resolver.KindNotFound {
			t.Fatalf("expected not_found, got: %v", err)
		}
		if !strings.Contains(err.Error(), "resolve version for VMware.PowerCLI") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("rate limited download", func(t *testing.T) {
		g := &fakeGallery{downloadErr: &gallery.RateLimitError{StatusCode: 429, Status: "429 Too Many Requests"}}
		s := newManualStrategy(t, baseParams(root), g, nil)
		_, err := s.Run(context.Background(), baseEnv(root))
		var rerr *resolver.Error
		if !errors.As(err, &rerr) || rerr.Kind != resolver.KindNetwork {
			t.Fatalf("expected network, got: %v", err)
		}
		if !strings.Contains(err.Error(), "download VMware.PowerCLI 13.2.1") {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestManualRunBadArchive(t *testing.T) {
	root := t.TempDir()
	g := &fakeGallery{badArchive: true}
	s := newManualStrategy(t, baseParams(root), g, nil)

	_, err := s.Run(context.Background(), baseEnv(root))
	var rerr *resolver.Error
	if !errors.As(err, &rerr) || rerr.Kind != resolver.KindUnknown {
		t.Fatalf("expected unknown kind, got: %v", err)
	}
	if !strings.Contains(err.Error(), "extract VMware.PowerCLI 13.2.1") {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "VMware.PowerCLI")); !os.IsNotExist(err) {
		t.Fatalf("nothing should reach the destination: %v", err)
	}
}

func TestManualRunReplaceDeclined(t *testing.T) {
	root := t.TempDir()
	params := baseParams(root)
	params.Version = ""
	existing := writeInstalled(t, root, params.Module, "13.2.1")
	prompter := &fakePrompter{accept: false}
	s := newManualStrategy(t, params, &fakeGallery{}, prompter)

	dir, err := s.Run(context.Background(), baseEnv(root))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if dir != existing {
		t.Fatalf("expected existing dir %s, got %s", existing, dir)
	}
	if prompter.calls != 1 {
		t.Fatalf("expected 1 prompt, got %d", prompter.calls)
	}
	if prompter.gotPath != existing {
		t.Fatalf("prompt should name %s, got %s", existing, prompter.gotPath)
	}
	if _, err := os.Stat(filepath.Join(existing, "net")); !os.IsNotExist(err) {
		t.Fatalf("existing tree must be untouched: %v", err)
	}
}

func TestManualRunReplaceAccepted(t *testing.T) {
	root := t.TempDir()
	params := baseParams(root)
	params.Version = ""
	existing := writeInstalled(t, root, params.Module, "13.2.1")
	prompter := &fakePrompter{accept: true}
	s := newManualStrategy(t, params, &fakeGallery{}, prompter)

	dir, err := s.Run(context.Background(), baseEnv(root))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if dir != existing {
		t.Fatalf("expected %s, got %s", existing, dir)
	}
	if !strings.Contains(prompter.preview, "installed tree:") {
		t.Fatalf("expected preview summary, got %q", prompter.preview)
	}
	if _, err := os.Stat(filepath.Join(dir, "net", "VMware.Binding.dll")); err != nil {
		t.Fatalf("replacement tree missing payload: %v", err)
	}
}

func TestManualRunConflictWithoutPrompter(t *testing.T) {
	root := t.TempDir()
	params := baseParams(root)
	params.Version = ""
	writeInstalled(t, root, params.Module, "13.2.1")
	s := newManualStrategy(t, params, &fakeGallery{}, nil)

	_, err := s.Run(context.Background(), baseEnv(root))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "overwrite prompt is not configured") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestManualRunForceReplaces(t *testing.T) {
	root := t.TempDir()
	params := baseParams(root)
	params.Force = true
	writeInstalled(t, root, params.Module, "13.2.1")
	s := newManualStrategy(t, params, &fakeGallery{}, nil)

	dir, err := s.Run(context.Background(), baseEnv(root))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "net", "VMware.Binding.dll")); err != nil {
		t.Fatalf("forced replacement missing payload: %v", err)
	}
}

func TestManualRollback(t *testing.T) {
	root := t.TempDir()
	s := newManualStrategy(t, baseParams(root), &fakeGallery{}, nil)

	if err := s.Rollback(context.Background()); err != nil {
		t.Fatalf("rollback with nothing recorded: %v", err)
	}

	leftover := writeInstalled(t, root, "VMware.PowerCLI", "13.2.1")
	s.rollbackDir = leftover
	if err := s.Rollback(context.Background()); err != nil {
		t.Fatalf("Rollback error: %v", err)
	}
	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Fatalf("leftover dir should be removed: %v", err)
	}
	if s.rollbackDir != "" {
		t.Fatalf("rollback dir should reset")
	}
}
