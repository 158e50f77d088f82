package doctor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openpcli/pcli-setup/internal/config"
	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/modpath"
	"github.com/openpcli/pcli-setup/internal/probe"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

type fakeResolver struct {
	latest string
	err    error
}

func (r fakeResolver) Latest(ctx context.Context, name string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.latest, nil
}

func writeModule(t *testing.T, root string, name string, ver string) {
	t.Helper()
	dir := filepath.Join(root, name, ver)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	manifest := "@{ ModuleVersion = '" + ver + "' }\n"
	if err := os.WriteFile(filepath.Join(dir, name+".psd1"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestCheckInterpreter(t *testing.T) {
	results := CheckInterpreter(probe.Environment{})
	if len(results) != 1 || results[0].Status != StatusFail {
		t.Fatalf("expected single failure, got %v", results)
	}
	if results[0].Recommendation == "" {
		t.Fatal("expected a recommendation for missing pwsh")
	}

	results = CheckInterpreter(probe.Environment{PwshPath: "/usr/bin/pwsh"})
	if len(results) != 1 || results[0].Status != StatusOK {
		t.Fatalf("expected OK, got %v", results)
	}
	if !strings.Contains(results[0].Message, "/usr/bin/pwsh") {
		t.Fatalf("message should name the binary: %q", results[0].Message)
	}

	results = CheckInterpreter(probe.Environment{PwshPath: "/usr/bin/pwsh", Elevated: true})
	if !strings.Contains(results[0].Message, "elevated") {
		t.Fatalf("expected elevation note: %q", results[0].Message)
	}
}

func TestCheckClients(t *testing.T) {
	results := CheckClients(probe.Environment{})
	if len(results) != 1 || results[0].Status != StatusWarn {
		t.Fatalf("expected single warning, got %v", results)
	}
	if results[0].Message != messages.DoctorNoClients {
		t.Fatalf("unexpected message: %q", results[0].Message)
	}

	env := probe.Environment{Clients: []probe.Client{
		{ID: probe.ClientResourceGet, Version: "1.1.1"},
		{ID: probe.ClientPowerShellGet, Version: "2.2.5"},
	}}
	results = CheckClients(env)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %v", results)
	}
	for _, r := range results {
		if r.Status != StatusOK {
			t.Fatalf("expected OK results, got %v", results)
		}
	}

	env = probe.Environment{Clients: []probe.Client{{ID: probe.ClientPowerShellGet, Version: "2.2.5"}}}
	results = CheckClients(env)
	if len(results) != 2 {
		t.Fatalf("expected found + legacy warning, got %v", results)
	}
	if results[1].Status != StatusWarn || results[1].Message != messages.DoctorLegacyOnly {
		t.Fatalf("expected legacy warning last, got %v", results[1])
	}
}

func TestCheckModulePaths(t *testing.T) {
	env := probe.Environment{ModulePaths: []probe.ModulePath{
		{Dir: "/a", Writable: true},
		{Dir: "/b", Writable: false},
		{Dir: "/c", Writable: true},
	}}
	results := CheckModulePaths(env, modpath.ScopeCurrentUser)
	if len(results) != 2 {
		t.Fatalf("expected 2 writable results, got %v", results)
	}
	if !strings.Contains(results[0].Message, "/a") || !strings.Contains(results[1].Message, "/c") {
		t.Fatalf("unexpected messages: %v", results)
	}

	env = probe.Environment{ModulePaths: []probe.ModulePath{{Dir: "/b", Writable: false}}}
	results = CheckModulePaths(env, modpath.ScopeCurrentUser)
	if len(results) != 1 || results[0].Status != StatusFail {
		t.Fatalf("expected failure, got %v", results)
	}
	if !strings.Contains(results[0].Recommendation, "--dest") {
		t.Fatalf("expected a --dest hint: %q", results[0].Recommendation)
	}
}

func TestCheckGallery(t *testing.T) {
	ctx := context.Background()

	r := CheckGallery(ctx, fakePinger{}, "https://example.test/v3", false)
	if r.Status != StatusOK || !strings.Contains(r.Message, "https://example.test/v3") {
		t.Fatalf("expected reachable, got %v", r)
	}

	r = CheckGallery(ctx, fakePinger{err: errors.New("connection refused")}, "https://example.test/v3", false)
	if r.Status != StatusFail || !strings.Contains(r.Message, "connection refused") {
		t.Fatalf("expected failure, got %v", r)
	}
	if r.Recommendation == "" {
		t.Fatal("expected a recommendation for an unreachable gallery")
	}

	r = CheckGallery(ctx, fakePinger{}, "https://example.test/v3", true)
	if r.Status != StatusWarn || r.Message != messages.DoctorGallerySkipped {
		t.Fatalf("expected skip, got %v", r)
	}

	r = CheckGallery(ctx, nil, "https://example.test/v3", false)
	if r.Status != StatusWarn {
		t.Fatalf("expected skip without pinger, got %v", r)
	}
}

func TestCheckConfigFile(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		results, cfg := CheckConfigFile(filepath.Join(t.TempDir(), "config.toml"))
		if len(results) != 1 || results[0].Status != StatusOK {
			t.Fatalf("expected OK, got %v", results)
		}
		if results[0].Message != messages.DoctorConfigDefaultsInUse {
			t.Fatalf("unexpected message: %q", results[0].Message)
		}
		if cfg == nil || cfg.Module.Name != config.DefaultModule {
			t.Fatalf("expected default config, got %+v", cfg)
		}
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := "[gallery]\ntimeout_seconds = 10\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		results, cfg := CheckConfigFile(path)
		if len(results) != 1 || results[0].Status != StatusOK {
			t.Fatalf("expected OK, got %v", results)
		}
		if cfg.Gallery.TimeoutSeconds != 10 {
			t.Fatalf("expected parsed config, got %+v", cfg)
		}
	})

	t.Run("validation error falls back to repaired config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := "[gallery]\ntimeout_seconds = -5\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		results, cfg := CheckConfigFile(path)
		if len(results) != 1 || results[0].Status != StatusFail {
			t.Fatalf("expected failure, got %v", results)
		}
		if !strings.Contains(results[0].Message, "Failed to load configuration") {
			t.Fatalf("unexpected message: %q", results[0].Message)
		}
		if cfg == nil {
			t.Fatal("expected a repaired config")
		}
		if cfg.Gallery.TimeoutSeconds <= 0 {
			t.Fatalf("repair should reset the timeout, got %d", cfg.Gallery.TimeoutSeconds)
		}
	})

	t.Run("unknown keys get a detailed recommendation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := "[install]\n\"trust-repository\" = true\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		results, _ := CheckConfigFile(path)
		if len(results) != 1 || results[0].Status != StatusFail {
			t.Fatalf("expected failure, got %v", results)
		}
		if !strings.Contains(results[0].Message, "unrecognized config keys: install.trust-repository") {
			t.Fatalf("unexpected message: %q", results[0].Message)
		}
		if !strings.Contains(results[0].Recommendation, "did you mean install.trust_repository?") {
			t.Fatalf("expected a rename suggestion, got %q", results[0].Recommendation)
		}
	})

	t.Run("syntax error cannot recover", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("module = {"), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		results, cfg := CheckConfigFile(path)
		if len(results) != 1 || results[0].Status != StatusFail {
			t.Fatalf("expected failure, got %v", results)
		}
		if cfg != nil {
			t.Fatalf("expected nil config, got %+v", cfg)
		}
	})
}

func TestCheckModule(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	envWith := func(roots ...string) probe.Environment {
		env := probe.Environment{NetworkOK: true}
		for _, r := range roots {
			env.ModulePaths = append(env.ModulePaths, probe.ModulePath{Dir: r, Writable: true})
		}
		return env
	}

	t.Run("not installed", func(t *testing.T) {
		results := CheckModule(ctx, envWith(t.TempDir()), cfg, fakeResolver{latest: "13.2.1"})
		if len(results) != 1 || results[0].Status != StatusWarn {
			t.Fatalf("expected warning, got %v", results)
		}
		if results[0].Recommendation != messages.DoctorModuleMissingRec {
			t.Fatalf("unexpected recommendation: %q", results[0].Recommendation)
		}
	})

	t.Run("up to date", func(t *testing.T) {
		root := t.TempDir()
		writeModule(t, root, cfg.Module.Name, "13.2.1")
		results := CheckModule(ctx, envWith(root), cfg, fakeResolver{latest: "13.2.1"})
		if len(results) != 1 || results[0].Status != StatusOK {
			t.Fatalf("expected OK, got %v", results)
		}
		if !strings.Contains(results[0].Message, "up to date") {
			t.Fatalf("unexpected message: %q", results[0].Message)
		}
	})

	t.Run("outdated", func(t *testing.T) {
		root := t.TempDir()
		writeModule(t, root, cfg.Module.Name, "12.7.0")
		results := CheckModule(ctx, envWith(root), cfg, fakeResolver{latest: "13.2.1"})
		if len(results) != 1 || results[0].Status != StatusWarn {
			t.Fatalf("expected warning, got %v", results)
		}
		if !strings.Contains(results[0].Message, "12.7.0") || !strings.Contains(results[0].Message, "13.2.1") {
			t.Fatalf("message should name both versions: %q", results[0].Message)
		}
		if !strings.Contains(results[0].Recommendation, "13.2.1") {
			t.Fatalf("recommendation should name the upgrade: %q", results[0].Recommendation)
		}
	})

	t.Run("newest across roots wins", func(t *testing.T) {
		rootA := t.TempDir()
		rootB := t.TempDir()
		writeModule(t, rootA, cfg.Module.Name, "12.7.0")
		writeModule(t, rootB, cfg.Module.Name, "13.2.1")
		results := CheckModule(ctx, envWith(rootA, rootB), cfg, fakeResolver{latest: "13.2.1"})
		if len(results) != 1 || results[0].Status != StatusOK {
			t.Fatalf("expected OK for newest install, got %v", results)
		}
	})

	t.Run("latest unknown", func(t *testing.T) {
		root := t.TempDir()
		writeModule(t, root, cfg.Module.Name, "13.2.1")
		results := CheckModule(ctx, envWith(root), cfg, fakeResolver{err: errors.New("boom")})
		if len(results) != 1 || results[0].Status != StatusWarn {
			t.Fatalf("expected warning, got %v", results)
		}
		if !strings.Contains(results[0].Message, "latest unknown") {
			t.Fatalf("unexpected message: %q", results[0].Message)
		}
	})

	t.Run("network skipped", func(t *testing.T) {
		root := t.TempDir()
		writeModule(t, root, cfg.Module.Name, "13.2.1")
		env := envWith(root)
		env.NetworkOK = false
		results := CheckModule(ctx, env, cfg, fakeResolver{latest: "99.0.0"})
		if len(results) != 1 || results[0].Status != StatusOK {
			t.Fatalf("expected OK without version check, got %v", results)
		}
		if !strings.Contains(results[0].Message, "13.2.1 installed") {
			t.Fatalf("unexpected message: %q", results[0].Message)
		}
	})
}
