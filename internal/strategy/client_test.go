package strategy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openpcli/pcli-setup/internal/modpath"
	"github.com/openpcli/pcli-setup/internal/probe"
	"github.com/openpcli/pcli-setup/internal/resolver"
	"github.com/openpcli/pcli-setup/internal/source"
)

type fakeInstaller struct {
	err       error
	calls     int
	gotClient probe.ClientID
	gotReq    source.InstallRequest
	onInstall func()
}

func (f *fakeInstaller) Install(ctx context.Context, client probe.ClientID, req source.InstallRequest) error {
	f.calls++
	f.gotClient = client
	f.gotReq = req
	if f.onInstall != nil {
		f.onInstall()
	}
	return f.err
}

func newClientStrategy(name string, client probe.ClientID, params Params, installer Installer) *clientStrategy {
	return &clientStrategy{name: name, client: client, params: params, installer: installer}
}

func TestClientPrecondition(t *testing.T) {
	root := t.TempDir()

	cases := []struct {
		name       string
		env        func(probe.Environment) probe.Environment
		params     func(Params) Params
		wantOK     bool
		wantReason string
	}{
		{
			name:   "all requirements met",
			env:    func(e probe.Environment) probe.Environment { return e },
			params: func(p Params) Params { return p },
			wantOK: true,
		},
		{
			name: "pwsh missing",
			env: func(e probe.Environment) probe.Environment {
				e.PwshPath = ""
				return e
			},
			params:     func(p Params) Params { return p },
			wantReason: "pwsh interpreter not found",
		},
		{
			name: "client missing",
			env: func(e probe.Environment) probe.Environment {
				e.Clients = []probe.Client{{ID: probe.ClientPowerShellGet}}
				return e
			},
			params:     func(p Params) Params { return p },
			wantReason: "package client PSResourceGet not present",
		},
		{
			name: "network unavailable",
			env: func(e probe.Environment) probe.Environment {
				e.NetworkOK = false
				return e
			},
			params:     func(p Params) Params { return p },
			wantReason: "network unavailable",
		},
		{
			name: "custom destination",
			env:  func(e probe.Environment) probe.Environment { return e },
			params: func(p Params) Params {
				p.DestOverridden = true
				return p
			},
			wantReason: "cannot target a custom destination",
		},
		{
			name: "allusers without elevation",
			env:  func(e probe.Environment) probe.Environment { return e },
			params: func(p Params) Params {
				p.Scope = modpath.ScopeAllUsers
				return p
			},
			wantReason: "requires elevation",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newClientStrategy("resource-client", probe.ClientResourceGet, tc.params(baseParams(root)), &fakeInstaller{})
			ok, reason := s.Precondition(tc.env(baseEnv(root)))
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%v, got %v (%s)", tc.wantOK, ok, reason)
			}
			if !tc.wantOK && !strings.Contains(reason, tc.wantReason) {
				t.Fatalf("expected reason %q, got %q", tc.wantReason, reason)
			}
		})
	}
}

func TestClientPreconditionElevatedAllUsers(t *testing.T) {
	root := t.TempDir()
	params := baseParams(root)
	params.Scope = modpath.ScopeAllUsers
	env := baseEnv(root)
	env.Elevated = true

	s := newClientStrategy("resource-client", probe.ClientResourceGet, params, &fakeInstaller{})
	if ok, reason := s.Precondition(env); !ok {
		t.Fatalf("expected pass, got %q", reason)
	}
}

func TestClientRunInstallsAndVerifies(t *testing.T) {
	root := t.TempDir()
	params := baseParams(root)
	installer := &fakeInstaller{}
	installer.onInstall = func() {
		writeInstalled(t, root, params.Module, params.Version)
	}

	s := newClientStrategy("resource-client", probe.ClientResourceGet, params, installer)
	dir, err := s.Run(context.Background(), baseEnv(root))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if installer.calls != 1 {
		t.Fatalf("expected 1 install call, got %d", installer.calls)
	}
	if installer.gotClient != probe.ClientResourceGet {
		t.Fatalf("unexpected client %q", installer.gotClient)
	}
	req := installer.gotReq
	if req.Module != params.Module || req.Version != params.Version || req.Repository != "PSGallery" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Scope != modpath.ScopeCurrentUser {
		t.Fatalf("unexpected scope %q", req.Scope)
	}
	if !strings.HasSuffix(dir, "VMware.PowerCLI/13.2.1") {
		t.Fatalf("unexpected dir %q", dir)
	}
}

func TestClientRunAlreadyInstalledSkipsInstaller(t *testing.T) {
	root := t.TempDir()
	params := baseParams(root)
	want := writeInstalled(t, root, params.Module, params.Version)
	installer := &fakeInstaller{}

	s := newClientStrategy("resource-client", probe.ClientResourceGet, params, installer)
	dir, err := s.Run(context.Background(), baseEnv(root))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if dir != want {
		t.Fatalf("expected %s, got %s", want, dir)
	}
	if installer.calls != 0 {
		t.Fatalf("installer should not run, got %d calls", installer.calls)
	}
}

func TestClientRunLatestVerifiesNewest(t *testing.T) {
	root := t.TempDir()
	params := baseParams(root)
	params.Version = ""
	installer := &fakeInstaller{}
	installer.onInstall = func() {
		writeInstalled(t, root, params.Module, "12.7.0")
		writeInstalled(t, root, params.Module, "13.2.1")
	}

	s := newClientStrategy("resource-client", probe.ClientResourceGet, params, installer)
	dir, err := s.Run(context.Background(), baseEnv(root))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !strings.HasSuffix(dir, "13.2.1") {
		t.Fatalf("expected newest version dir, got %q", dir)
	}
	if installer.gotReq.Version != "" {
		t.Fatalf("latest install should not pin a version, got %q", installer.gotReq.Version)
	}
}

func TestClientRunClassifiesFailures(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantKind resolver.Kind
	}{
		{
			name: "module not found",
			err: &source.InstallError{
				Client:     probe.ClientResourceGet,
				Module:     "VMware.PowerCLI",
				Repository: "PSGallery",
				ExitCode:   1,
				Reason:     source.ReasonNotFound,
			},
			wantKind: resolver.KindNotFound,
		},
		{
			name: "network failure",
			err: &source.InstallError{
				Client:     probe.ClientResourceGet,
				Module:     "VMware.PowerCLI",
				Repository: "PSGallery",
				ExitCode:   1,
				Reason:     source.ReasonNetwork,
			},
			wantKind: resolver.KindNetwork,
		},
		{
			name: "access denied",
			err: &source.InstallError{
				Client:     probe.ClientResourceGet,
				Module:     "VMware.PowerCLI",
				Repository: "PSGallery",
				ExitCode:   1,
				Reason:     source.ReasonAccessDenied,
			},
			wantKind: resolver.KindPermission,
		},
		{
			name: "untrusted repository",
			err: &source.InstallError{
				Client:     probe.ClientResourceGet,
				Module:     "VMware.PowerCLI",
				Repository: "PSGallery",
				ExitCode:   1,
				Reason:     source.ReasonUntrusted,
			},
			wantKind: resolver.KindUnknown,
		},
		{
			name:     "spawn failure",
			err:      errors.New("fork/exec /usr/bin/pwsh: no such file or directory"),
			wantKind: resolver.KindUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			s := newClientStrategy("resource-client", probe.ClientResourceGet, baseParams(root), &fakeInstaller{err: tc.err})
			_, err := s.Run(context.Background(), baseEnv(root))
			if err == nil {
				t.Fatalf("expected error")
			}
			var rerr *resolver.Error
			if !errors.As(err, &rerr) {
				t.Fatalf("expected typed error, got %T: %v", err, err)
			}
			if rerr.Kind != tc.wantKind {
				t.Fatalf("expected kind %s, got %s: %v", tc.wantKind, rerr.Kind, err)
			}
			if !strings.Contains(err.Error(), "install VMware.PowerCLI via PSResourceGet") {
				t.Fatalf("expected install context in error, got: %v", err)
			}
		})
	}
}

func TestClientRunVerifyFailure(t *testing.T) {
	root := t.TempDir()
	s := newClientStrategy("resource-client", probe.ClientResourceGet, baseParams(root), &fakeInstaller{})

	_, err := s.Run(context.Background(), baseEnv(root))
	if err == nil {
		t.Fatalf("expected error when the module never appears")
	}
	var rerr *resolver.Error
	if !errors.As(err, &rerr) || rerr.Kind != resolver.KindUnknown {
		t.Fatalf("expected unknown kind, got: %v", err)
	}
	if !strings.Contains(err.Error(), "not visible under any module path") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientRollbackIsNoop(t *testing.T) {
	s := newClientStrategy("resource-client", probe.ClientResourceGet, baseParams(t.TempDir()), &fakeInstaller{})
	if err := s.Rollback(context.Background()); err != nil {
		t.Fatalf("Rollback error: %v", err)
	}
}
