package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/modpath"
	"github.com/openpcli/pcli-setup/internal/version"
)

// listClientsScript prints one "Name=Version" line per installed copy of the
// known package client modules. Plain lines avoid ConvertTo-Json's
// one-element quirks.
const listClientsScript = `Get-Module -ListAvailable -Name Microsoft.PowerShell.PSResourceGet, PowerShellGet | ForEach-Object { '{0}={1}' -f $_.Name, $_.Version }`

// pingTimeout bounds the gallery reachability check so a black-holed route
// does not stall the whole run.
const pingTimeout = 5 * time.Second

var timeNow = time.Now

// Pinger checks gallery reachability. *gallery.Client satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options adjust what a probe inspects.
type Options struct {
	// NoNetwork skips the gallery check and reports the network unavailable.
	NoNetwork bool
	// DestRoot, when set, heads the module path list regardless of
	// PSModulePath.
	DestRoot string
}

// Prober builds Environment snapshots.
type Prober struct {
	sys    System
	pinger Pinger
}

// New creates a Prober. pinger may be nil, in which case the network is
// reported unavailable.
func New(sys System, pinger Pinger) (*Prober, error) {
	if sys == nil {
		return nil, fmt.Errorf(messages.ProbeSystemRequired)
	}
	return &Prober{sys: sys, pinger: pinger}, nil
}

// Probe inspects the host and returns the snapshot strategies decide on.
// A missing pwsh or an unreachable gallery degrade the snapshot rather than
// failing it; only path resolution errors are fatal.
func (p *Prober) Probe(ctx context.Context, opts Options) (Environment, error) {
	env := Environment{ProbedAt: timeNow()}

	if path, err := p.sys.LookPath("pwsh"); err == nil {
		env.PwshPath = path
	}
	if env.PwshPath != "" {
		// Client listing failures leave the snapshot without clients;
		// the client strategies then skip and manual copy still runs.
		if clients, err := p.listClients(ctx, env.PwshPath); err == nil {
			env.Clients = clients
		}
	}

	env.PSModulePath = p.sys.Getenv("PSModulePath")
	roots, err := modpath.SearchRoots(env.PSModulePath)
	if err != nil {
		return Environment{}, err
	}
	if opts.DestRoot != "" {
		roots = append([]string{filepath.Clean(opts.DestRoot)}, dropString(roots, filepath.Clean(opts.DestRoot))...)
	}
	for _, root := range roots {
		env.ModulePaths = append(env.ModulePaths, ModulePath{
			Dir:      root,
			Writable: p.writableDir(root),
		})
	}
	if len(env.ModulePaths) == 0 {
		return Environment{}, fmt.Errorf(messages.ProbeModulePathEmpty)
	}

	env.Elevated = p.sys.Geteuid() == 0

	if !opts.NoNetwork && p.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		env.NetworkOK = p.pinger.Ping(pingCtx) == nil
	}

	return env, nil
}

// listClients runs pwsh once and parses its Name=Version lines. Multiple
// installed versions of the same client collapse to the highest.
func (p *Prober) listClients(ctx context.Context, pwshPath string) ([]Client, error) {
	out, err := p.sys.CommandOutput(ctx, pwshPath, "-NoProfile", "-NonInteractive", "-Command", listClientsScript)
	if err != nil {
		return nil, fmt.Errorf(messages.ProbeListClientsFmt, err)
	}

	best := make(map[ClientID]string)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, ver, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		id, known := clientModules[strings.TrimSpace(name)]
		if !known {
			continue
		}
		ver = strings.TrimSpace(ver)
		if current, ok := best[id]; ok {
			if cmp, err := version.Compare(ver, current); err != nil || cmp <= 0 {
				continue
			}
		}
		best[id] = ver
	}

	var clients []Client
	for _, id := range []ClientID{ClientResourceGet, ClientPowerShellGet} {
		if ver, ok := best[id]; ok {
			clients = append(clients, Client{ID: id, Version: ver})
		}
	}
	return clients, nil
}

// writableDir reports whether dir, or its nearest existing ancestor when dir
// does not exist yet, grants write access. Install paths are created on
// demand, so a missing leaf is fine as long as it can be created.
func (p *Prober) writableDir(dir string) bool {
	current := dir
	for {
		info, err := p.sys.Stat(current)
		if err == nil {
			if !info.IsDir() {
				return false
			}
			return p.sys.Access(current, unix.W_OK) == nil
		}
		if !os.IsNotExist(err) {
			return false
		}
		parent := filepath.Dir(current)
		if parent == current {
			return false
		}
		current = parent
	}
}

func dropString(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
