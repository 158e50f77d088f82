// Package probe captures a read-only snapshot of the host before an install
// run: which PowerShell package clients exist, which module paths are
// writable, whether the gallery is reachable, and whether the process is
// elevated. Strategies consult the snapshot through their preconditions; it
// is taken once per run and not refreshed between attempts.
package probe

import "time"

// ClientID identifies a PowerShell package client implementation.
type ClientID string

const (
	// ClientResourceGet is the modern client (Microsoft.PowerShell.PSResourceGet).
	ClientResourceGet ClientID = "PSResourceGet"
	// ClientPowerShellGet is the classic client (PowerShellGet).
	ClientPowerShellGet ClientID = "PowerShellGet"
)

// clientModules maps each client to the module name Get-Module reports.
var clientModules = map[string]ClientID{
	"Microsoft.PowerShell.PSResourceGet": ClientResourceGet,
	"PowerShellGet":                      ClientPowerShellGet,
}

// Client is one package client discovered on the host.
type Client struct {
	ID      ClientID
	Version string
}

// ModulePath is one module search root with its writability.
type ModulePath struct {
	Dir      string
	Writable bool
}

// Environment is the snapshot handed to strategy preconditions. It is a
// plain value; nothing in it changes during a resolution run.
type Environment struct {
	// PwshPath is the resolved pwsh binary, or empty when not on PATH.
	PwshPath string
	// Clients holds detected package clients, modern client first.
	Clients []Client
	// ModulePaths lists candidate install roots in resolution order.
	ModulePaths []ModulePath
	// PSModulePath is the raw search path the snapshot was derived from.
	PSModulePath string
	// NetworkOK reports whether the gallery answered a reachability check.
	NetworkOK bool
	// Elevated reports whether the process runs with effective uid 0.
	Elevated bool
	ProbedAt time.Time
}

// HasClient reports whether a client with the given id was detected.
func (e Environment) HasClient(id ClientID) bool {
	_, ok := e.Client(id)
	return ok
}

// Client returns the detected client with the given id.
func (e Environment) Client(id ClientID) (Client, bool) {
	for _, c := range e.Clients {
		if c.ID == id {
			return c, true
		}
	}
	return Client{}, false
}

// PathDirs returns the module path directories in order.
func (e Environment) PathDirs() []string {
	dirs := make([]string, len(e.ModulePaths))
	for i, p := range e.ModulePaths {
		dirs[i] = p.Dir
	}
	return dirs
}
