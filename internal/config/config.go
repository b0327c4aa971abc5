// Package config resolves the handful of settings the CLI and REPL
// entry points share: which back-end printer to use and what, if
// anything, to dump for debugging. It is deliberately thin — cobra
// already owns flag parsing; this package just gives the resolved
// values a single, testable home instead of scattering flag lookups
// across main packages.
package config

import "fmt"

// Backend selects which proof-obligation printer a run uses.
type Backend string

const (
	BackendWhyML  Backend = "whyml"
	BackendSMTLIB Backend = "smtlib"
)

// ParseBackend validates a user-supplied backend name.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendWhyML:
		return BackendWhyML, nil
	case BackendSMTLIB:
		return BackendSMTLIB, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want %q or %q)", s, BackendWhyML, BackendSMTLIB)
	}
}

// Config is the resolved set of run options for a single invocation.
type Config struct {
	Path     string
	Backend  Backend
	DumpAST  bool
	DumpCFG  bool
}

// New validates raw flag values into a Config.
func New(path, backend string, dumpAST, dumpCFG bool) (Config, error) {
	if path == "" {
		return Config{}, fmt.Errorf("no input file given")
	}
	b, err := ParseBackend(backend)
	if err != nil {
		return Config{}, err
	}
	return Config{Path: path, Backend: b, DumpAST: dumpAST, DumpCFG: dumpCFG}, nil
}
