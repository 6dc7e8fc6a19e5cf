package supervisor

import "strings"

// ValidName reports whether name is a legal application or process name:
// non-empty and free of path separators. Callers that receive an invalid
// name from a client must treat it as a client-protocol violation (§7),
// not surface it as a result code.
func ValidName(name string) bool {
	return name != "" && !strings.Contains(name, "/")
}

// LabelSource resolves a PID to the application name encoded in its
// security label. Implementations must be safe to call before the PID is
// reaped; reading the label after reap is undefined (§5).
//
// Concrete implementations live in internal/label; tests use a fake.
type LabelSource interface {
	Lookup(pid int) (name string, err error)
}

// appProcessLabelPrefix is stripped from a resolved label to obtain the
// bare application name. A label that does not carry this prefix does not
// belong to an application-owned process.
const appProcessLabelPrefix = "app."

// ResolveAppName implements §4.1's PID -> application name resolution. It
// wraps a LabelSource and translates its outcomes into the documented
// result codes.
func ResolveAppName(src LabelSource, pid int) (string, error) {
	label, err := src.Lookup(pid)
	if err != nil {
		return "", ErrLookupFailed
	}
	if !strings.HasPrefix(label, appProcessLabelPrefix) {
		return "", ErrNotAppProcess
	}
	name := strings.TrimPrefix(label, appProcessLabelPrefix)
	if !ValidName(name) {
		return "", ErrNotAppProcess
	}
	return name, nil
}
