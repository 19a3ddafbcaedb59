// Package syncmode decides where records live: the local file, the remote
// document store, or both.
package syncmode

import "fmt"

// Mode is the persisted sync strategy.
type Mode int

const (
	LocalOnly Mode = iota
	RemoteOnly
	RemoteFirstWithLocalFallback
	BidirectionalSync
)

var modeNames = map[Mode]string{
	LocalOnly:                    "local_only",
	RemoteOnly:                   "remote_only",
	RemoteFirstWithLocalFallback: "remote_first",
	BidirectionalSync:            "bidirectional",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode is the inverse of String.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown sync mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if _, ok := modeNames[m]; !ok {
		return nil, fmt.Errorf("unknown sync mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Remote reports whether the mode ever routes to the remote store.
func (m Mode) Remote() bool {
	return m != LocalOnly
}

// FromFlags maps the two persisted booleans to a mode. Both flags set maps
// to RemoteFirstWithLocalFallback; BidirectionalSync is told apart by the
// separate strategy key.
func FromFlags(useFirebase, useOfflineCache bool) Mode {
	switch {
	case !useFirebase:
		return LocalOnly
	case !useOfflineCache:
		return RemoteOnly
	default:
		return RemoteFirstWithLocalFallback
	}
}

// Flags is the inverse of FromFlags for the persisted booleans.
func (m Mode) Flags() (useFirebase, useOfflineCache bool) {
	switch m {
	case LocalOnly:
		return false, true
	case RemoteOnly:
		return true, false
	default:
		return true, true
	}
}
