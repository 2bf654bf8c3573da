// Package featureflags evaluates runtime toggles configured through FEATURE_FLAGS.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Flags known to the feed engine.
const (
	// PushNotifications gates push dispatch; in-app records are always persisted.
	PushNotifications = "push_notifications"
	// RealtimeInbox gates relaying persisted notifications to open websockets.
	RealtimeInbox = "realtime_inbox"
)

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "push_notifications=on,realtime_inbox=25%"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled returns whether a flag is enabled for a given doctor.
// Supported values are on/true/1, off/false/0 and N% (deterministic per-doctor rollout).
// Percentage rollouts are off for doctorID 0.
func (m *Manager) Enabled(name string, doctorID uint) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if doctorID == 0 {
		return false
	}
	return rolloutBucket(name, doctorID) < pct
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot evaluates every configured flag for a doctor.
func (m *Manager) Snapshot(doctorID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for k := range m.flags {
		out[k] = m.Enabled(k, doctorID)
	}
	return out
}

func rolloutBucket(name string, doctorID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), doctorID)))
	return int(h.Sum32() % 100)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
