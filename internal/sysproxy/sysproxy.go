// Package sysproxy toggles the operating system's HTTP/HTTPS proxy settings
// so that browser traffic flows through the local SOCKS listener.
//
// Each platform gets its own implementation behind the Manager interface:
// the Internet Settings registry key on Windows, networksetup on macOS and
// GNOME gsettings on Linux. Changing the system proxy is always a separate,
// explicit action from starting the tunnel; the tunnel never flips it
// implicitly.
package sysproxy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupported is returned on platforms with no known proxy mechanism.
var ErrUnsupported = errors.New("sysproxy: no system proxy support on this platform")

// Settings is the observed state of the OS proxy configuration.
type Settings struct {
	Enabled bool
	Server  string
}

// Manager changes the OS proxy configuration.
type Manager interface {
	// Enable points the system HTTP and HTTPS proxy at host:port.
	Enable(host string, port int) error
	// Disable turns the system proxy off, leaving the stored server alone
	// where the platform keeps one.
	Disable() error
	// Current reports the present proxy state.
	Current() (Settings, error)
}

// New returns the Manager for the running platform.
func New() Manager {
	return newPlatform()
}

func joinHostPort(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}

// networksetupCommands builds the macOS command sequence. networksetup has
// no single on/off switch covering both protocols, so enable and disable
// are each a pair of invocations per protocol state.
func networksetupCommands(service, host string, port int, enable bool) [][]string {
	if !enable {
		return [][]string{
			{"networksetup", "-setwebproxystate", service, "off"},
			{"networksetup", "-setsecurewebproxystate", service, "off"},
		}
	}
	p := strconv.Itoa(port)
	return [][]string{
		{"networksetup", "-setwebproxy", service, host, p},
		{"networksetup", "-setsecurewebproxy", service, host, p},
		{"networksetup", "-setwebproxystate", service, "on"},
		{"networksetup", "-setsecurewebproxystate", service, "on"},
	}
}

// gsettingsCommands builds the GNOME command sequence. Disabling only resets
// the mode; host and port stay stored for the next enable.
func gsettingsCommands(host string, port int, enable bool) [][]string {
	if !enable {
		return [][]string{
			{"gsettings", "set", "org.gnome.system.proxy", "mode", "none"},
		}
	}
	p := strconv.Itoa(port)
	return [][]string{
		{"gsettings", "set", "org.gnome.system.proxy", "mode", "manual"},
		{"gsettings", "set", "org.gnome.system.proxy.http", "host", host},
		{"gsettings", "set", "org.gnome.system.proxy.http", "port", p},
		{"gsettings", "set", "org.gnome.system.proxy.https", "host", host},
		{"gsettings", "set", "org.gnome.system.proxy.https", "port", p},
	}
}

// parseWebProxyOutput reads the key/value report printed by
// `networksetup -getwebproxy`.
func parseWebProxyOutput(out string) Settings {
	var st Settings
	host, port := "", ""
	for _, line := range strings.Split(out, "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.TrimSpace(key) {
		case "Enabled":
			st.Enabled = val == "Yes"
		case "Server":
			host = val
		case "Port":
			port = val
		}
	}
	if host != "" {
		st.Server = host
		if port != "" && port != "0" {
			st.Server = host + ":" + port
		}
	}
	return st
}

func runAll(run func(name string, args ...string) error, cmds [][]string) error {
	for _, c := range cmds {
		if err := run(c[0], c[1:]...); err != nil {
			return fmt.Errorf("sysproxy: %s failed: %w", c[0], err)
		}
	}
	return nil
}
