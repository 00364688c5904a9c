//go:build linux

package sysproxy

import (
	"fmt"
	"os/exec"
	"strings"
)

type linuxManager struct {
	run func(name string, args ...string) error
}

func newPlatform() Manager {
	return &linuxManager{
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

func (m *linuxManager) Enable(host string, port int) error {
	if _, err := exec.LookPath("gsettings"); err != nil {
		return ErrUnsupported
	}
	return runAll(m.run, gsettingsCommands(host, port, true))
}

func (m *linuxManager) Disable() error {
	if _, err := exec.LookPath("gsettings"); err != nil {
		return ErrUnsupported
	}
	return runAll(m.run, gsettingsCommands("", 0, false))
}

func (m *linuxManager) Current() (Settings, error) {
	if _, err := exec.LookPath("gsettings"); err != nil {
		return Settings{}, ErrUnsupported
	}
	mode, err := gsettingsGet("org.gnome.system.proxy", "mode")
	if err != nil {
		return Settings{}, err
	}
	st := Settings{Enabled: mode == "manual"}
	host, err := gsettingsGet("org.gnome.system.proxy.http", "host")
	if err != nil {
		return st, nil
	}
	port, err := gsettingsGet("org.gnome.system.proxy.http", "port")
	if err != nil || host == "" {
		return st, nil
	}
	st.Server = host + ":" + port
	return st, nil
}

func gsettingsGet(schema, key string) (string, error) {
	out, err := exec.Command("gsettings", "get", schema, key).Output()
	if err != nil {
		return "", fmt.Errorf("sysproxy: gsettings get %s %s: %w", schema, key, err)
	}
	return strings.Trim(strings.TrimSpace(string(out)), "'"), nil
}
