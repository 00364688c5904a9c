//go:build darwin

package sysproxy

import (
	"fmt"
	"os/exec"
)

// defaultService is the network service networksetup operates on. Laptops
// overwhelmingly route through Wi-Fi; a different setup needs a different
// service name here.
const defaultService = "Wi-Fi"

type darwinManager struct {
	service string
	run     func(name string, args ...string) error
}

func newPlatform() Manager {
	return &darwinManager{
		service: defaultService,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

func (m *darwinManager) Enable(host string, port int) error {
	return runAll(m.run, networksetupCommands(m.service, host, port, true))
}

func (m *darwinManager) Disable() error {
	return runAll(m.run, networksetupCommands(m.service, "", 0, false))
}

func (m *darwinManager) Current() (Settings, error) {
	out, err := exec.Command("networksetup", "-getwebproxy", m.service).Output()
	if err != nil {
		return Settings{}, fmt.Errorf("sysproxy: networksetup -getwebproxy: %w", err)
	}
	return parseWebProxyOutput(string(out)), nil
}
