//go:build windows

package sysproxy

import (
	"fmt"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const internetSettingsKey = `Software\Microsoft\Windows\CurrentVersion\Internet Settings`

// WinINet option codes for InternetSetOption.
const (
	internetOptionSettingsChanged = 39
	internetOptionRefresh         = 37
)

type windowsManager struct{}

func newPlatform() Manager { return windowsManager{} }

func (windowsManager) Enable(host string, port int) error {
	k, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("sysproxy: open registry key: %w", err)
	}
	defer k.Close()

	if err := k.SetDWordValue("ProxyEnable", 1); err != nil {
		return fmt.Errorf("sysproxy: set ProxyEnable: %w", err)
	}
	if err := k.SetStringValue("ProxyServer", joinHostPort(host, port)); err != nil {
		return fmt.Errorf("sysproxy: set ProxyServer: %w", err)
	}
	refreshWinINet()
	return nil
}

func (windowsManager) Disable() error {
	k, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("sysproxy: open registry key: %w", err)
	}
	defer k.Close()

	if err := k.SetDWordValue("ProxyEnable", 0); err != nil {
		return fmt.Errorf("sysproxy: clear ProxyEnable: %w", err)
	}
	refreshWinINet()
	return nil
}

func (windowsManager) Current() (Settings, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKey, registry.QUERY_VALUE)
	if err != nil {
		return Settings{}, fmt.Errorf("sysproxy: open registry key: %w", err)
	}
	defer k.Close()

	var st Settings
	if v, _, err := k.GetIntegerValue("ProxyEnable"); err == nil {
		st.Enabled = v != 0
	}
	if v, _, err := k.GetStringValue("ProxyServer"); err == nil {
		st.Server = v
	}
	return st, nil
}

// refreshWinINet tells running WinINet consumers (IE engine, WebView) that
// the proxy settings changed. Best effort: the registry write already took,
// processes started afterwards pick it up regardless.
func refreshWinINet() {
	wininet := windows.NewLazySystemDLL("wininet.dll")
	proc := wininet.NewProc("InternetSetOptionW")
	if err := proc.Find(); err != nil {
		return
	}
	proc.Call(0, internetOptionSettingsChanged, 0, 0)
	proc.Call(0, internetOptionRefresh, 0, 0)
}
