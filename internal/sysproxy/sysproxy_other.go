//go:build !windows && !darwin && !linux

package sysproxy

type unsupportedManager struct{}

func newPlatform() Manager { return unsupportedManager{} }

func (unsupportedManager) Enable(string, int) error   { return ErrUnsupported }
func (unsupportedManager) Disable() error             { return ErrUnsupported }
func (unsupportedManager) Current() (Settings, error) { return Settings{}, ErrUnsupported }
