package stack

import (
	"fmt"
	"os"
)

// BootstrapScript is the startup script injected verbatim into each
// fleet instance as user data. It is an external collaborator: its
// content is not interpreted here, only carried.
type BootstrapScript struct {
	Path    string
	Content string
}

// LoadBootstrapScript reads the bootstrap script from disk. The read is
// deliberately eager and happens before any resource is created: a
// missing or unreadable script fails the whole provisioning run up
// front rather than leaving a half-built stack.
func LoadBootstrapScript(path string) (*BootstrapScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load bootstrap script %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("bootstrap script %s is empty", path)
	}
	return &BootstrapScript{Path: path, Content: string(data)}, nil
}
