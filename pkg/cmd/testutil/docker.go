package testutil

import (
	"os/exec"
	"testing"
)

// SkipIfNoDocker skips the test when Docker is not available, so container
// backed integration tests stay optional.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("Docker not available")
	}

	if err := exec.CommandContext(t.Context(), "docker", "ps").Run(); err != nil {
		t.Skip("Docker daemon not running")
	}
}
