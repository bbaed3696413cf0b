// Package testutil carries helpers shared by CLI and integration tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

// RunCommand executes a command under a throwaway root app and returns its
// captured output.
func RunCommand(t *testing.T, command *cli.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	setWriter(command, &out)
	app := &cli.Command{
		Name:     "warden",
		Writer:   &out,
		Commands: []*cli.Command{command},
	}

	fullArgs := append([]string{"warden", command.Name}, args...)
	err := app.Run(context.Background(), fullArgs)
	return out.String(), err
}

// setWriter points command and all its subcommands at w, since cli v3 does
// not inherit Writer from the root command.
func setWriter(command *cli.Command, w io.Writer) {
	command.Writer = w
	for _, sub := range command.Commands {
		setWriter(sub, w)
	}
}

// WriteConfig writes a warden.yaml into dir and returns its path.
func WriteConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "warden.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
