package repl

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempModule(t *testing.T, source string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.bpf")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestStartLoadsAndPrintsWhyML(t *testing.T) {
	path := writeTempModule(t, "mov r0, 0\nexit\n")

	var out bytes.Buffer
	in := strings.NewReader(":load " + path + "\n:quit\n")

	Start(in, &out)

	assert.Contains(t, out.String(), "goal")
}

func TestStartSwitchesBackend(t *testing.T) {
	path := writeTempModule(t, "mov r0, 0\nexit\n")

	var out bytes.Buffer
	in := strings.NewReader(":backend smtlib\n:load " + path + "\n:quit\n")

	Start(in, &out)

	assert.Contains(t, out.String(), "assert")
}

func TestStartReportsParseError(t *testing.T) {
	path := writeTempModule(t, "mov r0\nexit\n")

	var out bytes.Buffer
	in := strings.NewReader(":load " + path + "\n:quit\n")

	Start(in, &out)

	assert.NotEmpty(t, out.String())
}

func TestStartRejectsUnknownBackend(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader(":backend cvc5\n:quit\n")

	Start(in, &out)

	assert.Contains(t, out.String(), "unknown backend")
}
