package main

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanverite/intstack/internal/core"
	"github.com/sanverite/intstack/internal/node"
)

func startNode(t *testing.T, capacity int) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := core.NewService(core.ServiceOptions{DefaultCapacity: capacity, Logger: logger})
	reg := node.NewRegistrar(node.RegistrarOptions{
		Dir:    filepath.Join(t.TempDir(), "class"),
		Logger: logger,
		NewServer: func() *node.Server {
			return node.NewStackServer(svc, node.ServerOptions{Logger: logger})
		},
	})
	require.NoError(t, reg.CreateClass())
	require.NoError(t, reg.CreateNode())
	t.Cleanup(func() {
		reg.DestroyNode()
		reg.DestroyClass()
	})
	return reg.NodePath()
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(nodePath string, args ...string) result {
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--node", nodePath}, args...), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestCLIScenario(t *testing.T) {
	path := startNode(t, 10)

	r := runCLI(path, "pop")
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Equal(t, "NULL\n", r.stdout)

	r = runCLI(path, "unwind")
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Equal(t, "NULL\n", r.stdout)

	require.Equal(t, exitOK, runCLI(path, "set-size", "2").code)
	require.Equal(t, exitOK, runCLI(path, "push", "1").code)
	require.Equal(t, exitOK, runCLI(path, "push", "-5").code)

	r = runCLI(path, "push", "3")
	assert.Equal(t, exitFull, r.code)
	assert.Equal(t, "ERROR: stack is full\n", r.stderr)

	r = runCLI(path, "unwind")
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Equal(t, "-5 1\n", r.stdout)

	require.Equal(t, exitOK, runCLI(path, "push", "7").code)
	r = runCLI(path, "pop")
	require.Equal(t, exitOK, r.code)
	assert.Equal(t, "7\n", r.stdout)
}

func TestCLIUsageErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "int_stack")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no verb", nil, "Usage:"},
		{"unknown verb", []string{"peek"}, "unknown command: peek"},
		{"set-size missing", []string{"set-size"}, "requires a size parameter"},
		{"set-size zero", []string{"set-size", "0"}, "size should be > 0"},
		{"set-size negative", []string{"set-size", "-3"}, "size should be > 0"},
		{"set-size trailing", []string{"set-size", "12abc"}, "size should be > 0"},
		{"push missing", []string{"push"}, "requires a value parameter"},
		{"push overflow", []string{"push", "4294967296"}, "32-bit integer"},
		{"pop extra", []string{"pop", "1"}, "takes no arguments"},
		{"bad flag", []string{"--bogus", "pop"}, "unknown flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runCLI(path, tt.args...)
			assert.Equal(t, exitUsage, r.code)
			assert.Contains(t, r.stderr, tt.want)
			assert.Empty(t, r.stdout)
		})
	}
}

func TestCLIDeviceNotPresent(t *testing.T) {
	r := runCLI(filepath.Join(t.TempDir(), "int_stack"), "pop")
	assert.Equal(t, exitNotPresent, r.code)
	assert.True(t, strings.HasPrefix(r.stderr, "ERROR: device not present"), r.stderr)
}

func TestCLIHelp(t *testing.T) {
	var stdout bytes.Buffer
	code := run([]string{"--help"}, &stdout, io.Discard)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "set-size <size>")
}
