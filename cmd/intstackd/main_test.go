package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanverite/intstack/internal/node"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intstack.yaml")
	writeFile(t, path, "stack:\n  default_capacity: 8\napi:\n  listen: 127.0.0.1:9999\n")

	cfg, err := loadConfig([]string{
		"--config", path,
		"--capacity", "3",
		"--listen", "",
		"--no-hotplug",
	}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Stack.DefaultCapacity)
	assert.Empty(t, cfg.API.Listen)
	assert.False(t, cfg.Device.Hotplug)
}

func TestLoadConfigRejects(t *testing.T) {
	t.Setenv("INTSTACK_CONFIG", "")

	_, err := loadConfig([]string{"--capacity", "0"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = loadConfig([]string{"extra"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = loadConfig([]string{"--bogus"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunAttachesPresentDeviceAndTearsDown(t *testing.T) {
	dir := t.TempDir()
	sysfs := filepath.Join(dir, "sysfs")
	writeFile(t, filepath.Join(sysfs, "1-2", "idVendor"), "13fe\n")
	writeFile(t, filepath.Join(sysfs, "1-2", "idProduct"), "4300\n")

	nodeDir := filepath.Join(dir, "class")
	cfgPath := filepath.Join(dir, "intstack.yaml")
	writeFile(t, cfgPath, `
stack:
  default_capacity: 2
node:
  dir: `+nodeDir+`
device:
  sysfs_path: `+sysfs+`
  hotplug: false
api:
  listen: ""
log:
  level: error
`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"--config", cfgPath}, &bytes.Buffer{})
	}()

	nodePath := filepath.Join(nodeDir, node.DefaultName)
	require.Eventually(t, func() bool {
		_, err := os.Stat(nodePath)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	sess, err := node.NewClient(nodePath).Open(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.Push(ctx, 5))
	stat, err := sess.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, node.StatResult{Capacity: 2, Count: 1}, stat)
	require.NoError(t, sess.Close())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}

	_, err = os.Stat(nodeDir)
	assert.True(t, os.IsNotExist(err), "class directory should be removed")
}
