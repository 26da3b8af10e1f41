package kernel

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kcore/console"
	"github.com/joshuapare/kcore/heap"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint64(heap.HeapStart), cfg.Heap.Start)
	assert.Equal(t, uint64(100*1024), cfg.Heap.Size)
	assert.Equal(t, "fixed", cfg.Heap.Strategy)
	assert.Equal(t, 100, cfg.Keyboard.QueueCapacity)
	assert.Equal(t, 100, cfg.Executor.ReadyCapacity)
}

func TestParseConfig_Overrides(t *testing.T) {
	data := []byte(`
heap:
  strategy: bump
  size: 65536
keyboard:
  queue_capacity: 32
  hotkeys:
    - key: n
      text: "name: kcore"
      fg: black
      bg: white
log:
  level: debug
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, "bump", cfg.Heap.Strategy)
	assert.Equal(t, uint64(65536), cfg.Heap.Size)
	assert.Equal(t, uint64(heap.HeapStart), cfg.Heap.Start, "unset fields keep their defaults")
	assert.Equal(t, 32, cfg.Keyboard.QueueCapacity)

	hotkeys := cfg.HotkeyMap()
	require.Len(t, hotkeys, 1)
	assert.Equal(t, "name: kcore", hotkeys["n"].Text)
	assert.Equal(t, console.NewColorCode(console.Black, console.White), hotkeys["n"].Color)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestParseConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"zero heap":      "heap: {size: 0}",
		"unaligned heap": "heap: {start: 4097}",
		"strategy":       "heap: {strategy: buddy}",
		"capacity":       "keyboard: {queue_capacity: -1}",
		"empty region":   "memory: {regions: [{start: 4096, end: 4096, kind: usable}]}",
		"unaligned map":  "memory: {regions: [{start: 100, end: 8192, kind: usable}]}",
		"hotkey":         "keyboard: {hotkeys: [{text: x}]}",
		"log level":      "log: {level: loud}",
	}
	for name, doc := range cases {
		_, err := ParseConfig([]byte(doc))
		assert.ErrorIs(t, err, ErrBadConfig, name)
	}

	_, err := ParseConfig([]byte("keyboard: {hotkeys: [{key: a, fg: mauve}]}"))
	assert.Error(t, err, "unknown color name")
	_, err = ParseConfig([]byte("heap: ["))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("executor: {ready_capacity: 8}\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Executor.ReadyCapacity)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
