package kernel

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/kcore/console"
	"github.com/joshuapare/kcore/heap"
	"github.com/joshuapare/kcore/internal/layout"
	"github.com/joshuapare/kcore/task/executor"
	"github.com/joshuapare/kcore/task/keyboard"
)

// ErrBadConfig indicates an invalid configuration value.
var ErrBadConfig = errors.New("kernel: bad config")

// Config is the boot configuration of a hosted kernel.
type Config struct {
	Heap     HeapConfig     `yaml:"heap"`
	Keyboard KeyboardConfig `yaml:"keyboard"`
	Executor ExecutorConfig `yaml:"executor"`
	Memory   MemoryConfig   `yaml:"memory"`
	Log      LogConfig      `yaml:"log"`
}

// HeapConfig places and sizes the kernel heap.
type HeapConfig struct {
	Start    uint64 `yaml:"start"`
	Size     uint64 `yaml:"size"`
	Strategy string `yaml:"strategy"` // "fixed" or "bump"
}

// KeyboardConfig configures the scancode queue and the echo task.
type KeyboardConfig struct {
	QueueCapacity int            `yaml:"queue_capacity"`
	Hotkeys       []HotkeyConfig `yaml:"hotkeys"`
}

// HotkeyConfig binds a key to a colored banner.
type HotkeyConfig struct {
	Key        string        `yaml:"key"`
	Text       string        `yaml:"text"`
	Foreground console.Color `yaml:"fg"`
	Background console.Color `yaml:"bg"`
}

// ExecutorConfig configures the task executor.
type ExecutorConfig struct {
	ReadyCapacity int `yaml:"ready_capacity"`
}

// MemoryConfig is the boot memory map handed to the frame allocator.
type MemoryConfig struct {
	Regions []MemoryRegionConfig `yaml:"regions"`
}

// MemoryRegionConfig is one memory map entry.
type MemoryRegionConfig struct {
	Start uint64 `yaml:"start"`
	End   uint64 `yaml:"end"`
	Kind  string `yaml:"kind"` // "usable" or anything else for in-use memory
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Heap: HeapConfig{
			Start:    uint64(heap.HeapStart),
			Size:     uint64(heap.HeapSize),
			Strategy: string(heap.StrategyFixed),
		},
		Keyboard: KeyboardConfig{
			QueueCapacity: keyboard.DefaultCapacity,
			Hotkeys: []HotkeyConfig{
				{Key: "Escape", Text: "\n kcore: heap + cooperative executor\n", Foreground: console.Black, Background: console.White},
				{Key: "F1", Text: "\n type to echo keys; Esc prints the banner\n", Foreground: console.Black, Background: console.Cyan},
			},
		},
		Executor: ExecutorConfig{ReadyCapacity: executor.DefaultReadyCapacity},
		Memory: MemoryConfig{Regions: []MemoryRegionConfig{
			{Start: 0x0, End: 0x10_0000, Kind: "reserved"},
			{Start: 0x10_0000, End: 0x80_0000, Kind: "usable"},
		}},
		Log: LogConfig{Level: "info"},
	}
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("kernel: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("kernel: read config: %w", err)
	}
	return ParseConfig(data)
}

// Validate checks the config for values Boot cannot use.
func (c Config) Validate() error {
	if c.Heap.Size == 0 {
		return fmt.Errorf("%w: heap size must be positive", ErrBadConfig)
	}
	if c.Heap.Start == 0 || c.Heap.Start%uint64(heap.PageSize) != 0 {
		return fmt.Errorf("%w: heap start %#x must be a non-zero page-aligned address", ErrBadConfig, c.Heap.Start)
	}
	if _, err := heap.ParseStrategy(c.Heap.Strategy); err != nil {
		return fmt.Errorf("%w: %w", ErrBadConfig, err)
	}
	if c.Keyboard.QueueCapacity < 0 || c.Executor.ReadyCapacity < 0 {
		return fmt.Errorf("%w: capacities must not be negative", ErrBadConfig)
	}
	for i, r := range c.Memory.Regions {
		if r.End <= r.Start {
			return fmt.Errorf("%w: memory region %d is empty", ErrBadConfig, i)
		}
		if layout.AlignDown(uintptr(r.Start), heap.PageSize) != uintptr(r.Start) {
			return fmt.Errorf("%w: memory region %d start %#x is not page-aligned", ErrBadConfig, i, r.Start)
		}
	}
	for _, hk := range c.Keyboard.Hotkeys {
		if hk.Key == "" {
			return fmt.Errorf("%w: hotkey without a key", ErrBadConfig)
		}
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Log.Level.
func (c Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log level: %w", ErrBadConfig, err)
	}
	return level, nil
}

// HotkeyMap converts the configured hotkeys for the echo task.
func (c Config) HotkeyMap() keyboard.Hotkeys {
	if len(c.Keyboard.Hotkeys) == 0 {
		return nil
	}
	m := make(keyboard.Hotkeys, len(c.Keyboard.Hotkeys))
	for _, hk := range c.Keyboard.Hotkeys {
		m[hk.Key] = keyboard.Banner{
			Text:  hk.Text,
			Color: console.NewColorCode(hk.Foreground, hk.Background),
		}
	}
	return m
}
