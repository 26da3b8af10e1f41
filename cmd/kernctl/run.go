package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/kcore/console"
	"github.com/joshuapare/kcore/kernel"
	"github.com/joshuapare/kcore/task/keyboard"
)

var (
	runInput    string
	runText     string
	runDuration time.Duration
	runTick     time.Duration
	runHold     bool
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().StringVarP(&runInput, "input", "i", "-", `Keystroke source file ("-" for stdin)`)
	cmd.Flags().StringVarP(&runText, "text", "t", "", "Type this text instead of reading --input")
	cmd.Flags().DurationVar(&runDuration, "duration", 0, "Stop after this long (0 = when input ends)")
	cmd.Flags().DurationVar(&runTick, "tick", 0, "Raise a timer interrupt at this interval (0 = off)")
	cmd.Flags().BoolVar(&runHold, "hold", false, "Keep running after the input ends, until interrupted")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Boot the kernel and echo keystrokes",
		Long: `The run command boots the kernel, spawns the keyboard echo task and
drives the executor. Input text is converted to scancodes and delivered
through the keyboard interrupt, one key at a time.

Example:
  kernctl run --text "hello"
  echo hello | kernctl run
  kernctl run --hold --tick 10ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context())
		},
	}
	return cmd
}

// RunSummary is reported when the kernel stops.
type RunSummary struct {
	Keys      uint64        `json:"keys"`
	Ticks     uint64        `json:"ticks"`
	Pushed    uint64        `json:"scancodes_pushed"`
	Dropped   uint64        `json:"scancodes_dropped"`
	Lost      uint64        `json:"scancodes_lost"`
	Polls     uint64        `json:"polls"`
	Halts     uint64        `json:"halts"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	HeapInUse int64         `json:"heap_bytes_in_use"`
}

func runRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	var sink console.Sink
	if !quiet && !jsonOut {
		sink = newSink(os.Stdout)
	}
	k, err := kernel.Boot(cfg, kernel.Options{Logger: logger, Sink: sink})
	if err != nil {
		return err
	}
	defer k.Shutdown()

	if _, err := k.SpawnEcho(); err != nil {
		return fmt.Errorf("spawn echo task: %w", err)
	}

	src, err := openInput()
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if runDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runDuration)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return k.Run(gctx)
	})
	g.Go(func() error {
		if err := feed(gctx, k, src); err != nil {
			return err
		}
		if !runHold && runDuration == 0 {
			cancel()
		}
		return nil
	})
	if runTick > 0 {
		g.Go(func() error {
			return tick(gctx, k, runTick)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err != nil {
		return err
	}

	q := k.Scancodes.Stats()
	es := k.Executor.Stats()
	summary := RunSummary{
		Keys:      k.KeysEchoed(),
		Ticks:     k.Ticks(),
		Pushed:    q.Pushed,
		Dropped:   q.Dropped,
		Lost:      q.Lost,
		Polls:     es.Polls,
		Halts:     es.Halts,
		Elapsed:   time.Since(start),
		HeapInUse: k.Heap.Stats().Alloc.BytesInUse,
	}
	if jsonOut {
		return printJSON(summary)
	}
	printInfo("\n")
	printVerbose("Scancodes: %d pushed, %d dropped, %d lost\n", summary.Pushed, summary.Dropped, summary.Lost)
	printVerbose("Executor: %d polls, %d halts\n", summary.Polls, summary.Halts)
	printInfo("Echoed %d keys in %s\n", summary.Keys, summary.Elapsed.Round(time.Millisecond))
	return nil
}

func newSink(f *os.File) console.Sink {
	if noColor {
		return console.NewTerminalSinkWriter(f, false)
	}
	return console.NewTerminalSink(f)
}

func openInput() (io.ReadCloser, error) {
	switch {
	case runText != "":
		return io.NopCloser(strings.NewReader(runText)), nil
	case runInput == "" || runInput == "-":
		return io.NopCloser(os.Stdin), nil
	default:
		f, err := os.Open(runInput)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		return f, nil
	}
}

// feed types everything read from r, a line at a time, and waits until the
// echo task has decoded every key it pressed. Reads happen on their own
// goroutine so a blocked terminal read does not hold up shutdown.
func feed(ctx context.Context, k *kernel.Kernel, r io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- fmt.Errorf("read input: %w", err)
				}
				return
			}
		}
	}()

	var expected uint64
	for done := false; !done; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				done = true
				break
			}
			codes := keyboard.Encode(line)
			expected += countKeys(codes)
			if err := k.PressAll(ctx, codes); err != nil {
				return err
			}
		}
	}
	select {
	case err := <-readErr:
		return err
	default:
	}

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for k.KeysEchoed() < expected {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// countKeys returns how many key events codes decodes to.
func countKeys(codes []byte) uint64 {
	d := keyboard.NewDecoder()
	var n uint64
	for _, b := range codes {
		if _, ok := d.Feed(b); ok {
			n++
		}
	}
	return n
}

func tick(ctx context.Context, k *kernel.Kernel, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			k.Tick()
		}
	}
}
