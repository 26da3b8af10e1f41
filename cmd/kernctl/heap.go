package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/joshuapare/kcore/heap"
	"github.com/joshuapare/kcore/kernel"
)

var (
	heapStrategy  string
	heapBoxes     int
	heapVecLen    int
	heapLongLived bool
)

func init() {
	cmd := newHeapCmd()
	cmd.Flags().StringVarP(&heapStrategy, "strategy", "s", "", "Allocator: fixed or bump (default from config)")
	cmd.Flags().IntVar(&heapBoxes, "boxes", int(heap.HeapSize), "Number of short-lived boxes to allocate")
	cmd.Flags().IntVar(&heapVecLen, "vec", 1000, "Length of the growing vector")
	cmd.Flags().BoolVar(&heapLongLived, "long-lived", false, "Keep one box alive across the box workload")
	rootCmd.AddCommand(cmd)
}

func newHeapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heap",
		Short: "Run an allocation workload and show heap statistics",
		Long: `The heap command boots the kernel, runs the heap allocation workload
(two boxes, a growing vector, then many short-lived boxes) and prints the
allocator statistics.

Example:
  kernctl heap
  kernctl heap --strategy bump --long-lived
  kernctl heap --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeap(cmd.OutOrStdout())
		},
	}
	return cmd
}

// WorkloadResult is the outcome of runWorkload.
type WorkloadResult struct {
	Stats   heap.Stats `json:"stats"`
	VecSum  uint64     `json:"vec_sum"`
	Boxes   int        `json:"boxes"`
	Failure string     `json:"failure,omitempty"`
}

func runHeap(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if heapStrategy != "" {
		cfg.Heap.Strategy = heapStrategy
	}
	logger, closer, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	k, err := kernel.Boot(cfg, kernel.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer k.Shutdown()

	printVerbose("Running workload on the %s allocator\n", k.Heap.Strategy())
	res := runWorkload(k.Heap, heapVecLen, heapBoxes, heapLongLived)
	if jsonOut {
		return printJSON(res)
	}
	if quiet {
		return nil
	}
	renderHeapStats(out, res)
	return nil
}

// runWorkload mirrors the kernel's heap tests: a couple of boxes, a vector
// grown to n elements, then boxes allocated and freed one at a time. A
// failure stops the workload and is recorded rather than returned.
func runWorkload(h *heap.Heap, n, boxes int, longLived bool) WorkloadResult {
	var res WorkloadResult
	if err := workload(h, n, boxes, longLived, &res); err != nil {
		res.Failure = err.Error()
	}
	res.Stats = h.Stats()
	return res
}

func workload(h *heap.Heap, n, boxes int, longLived bool, res *WorkloadResult) error {
	a, err := heap.NewBox(h, uint64(41))
	if err != nil {
		return err
	}
	b, err := heap.NewBox(h, uint64(13))
	if err != nil {
		return err
	}
	if err := a.Free(); err != nil {
		return err
	}
	if err := b.Free(); err != nil {
		return err
	}

	v := heap.NewVec(h)
	for i := 0; i < n; i++ {
		if err := v.Push(uint64(i)); err != nil {
			return fmt.Errorf("vec push %d: %w", i, err)
		}
	}
	if res.VecSum, err = v.Sum(); err != nil {
		return err
	}
	if err := v.Free(); err != nil {
		return err
	}

	var keep *heap.Box[uint64]
	if longLived {
		if keep, err = heap.NewBox(h, uint64(1)); err != nil {
			return err
		}
	}
	for i := 0; i < boxes; i++ {
		x, err := heap.NewBox(h, uint64(i))
		if err != nil {
			return fmt.Errorf("box %d: %w", i, err)
		}
		if err := x.Free(); err != nil {
			return err
		}
		res.Boxes++
	}
	if keep != nil {
		return keep.Free()
	}
	return nil
}

func renderHeapStats(out io.Writer, res WorkloadResult) {
	st := res.Stats
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	rows := [][]string{
		{"strategy", string(st.Strategy)},
		{"heap", fmt.Sprintf("%#x + %d", st.Start, st.Size)},
		{"alloc calls", strconv.Itoa(st.Alloc.AllocCalls)},
		{"alloc failures", strconv.Itoa(st.Alloc.AllocFailures)},
		{"free calls", strconv.Itoa(st.Alloc.FreeCalls)},
		{"bytes in use", strconv.FormatInt(st.Alloc.BytesInUse, 10)},
		{"vec sum", strconv.FormatUint(res.VecSum, 10)},
		{"boxes", strconv.Itoa(res.Boxes)},
	}
	switch st.Strategy {
	case heap.StrategyFixed:
		rows = append(rows,
			[]string{"list reuse", strconv.Itoa(st.Alloc.ListReuse)},
			[]string{"list miss", strconv.Itoa(st.Alloc.ListMiss)},
			[]string{"oversized", strconv.Itoa(st.Alloc.Oversized)},
			[]string{"fallback free", strconv.FormatUint(uint64(st.FallbackFree), 10)},
			[]string{"fallback holes", strconv.Itoa(st.FallbackHoles)},
		)
	case heap.StrategyBump:
		rows = append(rows,
			[]string{"resets", strconv.Itoa(st.Alloc.Resets)},
			[]string{"live allocations", strconv.Itoa(st.LiveAllocations)},
		)
	}
	if res.Failure != "" {
		rows = append(rows, []string{"failure", res.Failure})
	}
	table.AppendBulk(rows)
	table.Render()

	if len(st.Classes) == 0 {
		return
	}
	classes := tablewriter.NewWriter(out)
	classes.SetHeader([]string{"Class", "Free blocks"})
	for _, c := range st.Classes {
		classes.Append([]string{strconv.FormatUint(uint64(c.Size), 10), strconv.Itoa(c.Free)})
	}
	classes.Render()
}
