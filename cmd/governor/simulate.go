package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zeusync/governor/internal/core/clock"
	"github.com/zeusync/governor/internal/core/frame"
)

// segment is a run of identical FPS samples.
type segment struct {
	fps   float64
	count int
}

// parseTrace reads "fps x count" segments separated by commas,
// e.g. "60x60,35x120".
func parseTrace(s string) ([]segment, error) {
	var out []segment
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fpsStr, countStr, ok := strings.Cut(part, "x")
		if !ok {
			return nil, fmt.Errorf("segment %q: want <fps>x<count>", part)
		}
		fps, err := strconv.ParseFloat(fpsStr, 64)
		if err != nil || fps <= 0 {
			return nil, fmt.Errorf("segment %q: bad fps", part)
		}
		count, err := strconv.Atoi(countStr)
		if err != nil || count <= 0 {
			return nil, fmt.Errorf("segment %q: bad count", part)
		}
		out = append(out, segment{fps: fps, count: count})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty trace")
	}
	return out, nil
}

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	var trace string
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay an FPS trace through the frame monitor on a simulated clock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			segments, err := parseTrace(trace)
			if err != nil {
				return err
			}

			origin := time.Unix(0, 0).UTC()
			clk := clock.NewManual(origin)
			mon := frame.NewMonitor(cfg.Frame, frame.WithClock(clk))
			out := cmd.OutOrStdout()

			level := mon.Level()
			samples := 0
			for _, seg := range segments {
				step := time.Duration(float64(time.Second) / seg.fps)
				for i := 0; i < seg.count; i++ {
					next := mon.Report(seg.fps)
					samples++
					if next != level {
						fmt.Fprintf(out, "t=%-8s sample=%-5d avg=%5.1f %s -> %s\n",
							clk.Now().Sub(origin).Round(time.Millisecond), samples,
							mon.AverageFPS(), level, next)
						level = next
					}
					clk.Advance(step)
				}
			}
			fmt.Fprintf(out, "final level=%s avg=%.1f samples=%d elapsed=%s\n",
				level, mon.AverageFPS(), samples, clk.Now().Sub(origin).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVarP(&trace, "trace", "t", "60x60,35x120",
		"FPS trace as <fps>x<count> segments")
	return cmd
}
