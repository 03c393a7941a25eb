// SPDX-License-Identifier: EPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/mediakit/media"
)

func (a *app) probeCmd() *cobra.Command {
	var jobs int

	c := &cobra.Command{
		Use:   "probe <file>...",
		Short: "Detect the container format of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProbe(cmd.Context(), cmd.OutOrStdout(), args, jobs)
		},
	}
	c.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "number of files probed in parallel")

	return c
}

type probeReport struct {
	format   string
	tracks   int
	duration time.Duration
	err      error
}

// runProbe probes every path and prints one line per file, in argument order.
func (a *app) runProbe(ctx context.Context, w io.Writer, paths []string, jobs int) error {
	reports := make([]probeReport, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = a.probeFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for i, r := range reports {
		if r.err != nil {
			failed++
			fmt.Fprintf(w, "%s: error: %v\n", paths[i], r.err)
			continue
		}
		fmt.Fprintf(w, "%s: %s, %d track(s), %s\n", paths[i], r.format, r.tracks, r.duration)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be probed", failed, len(paths))
	}

	return nil
}

func (a *app) probeFile(path string) probeReport {
	f, _, err := a.open(path)
	if err != nil {
		return probeReport{err: err}
	}
	defer f.Close()

	r := probeReport{
		format: fmt.Sprintf("%s (%s)", f.Descriptor.ShortName, f.Descriptor.LongName),
		tracks: len(f.Format.Tracks()),
	}
	if t := f.Format.DefaultTrack(); t != nil {
		r.duration = trackDuration(t)
	}

	return r
}

// trackDuration is zero when the frame count or time base is unknown.
func trackDuration(t *media.Track) time.Duration {
	return t.CodecParams.TimeBase.CalcTime(t.NFrames())
}
