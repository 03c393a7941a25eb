// SPDX-License-Identifier: EPL-2.0

package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ik5/mediakit/media"
)

func (a *app) packetsCmd() *cobra.Command {
	var (
		track int64
		limit int
	)

	c := &cobra.Command{
		Use:   "packets <file>",
		Short: "Dump the packets of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPackets(cmd.OutOrStdout(), args[0], track, limit)
		},
	}
	c.Flags().Int64VarP(&track, "track", "t", -1, "only show packets of this track id")
	c.Flags().IntVarP(&limit, "limit", "n", 20, "stop after this many packets (0 for all)")

	return c
}

func (a *app) runPackets(w io.Writer, path string, track int64, limit int) error {
	f, _, err := a.open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if track >= 0 && media.FindTrack(f.Format.Tracks(), uint32(track)) == nil {
		return fmt.Errorf("%s: track %d: %w", path, track, media.SeekError(media.SeekInvalidTrack))
	}

	var (
		count int
		bytes uint64
	)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TRACK\tTS\tDUR\tSIZE\tTRIM\t")
	for limit <= 0 || count < limit {
		pkt, err := f.Format.NextPacket()
		if media.IsEndOfStream(err) {
			break
		}
		if err != nil {
			_ = tw.Flush()
			return fmt.Errorf("%s: packet %d: %w", path, count, err)
		}
		if track >= 0 && pkt.TrackID != uint32(track) {
			continue
		}

		count++
		bytes += uint64(len(pkt.Data))
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d/%d\t\n", pkt.TrackID, pkt.TS, pkt.Dur, len(pkt.Data), pkt.TrimStart, pkt.TrimEnd)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s packets, %s\n", humanize.Comma(int64(count)), humanize.IBytes(bytes))

	return nil
}
