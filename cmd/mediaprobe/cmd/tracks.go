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

func (a *app) tracksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tracks <file>",
		Short: "List the tracks, cues and tags of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTracks(cmd.OutOrStdout(), args[0])
		},
	}
}

func (a *app) runTracks(w io.Writer, path string) error {
	f, _, err := a.open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(w, "Format: %s (%s)\n\n", f.Descriptor.ShortName, f.Descriptor.LongName)

	def := f.Format.DefaultTrack()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODEC\tRATE\tCHANNELS\tFRAMES\tDURATION\tLANGUAGE\t")
	for _, t := range f.Format.Tracks() {
		p := t.CodecParams
		id := fmt.Sprint(t.ID)
		if def != nil && def.ID == t.ID {
			id += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t\n",
			id, p.Codec, p.SampleRate, p.Channels,
			humanize.Comma(int64(t.NFrames())), trackDuration(&t), t.LanguageTag())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if cues := f.Format.Cues(); len(cues) > 0 {
		fmt.Fprintf(w, "\nCues:\n")
		for _, c := range cues {
			fmt.Fprintf(w, "  #%d at %d\n", c.Index, c.StartTS)
			printTags(w, "    ", c.Tags)
		}
	}

	for _, md := range []*media.Metadata{f.Metadata, f.Format.Metadata()} {
		rev := md.Current()
		if rev == nil || len(rev.Tags)+len(rev.Visuals) == 0 {
			continue
		}
		fmt.Fprintf(w, "\nTags:\n")
		printTags(w, "  ", rev.Tags)
		for _, v := range rev.Visuals {
			fmt.Fprintf(w, "  [picture] %s %s, %s\n", v.Usage, v.MediaType, humanize.IBytes(uint64(len(v.Data))))
		}
	}

	return nil
}

func printTags(w io.Writer, indent string, tags []media.Tag) {
	for _, t := range tags {
		fmt.Fprintf(w, "%s%s = %s\n", indent, t.Key, t.Value)
	}
}
