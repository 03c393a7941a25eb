// SPDX-License-Identifier: EPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) configCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}

	c.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Dump the effective configuration",
		Long: `Dump the effective configuration in YAML format, after defaults, the
config file and MEDIAKIT_ environment variables have been applied.

The output can be used as a config file template:

  mediaprobe config dump > mediakit.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})

	return c
}
