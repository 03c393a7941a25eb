// SPDX-License-Identifier: EPL-2.0

// Command mediaprobe inspects and decodes media files with mediakit.
package main

import (
	"os"

	"github.com/ik5/mediakit/cmd/mediaprobe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
