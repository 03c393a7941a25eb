// SPDX-License-Identifier: EPL-2.0

package probe

import (
	"path/filepath"
	"strings"
)

// Hint carries what is known about a stream besides its bytes.
type Hint struct {
	Extension string
	MimeType  string
}

// HintFromPath derives a hint from a file name.
func HintFromPath(path string) Hint {
	return Hint{}.WithExtension(filepath.Ext(path))
}

// WithExtension sets the extension, with or without a leading dot.
func (h Hint) WithExtension(ext string) Hint {
	h.Extension = strings.ToLower(strings.TrimPrefix(ext, "."))
	return h
}

func (h Hint) WithMimeType(mime string) Hint {
	h.MimeType = strings.ToLower(strings.TrimSpace(mime))
	return h
}
