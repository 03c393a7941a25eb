// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Vorbis audio packets with jfreymuth/vorbis.
package vorbis
