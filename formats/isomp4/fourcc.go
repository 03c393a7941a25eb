// SPDX-License-Identifier: EPL-2.0

package isomp4

import "github.com/ik5/mediakit/media"

// FourCC is a four byte code naming an atom or a sample entry.
type FourCC [4]byte

func (f FourCC) String() string {
	return string(f[:])
}

// Valid reports whether every byte is printable ASCII.
func (f FourCC) Valid() bool {
	for _, b := range f {
		if b < 0x20 || b > 0x7e {
			return false
		}
	}

	return true
}

// ParseFourCC converts a four byte string into a FourCC. Non printable codes
// are rejected.
func ParseFourCC(s string) (FourCC, error) {
	var f FourCC
	if len(s) != len(f) {
		return f, media.DecodeError("fourcc must be 4 bytes")
	}
	copy(f[:], s)

	return FourCCFromBytes(f)
}

// FourCCFromBytes validates b as a FourCC.
func FourCCFromBytes(b [4]byte) (FourCC, error) {
	f := FourCC(b)
	if !f.Valid() {
		return FourCC{}, media.DecodeError("invalid fourcc")
	}

	return f, nil
}

// Known atom types.
var (
	TypeFtyp = FourCC{'f', 't', 'y', 'p'}
	TypeMoov = FourCC{'m', 'o', 'o', 'v'}
	TypeMvhd = FourCC{'m', 'v', 'h', 'd'}
	TypeTrak = FourCC{'t', 'r', 'a', 'k'}
	TypeTkhd = FourCC{'t', 'k', 'h', 'd'}
	TypeEdts = FourCC{'e', 'd', 't', 's'}
	TypeElst = FourCC{'e', 'l', 's', 't'}
	TypeMdia = FourCC{'m', 'd', 'i', 'a'}
	TypeMdhd = FourCC{'m', 'd', 'h', 'd'}
	TypeHdlr = FourCC{'h', 'd', 'l', 'r'}
	TypeMinf = FourCC{'m', 'i', 'n', 'f'}
	TypeSmhd = FourCC{'s', 'm', 'h', 'd'}
	TypeStbl = FourCC{'s', 't', 'b', 'l'}
	TypeStsd = FourCC{'s', 't', 's', 'd'}
	TypeStts = FourCC{'s', 't', 't', 's'}
	TypeCtts = FourCC{'c', 't', 't', 's'}
	TypeStsc = FourCC{'s', 't', 's', 'c'}
	TypeStsz = FourCC{'s', 't', 's', 'z'}
	TypeStco = FourCC{'s', 't', 'c', 'o'}
	TypeCo64 = FourCC{'c', 'o', '6', '4'}
	TypeStss = FourCC{'s', 't', 's', 's'}
	// Fragments
	TypeMvex = FourCC{'m', 'v', 'e', 'x'}
	TypeMehd = FourCC{'m', 'e', 'h', 'd'}
	TypeTrex = FourCC{'t', 'r', 'e', 'x'}
	TypeMoof = FourCC{'m', 'o', 'o', 'f'}
	TypeMfhd = FourCC{'m', 'f', 'h', 'd'}
	TypeTraf = FourCC{'t', 'r', 'a', 'f'}
	TypeTfhd = FourCC{'t', 'f', 'h', 'd'}
	TypeTfdt = FourCC{'t', 'f', 'd', 't'}
	TypeTrun = FourCC{'t', 'r', 'u', 'n'}
	TypeSidx = FourCC{'s', 'i', 'd', 'x'}
	// Metadata
	TypeUdta = FourCC{'u', 'd', 't', 'a'}
	TypeMeta = FourCC{'m', 'e', 't', 'a'}
	TypeIlst = FourCC{'i', 'l', 's', 't'}
	TypeData = FourCC{'d', 'a', 't', 'a'}
	TypeMean = FourCC{'m', 'e', 'a', 'n'}
	TypeName = FourCC{'n', 'a', 'm', 'e'}
	// Data and padding
	TypeMdat = FourCC{'m', 'd', 'a', 't'}
	TypeFree = FourCC{'f', 'r', 'e', 'e'}
	TypeSkip = FourCC{'s', 'k', 'i', 'p'}
	TypeWide = FourCC{'w', 'i', 'd', 'e'}
)

// Sample entry and decoder configuration types.
var (
	TypeMp4a = FourCC{'m', 'p', '4', 'a'}
	TypeAlac = FourCC{'a', 'l', 'a', 'c'}
	TypeFlac = FourCC{'f', 'L', 'a', 'C'}
	TypeOpus = FourCC{'O', 'p', 'u', 's'}
	TypeMp3  = FourCC{'.', 'm', 'p', '3'}
	TypeAc3  = FourCC{'a', 'c', '-', '3'}
	TypeEc3  = FourCC{'e', 'c', '-', '3'}
	TypeLpcm = FourCC{'l', 'p', 'c', 'm'}
	TypeSowt = FourCC{'s', 'o', 'w', 't'}
	TypeTwos = FourCC{'t', 'w', 'o', 's'}
	TypeRaw  = FourCC{'r', 'a', 'w', ' '}
	TypeIn24 = FourCC{'i', 'n', '2', '4'}
	TypeIn32 = FourCC{'i', 'n', '3', '2'}
	TypeFl32 = FourCC{'f', 'l', '3', '2'}
	TypeFl64 = FourCC{'f', 'l', '6', '4'}
	TypeAvc1 = FourCC{'a', 'v', 'c', '1'}
	TypeAvc3 = FourCC{'a', 'v', 'c', '3'}
	TypeHvc1 = FourCC{'h', 'v', 'c', '1'}
	TypeHev1 = FourCC{'h', 'e', 'v', '1'}
	TypeMp4v = FourCC{'m', 'p', '4', 'v'}

	TypeEsds = FourCC{'e', 's', 'd', 's'}
	TypeDfLa = FourCC{'d', 'f', 'L', 'a'}
	TypeDOps = FourCC{'d', 'O', 'p', 's'}
	TypeAvcC = FourCC{'a', 'v', 'c', 'C'}
	TypeHvcC = FourCC{'h', 'v', 'c', 'C'}
	TypeDac3 = FourCC{'d', 'a', 'c', '3'}
	TypeDec3 = FourCC{'d', 'e', 'c', '3'}
	TypeWave = FourCC{'w', 'a', 'v', 'e'}
)

// Handler types.
var (
	HandlerVideo    = FourCC{'v', 'i', 'd', 'e'}
	HandlerSound    = FourCC{'s', 'o', 'u', 'n'}
	HandlerMeta     = FourCC{'m', 'e', 't', 'a'}
	HandlerSubtitle = FourCC{'s', 'u', 'b', 't'}
	HandlerText     = FourCC{'t', 'e', 'x', 't'}
)
