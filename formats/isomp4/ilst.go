// SPDX-License-Identifier: EPL-2.0

package isomp4

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/stream"
)

// Well known data atom types.
const (
	dataImplicit = 0
	dataUTF8     = 1
	dataUTF16    = 2
	dataJPEG     = 13
	dataPNG      = 14
	dataSigned   = 21
	dataUnsigned = 22
	dataBMP      = 27
)

func itemKey(s string) FourCC {
	var f FourCC
	copy(f[:], s)

	return f
}

var (
	keyFreeform = itemKey("----")
	keyCover    = itemKey("covr")
	keyTrack    = itemKey("trkn")
	keyDisc     = itemKey("disk")
	keyGenre    = itemKey("gnre")
)

var itemTags = map[FourCC]media.StandardTag{
	itemKey("\xa9nam"): media.TagTrackTitle,
	itemKey("\xa9ART"): media.TagArtist,
	itemKey("aART"):    media.TagAlbumArtist,
	itemKey("\xa9alb"): media.TagAlbum,
	itemKey("\xa9day"): media.TagDate,
	itemKey("\xa9gen"): media.TagGenre,
	keyGenre:           media.TagGenre,
	keyTrack:           media.TagTrackNumber,
	keyDisc:            media.TagDiscNumber,
	itemKey("\xa9cmt"): media.TagComment,
	itemKey("\xa9wrt"): media.TagComposer,
	itemKey("\xa9too"): media.TagEncoder,
}

// keyName renders an item key, spelling the 0xA9 prefix as a copyright sign.
func keyName(k FourCC) string {
	if k[0] == 0xa9 {
		return "©" + string(k[1:])
	}

	return k.String()
}

func (p *parser) readUdta(r stream.ByteReader, h AtomHeader) (*media.Revision, error) {
	it := NewAtomIterator(r, h)
	for {
		child, err := it.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, nil
		}
		if child.Type == TypeMeta {
			return ReadAtom(it, p.readMeta)
		}
	}
}

func (p *parser) readMeta(r stream.ByteReader, h AtomHeader) (*media.Revision, error) {
	if _, _, err := h.ReadFullHeader(r); err != nil {
		return nil, err
	}

	it := NewAtomIterator(r, h)
	for {
		child, err := it.Next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, nil
		}
		if child.Type == TypeIlst {
			return ReadAtom(it, p.readIlst)
		}
	}
}

func (p *parser) readIlst(r stream.ByteReader, h AtomHeader) (*media.Revision, error) {
	b := media.NewRevisionBuilder(p.opts.Metadata)

	it := NewAtomIterator(r, h)
	it.anyType = true
	for {
		item, err := it.Next()
		if err != nil {
			return nil, err
		}
		if item == nil {
			break
		}

		key := item.Type
		_, err = ReadAtom(it, func(r stream.ByteReader, h AtomHeader) (struct{}, error) {
			return struct{}{}, p.readItem(r, h, key, b)
		})
		if err != nil {
			return nil, err
		}
	}

	if b.Empty() {
		return nil, nil
	}
	rev := b.Build()

	return &rev, nil
}

// readItem adds the values of one ilst item to b. Values that do not fit the
// metadata budget are dropped.
func (p *parser) readItem(r stream.ByteReader, h AtomHeader, key FourCC, b *media.RevisionBuilder) error {
	name := keyName(key)

	it := NewAtomIterator(r, h)
	for {
		child, err := it.Next()
		if err != nil {
			return err
		}
		if child == nil {
			return nil
		}

		switch child.Type {
		case TypeMean, TypeName:
			var s string
			if s, err = ReadAtom(it, readItemString); err == nil && key == keyFreeform {
				name += ":" + s
			}
		case TypeData:
			var v itemValue
			if v, err = ReadAtom(it, p.readData); err != nil {
				break
			}
			err = p.addValue(b, key, name, v)
		}
		if err != nil {
			return err
		}
	}
}

// readItemString reads the payload of a mean or name atom.
func readItemString(r stream.ByteReader, h AtomHeader) (string, error) {
	if _, _, err := h.ReadFullHeader(r); err != nil {
		return "", err
	}
	b, err := readPayload(r, h, maxConfigAtomLen, "ilst name")
	if err != nil {
		return "", err
	}

	return strings.ToValidUTF8(string(b), "�"), nil
}

type itemValue struct {
	kind uint32
	data []byte
	// skipped is set when the value exceeded the metadata budget.
	skipped bool
}

func (p *parser) readData(r stream.ByteReader, h AtomHeader) (itemValue, error) {
	f := fields{r: r}
	v := itemValue{kind: f.u32() & 0xffffff}
	f.u32()
	if f.err != nil {
		return v, f.err
	}

	n, ok := h.DataUnreadAt(r.Pos())
	if !ok {
		return v, media.DecodeError("data atom size is unknown")
	}
	limit := p.opts.Metadata.LimitMetadataBytes
	if v.kind == dataJPEG || v.kind == dataPNG || v.kind == dataBMP {
		limit = p.opts.Metadata.LimitVisualBytes
	}
	if limit > 0 && n > uint64(limit) {
		v.skipped = true
		return v, r.IgnoreBytes(n)
	}

	v.data = f.bytes(n)

	return v, f.err
}

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

func (p *parser) addValue(b *media.RevisionBuilder, key FourCC, name string, v itemValue) error {
	if v.skipped {
		p.log.Warn("isomp4: metadata item exceeds the size limit", "key", name)
		return nil
	}

	var value string
	switch v.kind {
	case dataUTF8:
		value = strings.ToValidUTF8(string(v.data), "�")
	case dataUTF16:
		s, err := utf16BE.NewDecoder().Bytes(v.data)
		if err != nil {
			p.log.Debug("isomp4: invalid utf-16 metadata value", "key", name)
			return nil
		}
		value = string(s)
	case dataJPEG, dataPNG, dataBMP:
		return p.dropOnLimit(b.AddVisual(media.Visual{
			MediaType: visualTypes[v.kind],
			Usage:     visualUsage(key),
			Data:      v.data,
		}), name)
	case dataSigned:
		n, ok := beInt(v.data)
		if !ok {
			return nil
		}
		value = strconv.FormatInt(n, 10)
	case dataUnsigned:
		n, ok := beUint(v.data)
		if !ok {
			return nil
		}
		value = strconv.FormatUint(n, 10)
	case dataImplicit:
		var ok bool
		if value, ok = implicitValue(key, v.data); !ok {
			return nil
		}
	default:
		p.log.Debug("isomp4: unsupported metadata value type", "key", name, "type", v.kind)
		return nil
	}

	return p.dropOnLimit(b.AddTag(media.Tag{Key: name, StdKey: itemTags[key], Value: value}), name)
}

func (p *parser) dropOnLimit(err error, name string) error {
	if media.IsKind(err, media.KindLimit) {
		p.log.Warn("isomp4: metadata budget exhausted", "key", name)
		return nil
	}

	return err
}

var visualTypes = map[uint32]string{
	dataJPEG: "image/jpeg",
	dataPNG:  "image/png",
	dataBMP:  "image/bmp",
}

func visualUsage(key FourCC) string {
	if key == keyCover {
		return "front cover"
	}

	return ""
}

func beUint(b []byte) (uint64, bool) {
	switch len(b) {
	case 1, 2, 3, 4, 8:
	default:
		return 0, false
	}
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}

	return n, true
}

func beInt(b []byte) (int64, bool) {
	n, ok := beUint(b)
	if !ok {
		return 0, false
	}
	shift := 64 - 8*uint(len(b))

	return int64(n<<shift) >> shift, true
}

// implicitValue decodes the binary values of number pairs and the numeric
// genre.
func implicitValue(key FourCC, b []byte) (string, bool) {
	switch key {
	case keyTrack, keyDisc:
		if len(b) < 6 {
			return "", false
		}
		n, total := be.Uint16(b[2:]), be.Uint16(b[4:])
		if total == 0 {
			return strconv.Itoa(int(n)), true
		}
		return strconv.Itoa(int(n)) + "/" + strconv.Itoa(int(total)), true
	case keyGenre:
		if len(b) != 2 {
			return "", false
		}
		return strconv.Itoa(int(be.Uint16(b))), true
	}

	return "", false
}
