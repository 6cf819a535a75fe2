// Package palette reads and writes Microsoft RIFF PAL palette files.
package palette

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"io"

	"golang.org/x/image/riff"
)

/*
typedef struct tagLOGPALETTE {
  WORD         palVersion;
  WORD         palNumEntries;
  PALETTEENTRY palPalEntry[1];
} LOGPALETTE;

typedef struct tagPALETTEENTRY {
  BYTE peRed;
  BYTE peGreen;
  BYTE peBlue;
  BYTE peFlags;
} PALETTEENTRY;
*/

const palVersion = 0x0300

var (
	riffType = riff.FourCC{'R', 'I', 'F', 'F'}
	palType  = riff.FourCC{'P', 'A', 'L', ' '}
	dataType = riff.FourCC{'d', 'a', 't', 'a'}
)

// Decode reads every palette in a RIFF PAL stream, descending into PAL lists.
func Decode(r io.Reader) ([]color.Palette, error) {
	formType, rd, err := riff.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not open RIFF stream: %w", err)
	} else if formType != palType {
		return nil, fmt.Errorf("unsupported RIFF content type: %q", string(formType[:]))
	}

	return readPalettes(rd, string(formType[:]))
}

func readPalettes(r *riff.Reader, ident string) ([]color.Palette, error) {
	var res []color.Palette

	for {
		id, size, data, err := r.Next()
		if err == io.EOF {
			return res, nil
		} else if err != nil {
			return res, fmt.Errorf("could not read chunk %s#%d: %w", ident, len(res), err)
		}

		switch id {
		case riff.LIST:
			listType, list, err := riff.NewListReader(size, data)
			if err != nil {
				return res, fmt.Errorf("could not read list from chunk %s#%d: %w", ident, len(res), err)
			} else if listType != palType {
				return res, fmt.Errorf("chunk %s#%d has unsupported list type: %q", ident, len(res), string(listType[:]))
			}

			sub, err := readPalettes(list, fmt.Sprintf("%s%d.%s", ident, len(res), string(listType[:])))
			res = append(res, sub...)
			if err != nil {
				return res, err
			}
		case dataType:
			pal, err := readPalette(data, fmt.Sprintf("%s#%d", ident, len(res)))
			if err != nil {
				return res, err
			}
			res = append(res, pal)
		default:
			return res, fmt.Errorf("unsupported chunk type in %s#%d: %q", ident, len(res), string(id[:]))
		}
	}
}

func readPalette(r io.Reader, ident string) (color.Palette, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("could not read header of chunk %s: %w", ident, err)
	}

	if ver := binary.LittleEndian.Uint16(head[0:2]); ver != palVersion {
		return nil, fmt.Errorf("unsupported palette version in chunk %s: %#04x", ident, ver)
	}

	count := binary.LittleEndian.Uint16(head[2:4])
	res := make(color.Palette, count)
	var entry [4]byte
	for i := range count {
		if _, err := io.ReadFull(r, entry[:]); err != nil {
			return res[:i], fmt.Errorf("could not read color %d/%d from chunk %s: %w", i, count, ident, err)
		}
		res[i] = color.RGBA{R: entry[0], G: entry[1], B: entry[2], A: 0xff}
	}

	return res, nil
}

// Encode writes pals as one RIFF PAL stream with a data chunk per palette.
func Encode(w io.Writer, pals []color.Palette) error {
	size := 4
	for _, pal := range pals {
		if len(pal) > 0xffff {
			return fmt.Errorf("palette has %d colors, at most 65535 fit", len(pal))
		}
		size += 8 + 4 + len(pal)*4 // chunk id, chunk size, version, count, 4 bytes/color
	}

	head := make([]byte, 0, 12)
	head = append(head, riffType[:]...)
	head = binary.LittleEndian.AppendUint32(head, uint32(size))
	head = append(head, palType[:]...)
	if err := writeBytes(w, head); err != nil {
		return fmt.Errorf("could not write RIFF header: %w", err)
	}

	for i, pal := range pals {
		if err := writePalette(w, pal); err != nil {
			return fmt.Errorf("could not write chunk %d: %w", i, err)
		}
	}
	return nil
}

func writePalette(w io.Writer, pal color.Palette) error {
	buf := make([]byte, 0, 12+len(pal)*4)
	buf = append(buf, dataType[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(4+len(pal)*4))
	buf = binary.LittleEndian.AppendUint16(buf, palVersion)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(pal)))
	for _, col := range pal {
		c := color.NRGBAModel.Convert(col).(color.NRGBA)
		buf = append(buf, c.R, c.G, c.B, 0x00)
	}
	return writeBytes(w, buf)
}

func writeBytes(w io.Writer, b []byte) error {
	n, err := w.Write(b)
	if err != nil {
		return err
	} else if n != len(b) {
		return fmt.Errorf("wrote only %d/%d bytes", n, len(b))
	}
	return nil
}
