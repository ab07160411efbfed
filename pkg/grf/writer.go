package grf

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/Faultbox/midgard-npc/pkg/encoding"
)

// Writer builds an unencrypted 0x200 archive.
type Writer struct {
	files []writerFile
}

type writerFile struct {
	name string
	data []byte
}

// NewWriter creates an empty archive writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Add queues a file. name uses forward slashes; it is stored with
// backslashes in EUC-KR like the game's own archives.
func (w *Writer) Add(name string, data []byte) {
	w.files = append(w.files, writerFile{name: name, data: data})
}

// WriteTo encodes the archive to out.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	var body, table bytes.Buffer
	for _, f := range w.files {
		var compressed bytes.Buffer
		zw := zlib.NewWriter(&compressed)
		if _, err := zw.Write(f.data); err != nil {
			return 0, err
		}
		if err := zw.Close(); err != nil {
			return 0, err
		}

		// Entries are padded to 8 bytes.
		aligned := (compressed.Len() + 7) &^ 7
		offset := body.Len()
		body.Write(compressed.Bytes())
		body.Write(make([]byte, aligned-compressed.Len()))

		table.Write(encoding.UTF8ToEUCKR(strings.ReplaceAll(f.name, "/", "\\")))
		table.WriteByte(0)
		var rec [17]byte
		binary.LittleEndian.PutUint32(rec[0:], uint32(compressed.Len()))
		binary.LittleEndian.PutUint32(rec[4:], uint32(aligned))
		binary.LittleEndian.PutUint32(rec[8:], uint32(len(f.data)))
		rec[12] = flagFile
		binary.LittleEndian.PutUint32(rec[13:], uint32(offset))
		table.Write(rec[:])
	}

	var compressedTable bytes.Buffer
	zw := zlib.NewWriter(&compressedTable)
	if _, err := zw.Write(table.Bytes()); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}

	h := Header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(w.files)) + 7,
		Version:     version200,
	}
	copy(h.Magic[:], grfMagic)

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, h)
	buf.Write(body.Bytes())
	binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(compressedTable.Len()), uint32(table.Len())})
	buf.Write(compressedTable.Bytes())

	n, err := out.Write(buf.Bytes())
	return int64(n), err
}

// WriteFile writes the archive to path.
func (w *Writer) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := w.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
