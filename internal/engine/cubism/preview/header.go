package preview

import (
	"bytes"
	"errors"
	"fmt"
)

// HeaderSize is the fixed size of a moc3 file header.
const HeaderSize = 64

var (
	// ErrBadMoc is returned for blobs that are not moc3 files.
	ErrBadMoc = errors.New("not a moc3 file")

	// ErrUnsupportedMoc is returned for moc3 versions newer than this core reads.
	ErrUnsupportedMoc = errors.New("unsupported moc3 version")
)

var mocMagic = []byte("MOC3")

// Moc3 versions by SDK release.
const (
	MocVersion30 = 1
	MocVersion33 = 2
	MocVersion40 = 3
	MocVersion42 = 4
	MocVersion50 = 5

	latestMocVersion = MocVersion50
)

// Header is the decoded moc3 file header.
type Header struct {
	Version   uint8
	BigEndian bool
}

// ParseHeader validates the header at the start of a moc3 blob.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%d bytes, need at least %d: %w", len(data), HeaderSize, ErrBadMoc)
	}
	if !bytes.Equal(data[:4], mocMagic) {
		return Header{}, fmt.Errorf("magic %q: %w", data[:4], ErrBadMoc)
	}
	h := Header{Version: data[4], BigEndian: data[5] != 0}
	if h.Version == 0 || h.Version > latestMocVersion {
		return Header{}, fmt.Errorf("version %d: %w", h.Version, ErrUnsupportedMoc)
	}
	return h, nil
}
