// Package stream reads the stored song track: raw stereo 16-bit PCM behind a
// fixed 44-byte header. Playback loops, so reads that cross the end of the
// data wrap around to its start transparently.
package stream

import (
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/wav"
)

// HeaderSize is the storage convention's fixed header length. The header is
// validated on open and then skipped; no other fields are interpreted.
const HeaderSize = 44

// Source is a loop-reading view over the PCM payload of a song file.
// Owned exclusively by the Producer context.
type Source struct {
	f       *os.File
	dataLen int64
	pos     int64 // offset into the data region
}

// OpenSource opens and validates a song file and positions it at the start
// of the PCM data.
func OpenSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("song %s: not a valid wav file", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	dataLen := info.Size() - HeaderSize
	if dataLen <= 0 {
		f.Close()
		return nil, fmt.Errorf("song %s: no sample data", path)
	}
	if _, err := f.Seek(HeaderSize, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return &Source{f: f, dataLen: dataLen}, nil
}

// ReadWrapped fills p completely. A short read at end of data seeks back to
// the data start and continues with the head of the restarted stream, so a
// request for N bytes always yields exactly N valid bytes.
func (s *Source) ReadWrapped(p []byte) error {
	for len(p) > 0 {
		remain := s.dataLen - s.pos
		if remain <= 0 {
			if err := s.rewind(); err != nil {
				return err
			}
			remain = s.dataLen
		}
		want := int64(len(p))
		if want > remain {
			want = remain
		}
		n, err := io.ReadFull(s.f, p[:want])
		s.pos += int64(n)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			// File shorter than its size said; treat as end of data.
			p = p[n:]
			if err := s.rewind(); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (s *Source) rewind() error {
	if _, err := s.f.Seek(HeaderSize, io.SeekStart); err != nil {
		return err
	}
	s.pos = 0
	return nil
}

func (s *Source) Close() error { return s.f.Close() }
