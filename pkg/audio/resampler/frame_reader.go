package resampler

import (
	"errors"
	"io"
)

// frameReader reads PCM from r in whole frames. A frame is one 16-bit sample
// per channel, so a stereo stream that is split mid-frame by the network is
// never handed to the remixer half-interleaved.
type frameReader struct {
	r     io.Reader
	frame int
	tail  []byte // partial frame carried to the next Read
}

func newFrameReader(r io.Reader, frameSize int) *frameReader {
	return &frameReader{r: r, frame: frameSize, tail: make([]byte, 0, frameSize)}
}

// Read fills p with a whole number of frames, reading from the source until
// at least one frame is available. It returns io.ErrShortBuffer when p cannot
// hold a frame. A stream ending mid-frame returns the leftover bytes with
// io.ErrUnexpectedEOF.
func (fr *frameReader) Read(p []byte) (int, error) {
	if len(p) < fr.frame {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)-len(p)%fr.frame]
	n := copy(p, fr.tail)
	fr.tail = fr.tail[:0]

	for n < fr.frame {
		m, err := fr.r.Read(p[n:])
		n += m
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) && n%fr.frame != 0 {
			return n, io.ErrUnexpectedEOF
		}
		return n, err
	}

	if rem := n % fr.frame; rem != 0 {
		n -= rem
		fr.tail = append(fr.tail, p[n:n+rem]...)
	}
	return n, nil
}
