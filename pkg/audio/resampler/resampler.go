package resampler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Reader reads PCM from a source in one Format and yields it in another.
// Sample rate conversion and mono/stereo remixing may be combined.
type Reader struct {
	src    io.Reader
	srcFmt Format
	dstFmt Format

	buf     []byte
	pending []byte

	mu  sync.Mutex
	rs  resampling.Resampler // nil when the rates match
	err error
}

// New returns a Reader converting src from srcFmt to dstFmt. Close releases
// the resampler state.
func New(src io.Reader, srcFmt, dstFmt Format) (*Reader, error) {
	if srcFmt.SampleRate <= 0 || dstFmt.SampleRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid sample rate %d -> %d", srcFmt.SampleRate, dstFmt.SampleRate)
	}
	r := &Reader{
		src:    newFrameReader(src, srcFmt.sampleBytes()),
		srcFmt: srcFmt,
		dstFmt: dstFmt,
	}
	if srcFmt.SampleRate != dstFmt.SampleRate {
		rs, err := resampling.New(&resampling.Config{
			InputRate:  float64(srcFmt.SampleRate),
			OutputRate: float64(dstFmt.SampleRate),
			Channels:   dstFmt.channels(),
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("resampler: %w", err)
		}
		r.rs = rs
	}
	return r, nil
}

// Read fills p with converted audio. p is used in whole frames of the
// destination format; a p shorter than one frame yields io.ErrShortBuffer.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	frame := r.dstFmt.sampleBytes()
	if len(p) < frame {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/frame*frame]

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) > 0 {
		n := copy(p, r.pending)
		r.pending = r.pending[n:]
		return n, nil
	}
	if r.err != nil {
		return 0, r.err
	}
	return r.fill(p)
}

func (r *Reader) fill(p []byte) (int, error) {
	frames := len(p) / r.dstFmt.sampleBytes()
	if r.rs != nil {
		frames = frames*r.srcFmt.SampleRate/r.dstFmt.SampleRate + 1
	}
	n := frames * r.srcFmt.sampleBytes()
	// Upmixing happens in place and needs room for stereo frames.
	size := max(n, frames*4)
	if cap(r.buf) < size {
		r.buf = make([]byte, size)
	}
	buf := r.buf[:size]

	rn, err := r.src.Read(buf[:n])
	rn -= rn % r.srcFmt.sampleBytes()
	if rn == 0 {
		return 0, err
	}
	pcm := remix(buf, rn, r.srcFmt, r.dstFmt)

	if r.rs == nil {
		return copy(p, pcm), err
	}

	out, perr := r.rs.Process(toFloat(pcm))
	if perr != nil {
		return 0, fmt.Errorf("resampler: %w", perr)
	}
	data := fromFloat(out)
	data = data[:len(data)/r.dstFmt.sampleBytes()*r.dstFmt.sampleBytes()]
	w := copy(p, data)
	if w < len(data) {
		r.pending = append(r.pending[:0], data[w:]...)
	}
	return w, err
}

// Close releases the resampler. Later reads return io.ErrClosedPipe.
func (r *Reader) Close() error {
	return r.CloseWithError(fmt.Errorf("resampler: %w", io.ErrClosedPipe))
}

// CloseWithError releases the resampler. Later reads return err once pending
// output is drained.
func (r *Reader) CloseWithError(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
	r.rs = nil
	return nil
}

// Convert converts a whole PCM buffer from src to dst. pcm must hold whole
// frames of src.
func Convert(pcm []byte, src, dst Format) ([]byte, error) {
	if src.SampleRate > 0 && len(pcm)%src.sampleBytes() != 0 {
		return nil, fmt.Errorf("resampler: %d bytes is not a whole number of %d-byte frames", len(pcm), src.sampleBytes())
	}
	if src == dst {
		return slices.Clone(pcm), nil
	}
	r, err := New(bytes.NewReader(pcm), src, dst)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return out, nil
}

func remix(buf []byte, n int, src, dst Format) []byte {
	switch {
	case src.Stereo && !dst.Stereo:
		return buf[:stereoToMono(buf[:n])]
	case !src.Stereo && dst.Stereo:
		return buf[:monoToStereo(buf[:n*2])]
	default:
		return buf[:n]
	}
}

func toFloat(pcm []byte) []float64 {
	out := make([]float64, len(pcm)/2)
	for i := range out {
		out[i] = float64(int16(pcm[2*i])|int16(pcm[2*i+1])<<8) / 32768
	}
	return out
}

func fromFloat(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(math.Max(-32768, math.Min(32767, math.Round(s*32767))))
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

// stereoToMono averages each L/R pair in place and returns the mono length.
func stereoToMono(b []byte) int {
	frames := len(b) / 4
	for i := range frames {
		l := int16(b[4*i]) | int16(b[4*i+1])<<8
		r := int16(b[4*i+2]) | int16(b[4*i+3])<<8
		m := int16((int32(l) + int32(r)) / 2)
		b[2*i] = byte(m)
		b[2*i+1] = byte(m >> 8)
	}
	return frames * 2
}

// monoToStereo duplicates each sample of the mono first half of b in place
// and returns len(b).
func monoToStereo(b []byte) int {
	for i := len(b)/4 - 1; i >= 0; i-- {
		lo, hi := b[2*i], b[2*i+1]
		b[4*i], b[4*i+1] = lo, hi
		b[4*i+2], b[4*i+3] = lo, hi
	}
	return len(b)
}
