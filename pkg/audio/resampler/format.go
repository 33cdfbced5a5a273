package resampler

import (
	"iter"
	"time"
)

// Realtime is the input audio format of the Realtime API.
var Realtime = Format{SampleRate: 24000}

// Format describes 16-bit signed little-endian PCM.
type Format struct {
	// SampleRate is the sample rate in Hz.
	SampleRate int

	// Stereo selects two interleaved channels; mono otherwise.
	Stereo bool
}

func (f Format) channels() int {
	if f.Stereo {
		return 2
	}
	return 1
}

func (f Format) sampleBytes() int {
	return f.channels() * 2
}

// Duration returns the playback time of n bytes of audio in f.
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	frames := int64(n / f.sampleBytes())
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// BytesFor returns the number of bytes holding d of audio in f, rounded down
// to whole frames.
func (f Format) BytesFor(d time.Duration) int {
	frames := int64(d) * int64(f.SampleRate) / int64(time.Second)
	return int(frames) * f.sampleBytes()
}

// Chunks splits pcm into consecutive pieces of d each. The last piece may be
// shorter. A d shorter than one frame yields pcm whole.
func Chunks(pcm []byte, f Format, d time.Duration) iter.Seq[[]byte] {
	size := f.BytesFor(d)
	return func(yield func([]byte) bool) {
		if len(pcm) == 0 {
			return
		}
		if size <= 0 {
			yield(pcm)
			return
		}
		for off := 0; off < len(pcm); off += size {
			end := min(off+size, len(pcm))
			if !yield(pcm[off:end]) {
				return
			}
		}
	}
}
