// Package resampler converts 16-bit signed PCM between sample rates and
// channel layouts.
//
// The Realtime API expects input audio as 24 kHz mono PCM16. Convert and
// Reader bring recorded audio into that layout before it is appended to the
// input audio buffer, and Chunks splits it into deltas of a fixed duration:
//
//	pcm, err := resampler.Convert(raw, resampler.Format{SampleRate: 16000}, resampler.Realtime)
//	if err != nil {
//	    return err
//	}
//	for chunk := range resampler.Chunks(pcm, resampler.Realtime, 100*time.Millisecond) {
//	    conv.SendAudioDelta(chunk)
//	}
//
// Resampling is done by github.com/tphakala/go-audio-resampling.
package resampler
