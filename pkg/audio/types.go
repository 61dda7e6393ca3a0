package audio

// Voice channels carry 48 kHz stereo signed 16-bit little-endian PCM,
// chunked into 20 ms frames for the Opus transport.
const (
	// SampleRate is the transport sample rate in Hz.
	SampleRate = 48000

	// Channels is the number of interleaved channels on the transport.
	Channels = 2

	// FrameDurationMs is the length of one transport frame in milliseconds.
	FrameDurationMs = 20

	// FrameSamples is the number of samples per channel in one frame.
	FrameSamples = SampleRate * FrameDurationMs / 1000 // 960

	// FrameBytes is the byte length of one interleaved PCM frame:
	// 960 samples × 2 channels × 2 bytes per sample.
	FrameBytes = FrameSamples * Channels * 2
)
