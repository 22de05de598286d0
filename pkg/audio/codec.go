package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/verbalabs/verba/pkg/errorsx"
)

const (
	// CaptureRate is the fixed microphone capture rate.
	CaptureRate = 16000
	// PlaybackRate is the fixed rate of synthesized response audio.
	PlaybackRate = 24000
	// FrameSamples is the capture frame size forwarded per realtime input event.
	FrameSamples = 4096
)

// CaptureMIME identifies outbound blobs as 16 kHz mono PCM16.
const CaptureMIME = "audio/pcm;rate=16000"

// Blob is a wire-encoded audio payload.
type Blob struct {
	MIMEType string
	Data     string // base64 little-endian PCM16
}

// EncodePCM converts float samples in [-1,1] to little-endian PCM16 bytes.
// Samples outside the range are clamped. Positive samples scale by 32767,
// negative by 32768, matching the asymmetric int16 domain.
func EncodePCM(samples []float32) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

// EncodeFrame wraps EncodePCM output as a base64 wire blob.
func EncodeFrame(samples []float32) Blob {
	return Blob{
		MIMEType: CaptureMIME,
		Data:     base64.StdEncoding.EncodeToString(EncodePCM(samples)),
	}
}

// DecodeBlob reverses the base64 transform only; no resampling.
func DecodeBlob(data string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonCodecDecode)
	}
	return raw, nil
}

// DecodePlayable reinterprets little-endian PCM16 bytes as float samples and
// builds a playable buffer, de-interleaving by stride when channels > 1.
// A byte length that is not a whole number of interleaved samples is a hard
// failure for the chunk.
func DecodePlayable(pcm []byte, rate, channels int) (*Buffer, error) {
	if rate <= 0 || channels <= 0 {
		return nil, errorsx.New(errorsx.ReasonCodecDecode,
			fmt.Sprintf("invalid buffer shape: rate=%d channels=%d", rate, channels))
	}
	if len(pcm)%(2*channels) != 0 {
		return nil, errorsx.New(errorsx.ReasonCodecTruncatedFrame,
			fmt.Sprintf("truncated frame: %d bytes, %d channels", len(pcm), channels))
	}
	perChannel := len(pcm) / 2 / channels
	buf := NewBuffer(rate, channels, perChannel)
	for i := 0; i < perChannel; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 2
			v := int16(binary.LittleEndian.Uint16(pcm[off:]))
			buf.Channels[ch][i] = float32(v) / 32768.0
		}
	}
	return buf, nil
}

// RMS computes a root-mean-square volume estimate over a frame.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
