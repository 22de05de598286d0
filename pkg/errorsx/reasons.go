package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonPermissionDenied  ReasonCode = "permission_denied"
	ReasonMissingCredential ReasonCode = "missing_credential"

	ReasonRTConnect ReasonCode = "rt_connect"
	ReasonRTSend    ReasonCode = "rt_send"
	ReasonRTClosed  ReasonCode = "rt_closed"

	ReasonCodecTruncatedFrame ReasonCode = "codec_truncated_frame"
	ReasonCodecDecode         ReasonCode = "codec_decode"

	ReasonPlaybackSink ReasonCode = "playback_sink"
	ReasonDeviceOpen   ReasonCode = "device_open"

	ReasonCaptionConnect ReasonCode = "caption_connect"
	ReasonCaptionSend    ReasonCode = "caption_send"
)
