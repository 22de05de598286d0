package metrics

// Event names emitted by the session layer.
const (
	EventSessionConnect  = "session_connect"
	EventSessionOpen     = "session_open"
	EventSessionClose    = "session_close"
	EventSessionError    = "session_error"
	EventQueueFlush      = "queue_flush"
	EventCodecError      = "codec_error"
	EventInterrupted     = "interrupted"
	EventFirstAudioMS    = "first_audio_latency_ms"
	EventCaptionLine     = "caption_line"
	EventPlaybackStarted = "playback_started"
)
