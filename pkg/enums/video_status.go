package enums

// VideoStatus mirrors the asset lifecycle reported by the video platform.
type VideoStatus string

const (
	VideoStatusPreparing VideoStatus = "preparing"
	VideoStatusReady     VideoStatus = "ready"
	VideoStatusErrored   VideoStatus = "errored"
)

var videoStatuses = set[VideoStatus]{VideoStatusPreparing, VideoStatusReady, VideoStatusErrored}

func (s VideoStatus) String() string { return string(s) }
func (s VideoStatus) IsValid() bool  { return videoStatuses.has(s) }

// ParseVideoStatus reports unknown provider values as preparing, alongside
// the error, so callers keep polling.
func ParseVideoStatus(raw string) (VideoStatus, error) {
	status, err := videoStatuses.parse("video status", raw)
	if err != nil {
		return VideoStatusPreparing, err
	}
	return status, nil
}
