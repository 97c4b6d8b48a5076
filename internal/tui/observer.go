package tui

// UploadProgress is one progress report for a file being uploaded
type UploadProgress struct {
	Filename string
	Percent  int
}

// ChannelObserver adapts upload progress callbacks to a channel for Bubble Tea.
type ChannelObserver struct {
	filename string
	ch       chan<- UploadProgress
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver(filename string, ch chan<- UploadProgress) *ChannelObserver {
	return &ChannelObserver{filename: filename, ch: ch}
}

// OnProgress sends progress to the channel (non-blocking if full).
// It satisfies domain.ProgressFunc.
func (o *ChannelObserver) OnProgress(percent int) {
	select {
	case o.ch <- UploadProgress{Filename: o.filename, Percent: percent}:
	default: // Non-blocking if channel full
	}
}
