package ports

// Recorder receives per-chunk observations from the ingestion loop.
// Every method is labeled by the inbound peer address. Implementations must be
// safe for concurrent use.
type Recorder interface {
	// IncChunks counts one chunk read from the inbound peer.
	IncChunks(peer string)

	// ObserveSize records the byte length of one chunk.
	ObserveSize(peer string, n int)
}

// NopRecorder discards every observation.
type NopRecorder struct{}

func (NopRecorder) IncChunks(string)        {}
func (NopRecorder) ObserveSize(string, int) {}
