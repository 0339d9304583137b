package runtime

import (
	"net/http"

	"github.com/drblury/wormhole/internal/runtime/jsoncodec"
)

// StatsResponse is served at /stats on the metrics port.
type StatsResponse struct {
	Metrics       CorrelatorMetricsSnapshot `json:"metrics"`
	Pending       int                       `json:"pending"`
	NoisePatterns []string                  `json:"noise_patterns"`
	EventsTopic   string                    `json:"events_topic"`
	RecordsTopic  string                    `json:"records_topic"`
	Encoding      string                    `json:"encoding"`
}

// Stats collects the current correlator state.
func (s *Service) Stats() StatsResponse {
	return StatsResponse{
		Metrics:       s.metrics.Snapshot(),
		Pending:       s.correlator.Pending(),
		NoisePatterns: s.correlator.NoisePatterns(),
		EventsTopic:   s.Conf.EventsTopic,
		RecordsTopic:  s.Conf.RecordsTopic,
		Encoding:      s.codec.Name(),
	}
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := jsoncodec.Encode(w, s.Stats()); err != nil {
		s.Logger.Error("Failed to encode stats", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
