package domain

import "time"

// Metadata is the best-effort track metadata assembled from whichever origin
// provider produced the stream. Every field may be empty; consumers must
// tolerate missing values.
type Metadata struct {
	Title       string
	Artists     []string
	Album       string
	Year        int
	TrackNumber int
	TotalTracks int
	CoverURL    string
	CoverArt    []byte
	HiRes       bool
}

// Artist joins the artist list for single-field consumers such as tag
// writers and zip filenames.
func (m Metadata) Artist() string {
	switch len(m.Artists) {
	case 0:
		return ""
	case 1:
		return m.Artists[0]
	}
	out := m.Artists[0]
	for _, a := range m.Artists[1:] {
		out += ", " + a
	}
	return out
}

// PlayEvent records one successful stream delivery.
type PlayEvent struct {
	TrackID  string    `json:"trackId"`
	Title    string    `json:"title"`
	Artist   string    `json:"artist"`
	Provider string    `json:"provider"`
	HiRes    bool      `json:"hiRes"`
	PlayedAt time.Time `json:"playedAt"`
}
