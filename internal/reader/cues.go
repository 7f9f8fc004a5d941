package reader

import "time"

// Sound names a sound effect the client plays.
type Sound string

const (
	SoundMagicOpen Sound = "magic_open"
	SoundPageFlip  Sound = "page_flip"
	SoundCheer     Sound = "cheer"
	SoundClick     Sound = "click"
	SoundBookClose Sound = "book_close"
)

// volumes are the playback levels for each sound.
var volumes = map[Sound]float64{
	SoundMagicOpen: 0.4,
	SoundPageFlip:  0.6,
	SoundCheer:     0.4,
	SoundClick:     0.3,
	SoundBookClose: 0.7,
}

// Volume returns the playback level for a sound in [0, 1].
func Volume(s Sound) float64 {
	return volumes[s]
}

// Cue is one sound the client should play. Seq increases by one per cue
// within a session, so clients poll with the last Seq they saw.
type Cue struct {
	Seq    uint64    `json:"seq"`
	Sound  Sound     `json:"sound"`
	Volume float64   `json:"volume"`
	At     time.Time `json:"at"`
}

func (s *Session) addCueLocked(sound Sound) {
	s.seq++
	s.cues = append(s.cues, Cue{
		Seq:    s.seq,
		Sound:  sound,
		Volume: Volume(sound),
		At:     time.Now(),
	})
}

// LastCueSeq returns the sequence number of the newest cue.
func (s *Session) LastCueSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
