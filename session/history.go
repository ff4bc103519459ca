package session

import (
	"time"

	"github.com/swdee/go-posematch"
)

// Update is published after every scored frame
type Update struct {
	Time time.Time `json:"time"`
	// Score is only meaningful when OK is true
	Score   float64         `json:"score"`
	OK      bool            `json:"ok"`
	Matched int             `json:"matched"`
	Grade   posematch.Grade `json:"-"`
	Label   string          `json:"grade"`
	// Poses is the number of people detected in the frame
	Poses int `json:"poses"`
	// Pose is the candidate reduced to its matched keypoints
	Pose posematch.Pose `json:"pose"`
}

func newUpdate(res posematch.Result, poses int) Update {
	g := res.Grade()

	return Update{
		Time:    time.Now(),
		Score:   res.Score,
		OK:      res.OK,
		Matched: res.Matched,
		Grade:   g,
		Label:   g.String(),
		Poses:   poses,
		Pose:    res.Cleaned,
	}
}

// publish records the update and fans it out to subscribers without
// blocking, a subscriber with a full buffer misses the update
func (s *Session) publish(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := u
	s.history.Add(&entry)

	if u.OK {
		last := u
		s.lastValid = &last
	}

	for ch := range s.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// History returns the retained updates, oldest first
func (s *Session) History() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Update, 0, s.history.Len())

	for i := 0; i < s.history.Len(); i++ {
		out = append(out, *s.history.Peek(i))
	}

	return out
}

// LastUpdate returns the most recent update
func (s *Session) LastUpdate() (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.history.Len() == 0 {
		return Update{}, false
	}

	return *s.history.Peek(s.history.Len() - 1), true
}

// LastScore returns the most recent valid score, it survives later frames
// that could not be scored
func (s *Session) LastScore() (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastValid == nil {
		return Update{}, false
	}

	return *s.lastValid, true
}

// Subscribe returns a channel receiving every update published from now on
// and a function to stop the subscription.  The channel is closed when the
// subscription stops or the session is closed.
func (s *Session) Subscribe(buffer int) (<-chan Update, func()) {

	if buffer < 1 {
		buffer = 1
	}

	ch := make(chan Update, buffer)

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}

	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

func (s *Session) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}
