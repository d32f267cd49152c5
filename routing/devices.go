package routing

import "github.com/meridianav/avcore"

// Devices is the registry aggregating every Session a client currently
// holds, keyed by device name. It has no teacher analogue by itself;
// it plays the role the teacher's daemon gives a single EnclaveClient,
// generalized to many concurrent sessions.
type Devices struct {
	byName map[avcore.Name]*Session
}

func NewDevices() *Devices {
	return &Devices{byName: make(map[avcore.Name]*Session)}
}

func (d *Devices) Add(s *Session) {
	d.byName[s.name] = s
}

func (d *Devices) Get(name avcore.Name) (*Session, bool) {
	s, ok := d.byName[name]
	return s, ok
}

func (d *Devices) Remove(name avcore.Name) {
	if s, ok := d.byName[name]; ok {
		s.Close()
		delete(d.byName, name)
	}
}

func (d *Devices) Len() int { return len(d.byName) }

// Each invokes fn for every session, in an unspecified order; fn must
// not add or remove sessions.
func (d *Devices) Each(fn func(*Session)) {
	for _, s := range d.byName {
		fn(s)
	}
}
