package remoteid

import (
	"fmt"
	"sync"
)

// Subsystem identifies an aircraft subsystem.
type Subsystem uint8

// Subsystems.
const (
	Propulsion Subsystem = 1
	Radio      Subsystem = 2
	RemoteID   Subsystem = 3
	Guidance   Subsystem = 4
	Power      Subsystem = 5
)

// AllSubsystems lists every Subsystem.
var AllSubsystems = []Subsystem{Propulsion, Radio, RemoteID, Guidance, Power}

// String implements fmt.Stringer.
func (s Subsystem) String() string {
	switch s {
	case Propulsion:
		return "propulsion"
	case Radio:
		return "radio"
	case RemoteID:
		return "remote-id"
	case Guidance:
		return "guidance"
	case Power:
		return "power"
	}
	return fmt.Sprintf("subsystem(%d)", uint8(s))
}

// Subsystems tracks the status of each subsystem and derives the
// broadcast Status from them. It's safe for concurrent use.
type Subsystems struct {
	lock      sync.RWMutex
	emergency map[Subsystem]bool
}

// SetStatus sets the status of a subsystem.
func (s *Subsystems) SetStatus(sub Subsystem, status Status) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.emergency == nil {
		s.emergency = make(map[Subsystem]bool)
	}
	s.emergency[sub] = status == StatusEmergency
}

// SubsystemStatus gets the status of a subsystem.
func (s *Subsystems) SubsystemStatus(sub Subsystem) Status {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.emergency[sub] {
		return StatusEmergency
	}
	return StatusOK
}

// Status is Emergency if any subsystem is in emergency.
func (s *Subsystems) Status() Status {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, emergency := range s.emergency {
		if emergency {
			return StatusEmergency
		}
	}
	return StatusOK
}
