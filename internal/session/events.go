package session

import (
	"time"

	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/discovery"
)

// Event is a state change handed to the interactive loop. Workers never
// touch Session state; they Post events and the loop Applies them.
type Event interface {
	isEvent()
}

// ResultLogged appends Result to the log. When Info is set and IP still
// matches the connection, the cached device info is replaced too.
type ResultLogged struct {
	Result TestResult
	Err    error
	IP     string
	Info   *deviceapi.DeviceInfo
}

// Connected replaces the connection wholesale
type Connected struct {
	IP     string
	Info   *deviceapi.DeviceInfo
	Client *deviceapi.Client
}

// Disconnected clears the connection
type Disconnected struct{}

// DevicesDiscovered replaces the device list in one batch
type DevicesDiscovered struct {
	Devices []*discovery.Device
}

// DeviceDiscovered adds one device unless its IP is already listed
type DeviceDiscovered struct {
	Device *discovery.Device
}

// BroadcastMessage is one raw datagram from the listener
type BroadcastMessage struct {
	From string
	Text string
	At   time.Time
}

// ListenerError reports that the listener died
type ListenerError struct {
	Err error
}

// ListenerStopped reports that the listener socket is closed
type ListenerStopped struct{}

// SequenceProgress reports one completed sequence step
type SequenceProgress struct {
	Name  string
	Step  int
	Total int
	Label string
	OK    bool
}

// SequenceFinished reports the end of a sequence run
type SequenceFinished struct {
	Name      string
	Steps     int
	Total     int
	Failed    int
	Cancelled bool
}

func (ResultLogged) isEvent()      {}
func (Connected) isEvent()         {}
func (Disconnected) isEvent()      {}
func (DevicesDiscovered) isEvent() {}
func (DeviceDiscovered) isEvent()  {}
func (BroadcastMessage) isEvent()  {}
func (ListenerError) isEvent()     {}
func (ListenerStopped) isEvent()   {}
func (SequenceProgress) isEvent()  {}
func (SequenceFinished) isEvent()  {}
