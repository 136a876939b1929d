package source

import (
	"fmt"
	"sync"
)

// Leases grants exclusive use of capture devices by index.
type Leases struct {
	mu   sync.Mutex
	held map[int]bool
}

// NewLeases returns an empty lease table.
func NewLeases() *Leases {
	return &Leases{held: make(map[int]bool)}
}

// devices is the lease table shared by New. Capture devices are process-wide.
var devices = NewLeases()

// Acquire claims device or returns ErrDeviceBusy.
func (l *Leases) Acquire(device int) (*Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[device] {
		return nil, fmt.Errorf("%w: device %d", ErrDeviceBusy, device)
	}
	l.held[device] = true
	return &Lease{table: l, device: device}, nil
}

// Held reports whether device is currently leased.
func (l *Leases) Held(device int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[device]
}

func (l *Leases) release(device int) {
	l.mu.Lock()
	delete(l.held, device)
	l.mu.Unlock()
}

// Lease is a claim on one device.
type Lease struct {
	table  *Leases
	device int
	once   sync.Once
}

// Device returns the leased device index.
func (l *Lease) Device() int { return l.device }

// Release returns the device. Later calls are no-ops.
func (l *Lease) Release() {
	l.once.Do(func() { l.table.release(l.device) })
}
