package session

import (
	"context"
	"sync"
	"time"

	"github.com/Kuritho/vendo-finder-final/internal/cart"
	"github.com/Kuritho/vendo-finder-final/internal/catalog"
)

// Device holds the screen states of one device. Callers get it locked from
// Registry.Acquire and must call Release.
type Device struct {
	mu       sync.Mutex
	id       string
	lastSeen time.Time
	catalogs map[string]catalog.State
	carts    map[string]cart.State
}

func (d *Device) ID() string { return d.id }

func (d *Device) Release() { d.mu.Unlock() }

func (d *Device) Catalog(machineID string) (catalog.State, bool) {
	s, ok := d.catalogs[machineID]
	return s, ok
}

func (d *Device) SetCatalog(s catalog.State) {
	d.catalogs[s.MachineID] = s
}

func (d *Device) Cart(machineID string) (cart.State, bool) {
	s, ok := d.carts[machineID]
	return s, ok
}

func (d *Device) SetCart(s cart.State) {
	d.carts[s.MachineID] = s
}

// Registry keeps per-device screen state in memory and forgets devices that
// stay idle longer than the configured TTL.
type Registry struct {
	mu      sync.Mutex
	devices map[string]*Device
	idleTTL time.Duration
	now     func() time.Time
}

func NewRegistry(idleTTL time.Duration) *Registry {
	return &Registry{
		devices: make(map[string]*Device),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Acquire returns the device locked for exclusive use.
func (r *Registry) Acquire(deviceID string) *Device {
	r.mu.Lock()
	d, ok := r.devices[deviceID]
	if !ok {
		d = &Device{
			id:       deviceID,
			catalogs: make(map[string]catalog.State),
			carts:    make(map[string]cart.State),
		}
		r.devices[deviceID] = d
	}
	d.lastSeen = r.now()
	r.mu.Unlock()

	d.mu.Lock()
	return d
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// Sweep drops idle devices and returns how many were removed. Devices in use
// are skipped.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, d := range r.devices {
		if d.lastSeen.After(cutoff) {
			continue
		}
		if !d.mu.TryLock() {
			continue
		}
		delete(r.devices, id)
		d.mu.Unlock()
		removed++
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}
