// Package profile implements the versioned, hierarchical profile store:
// parsing and writing profile documents, resolving the primary/secondary
// overlay, expanding sub-profile references, and crash-safe saves.
package profile

import "time"

// Type enumerates the profile types the store understands.
type Type string

// Profile types.
const (
	TypeSync    Type = "sync"
	TypeService Type = "service"
	TypeStorage Type = "storage"
	TypeClient  Type = "client"
	TypeServer  Type = "server"
)

// DestinationType distinguishes an online service sync from a tethered
// device sync.
type DestinationType string

// Destination types.
const (
	DestinationOnline DestinationType = "online"
	DestinationDevice DestinationType = "device"
)

// Profile is a named, typed configuration entity. It is either bare (just
// what the backing file contains) or expanded (sub-profile references
// resolved by Store.Expand).
type Profile struct {
	Name        string
	Type        Type
	Keys        map[string]string
	SubProfiles []*Profile
	Protected   bool
	Hidden      bool
	Enabled     bool

	expanded bool
}

// Key returns the scalar value for key, or "" if unset.
func (p *Profile) Key(key string) string {
	if p == nil || p.Keys == nil {
		return ""
	}
	return p.Keys[key]
}

// Expanded reports whether Store.Expand has resolved this profile's
// sub-profile references.
func (p *Profile) Expanded() bool {
	return p != nil && p.expanded
}

// SubProfile returns the uniquely named sub-profile of the given type, or
// nil if none matches.
func (p *Profile) SubProfile(name string, typ Type) *Profile {
	if p == nil {
		return nil
	}
	for _, sp := range p.SubProfiles {
		if sp.Name == name && sp.Type == typ {
			return sp
		}
	}
	return nil
}

// SubProfilesOfType returns every sub-profile of the given type.
func (p *Profile) SubProfilesOfType(typ Type) []*Profile {
	if p == nil {
		return nil
	}
	var out []*Profile
	for _, sp := range p.SubProfiles {
		if sp.Type == typ {
			out = append(out, sp)
		}
	}
	return out
}

// Clone returns a deep copy, so callers can mutate in-memory values
// without affecting the store's own state.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	clone := &Profile{
		Name:      p.Name,
		Type:      p.Type,
		Protected: p.Protected,
		Hidden:    p.Hidden,
		Enabled:   p.Enabled,
		expanded:  p.expanded,
	}
	if p.Keys != nil {
		clone.Keys = make(map[string]string, len(p.Keys))
		for k, v := range p.Keys {
			clone.Keys[k] = v
		}
	}
	for _, sp := range p.SubProfiles {
		clone.SubProfiles = append(clone.SubProfiles, sp.Clone())
	}
	return clone
}

// SyncProfile extends Profile with scheduling and retry metadata. It
// embeds a Profile rather than wrapping it so callers can treat it as a
// Profile where only the base attributes matter.
type SyncProfile struct {
	*Profile
	DestinationType DestinationType
	Schedule        SyncSchedule
	RetryIntervals  []time.Duration
	Log             *SyncLog
}

// RequiredTransport derives which connectivity kind this profile needs,
// a "bt" typed sub-profile means Bluetooth, an online
// destination means Internet, anything else defaults to USB.
func (sp *SyncProfile) RequiredTransport() TransportKind {
	for _, s := range sp.SubProfiles {
		if s.Type == "bt" {
			return TransportBT
		}
	}
	if sp.DestinationType == DestinationOnline {
		return TransportInternet
	}
	return TransportUSB
}

// StorageNames returns the names of this profile's storage-typed
// sub-profiles — the resource set a Scheduler reserves through a
// StorageBooker before starting a session.
func (sp *SyncProfile) StorageNames() []string {
	var names []string
	for _, sub := range sp.SubProfilesOfType(TypeStorage) {
		names = append(names, sub.Name)
	}
	return names
}

// TransportKind mirrors transport.Kind without importing the transport
// package, keeping profile free of a dependency on transport.
type TransportKind string

// Transport kinds a SyncProfile can require.
const (
	TransportUSB      TransportKind = "usb"
	TransportBT       TransportKind = "bt"
	TransportInternet TransportKind = "internet"
)
