package storage

// CapabilityKind names a capability a stored resource may expose, such as
// "energy" for a battery item.
type CapabilityKind string

// Capability is a host-defined object attached to the contents of a slot.
// The engine never interprets it.
type Capability interface {
	Kind() CapabilityKind
}

// CapabilityProvider resolves a capability for the contents of slot. It is
// only called for non-empty slots.
type CapabilityProvider func(slot *Slot) (Capability, bool)

// RegisterCapability installs the provider for kind, replacing any
// previous one.
func (s *Storage) RegisterCapability(kind CapabilityKind, provider CapabilityProvider) {
	if s.capabilities == nil {
		s.capabilities = make(map[CapabilityKind]CapabilityProvider)
	}
	s.capabilities[kind] = provider
}

// FindCapability looks up kind on the contents of slot i.
func (s *Storage) FindCapability(i int, kind CapabilityKind) (Capability, bool) {
	slot := s.Slot(i)
	if slot.IsEmpty() {
		return nil, false
	}
	provider, ok := s.capabilities[kind]
	if !ok {
		return nil, false
	}
	return provider(slot)
}
