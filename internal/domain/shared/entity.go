package shared

import "time"

// Entity is the base of every stored business object. Ids are document ids.
type Entity struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	// Revision is the stored version the entity was loaded from. Conditional
	// writes compare it with the store.
	Revision string
}

// IsNew reports whether the entity has not been stored yet
func (e *Entity) IsNew() bool {
	return e.ID == ""
}

// Touch updates the modification time
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// AggregateRoot records domain events raised while it is being changed. The
// application service publishes them after the change is stored.
type AggregateRoot struct {
	Entity
	events []DomainEvent
}

// AddDomainEvent records an event
func (a *AggregateRoot) AddDomainEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

// HasDomainEvents reports whether events are waiting to be published
func (a *AggregateRoot) HasDomainEvents() bool {
	return len(a.events) > 0
}

// PullDomainEvents returns the recorded events and clears them
func (a *AggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.events
	a.events = nil
	return events
}
