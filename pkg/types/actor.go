package types

import "strings"

// SystemActorID attributes writes made by tooling rather than a person.
const SystemActorID = "system"

// Actor identifies who performed a write. It is passed explicitly into every
// mutating service call and recorded on serials and movement rows.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// NewActor trims the inputs and falls back to the id for the display name.
func NewActor(id, name string) Actor {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if name == "" {
		name = id
	}
	return Actor{ID: id, Name: name}
}

// IsZero reports whether no actor id is set.
func (a Actor) IsZero() bool {
	return strings.TrimSpace(a.ID) == ""
}

// OrSystem returns the actor, or the system actor when none is set.
func (a Actor) OrSystem() Actor {
	if a.IsZero() {
		return Actor{ID: SystemActorID, Name: SystemActorID}
	}
	return a
}
