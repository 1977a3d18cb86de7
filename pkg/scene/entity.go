package scene

import "sync/atomic"

// UniqueID identifies a scene entity for the lifetime of the process
type UniqueID uint64

// VersionID is bumped every time an entity is edited
type VersionID uint64

var lastUID atomic.Uint64

// NewUniqueID returns a process-wide unique, non-zero identifier
func NewUniqueID() UniqueID {
	return UniqueID(lastUID.Add(1))
}

// Entity carries the identity and version shared by every scene element.
// Versions are edited between frames only.
type Entity struct {
	name    string
	uid     UniqueID
	version VersionID
}

func newEntity(name string) Entity {
	return Entity{name: name, uid: NewUniqueID()}
}

// Name returns the entity name
func (e *Entity) Name() string { return e.name }

// UID returns the unique identifier of the entity
func (e *Entity) UID() UniqueID { return e.uid }

// Version returns the current version of the entity
func (e *Entity) Version() VersionID { return e.version }

// BumpVersion marks the entity as edited
func (e *Entity) BumpVersion() { e.version++ }
