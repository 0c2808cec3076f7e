package domain

import "ptbscope/internal/movetype"

// ObjectStatus is what the transaction did to an object. The zero value
// means the status has not been derived yet.
type ObjectStatus string

const (
	StatusUnset    ObjectStatus = ""
	StatusCreated  ObjectStatus = "created"
	StatusModified ObjectStatus = "modified"
	StatusDeleted  ObjectStatus = "deleted"
	StatusAccessed ObjectStatus = "accessed"
)

// ObjectSource is how an object entered the transaction.
type ObjectSource string

const (
	SourceUnset   ObjectSource = ""
	SourceInput   ObjectSource = "input"
	SourceGas     ObjectSource = "gas"
	SourceRuntime ObjectSource = "runtime"
)

type ObjectKind string

const (
	ObjectKindPackage    ObjectKind = "package"
	ObjectKindMoveObject ObjectKind = "move_object"
	ObjectKindUnknown    ObjectKind = "unknown"
)

// ObjectRecord is one object or package touched by the transaction.
// Version is nil when no source carried it.
type ObjectRecord struct {
	ObjectID string
	Version  *uint64
	Kind     ObjectKind
	Modules  []string
	Type     movetype.Type
	Status   ObjectStatus
	Source   ObjectSource
}

func (o ObjectRecord) IsPackage() bool {
	return o.Kind == ObjectKindPackage
}

// ObjectRef is an (id, version, digest) triple as found in gas payments and
// owned object inputs.
type ObjectRef struct {
	ObjectID string
	Version  *uint64
	Digest   string
}
