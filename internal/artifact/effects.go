package artifact

import (
	"encoding/json"
	"fmt"
	"strings"

	"ptbscope/internal/domain"
)

// ObjectChange is one object mentioned by the effects and what happened to it.
type ObjectChange struct {
	ObjectID string
	Version  *uint64
	Status   domain.ObjectStatus
}

type Effects struct {
	Version string // "V1" or "V2"
	Digest  string
	Epoch   *uint64
	Status  domain.ExecutionStatus
	Changes []ObjectChange
}

type rawEffectsV1 struct {
	Status               json.RawMessage   `json:"status"`
	ExecutedEpoch        json.RawMessage   `json:"executed_epoch"`
	TransactionDigest    string            `json:"transaction_digest"`
	Created              []json.RawMessage `json:"created"`
	Mutated              []json.RawMessage `json:"mutated"`
	Unwrapped            []json.RawMessage `json:"unwrapped"`
	Deleted              []json.RawMessage `json:"deleted"`
	Wrapped              []json.RawMessage `json:"wrapped"`
	UnwrappedThenDeleted []json.RawMessage `json:"unwrapped_then_deleted"`
	SharedObjects        []json.RawMessage `json:"shared_objects"`
}

type rawEffectsV2 struct {
	Status                 json.RawMessage   `json:"status"`
	ExecutedEpoch          json.RawMessage   `json:"executed_epoch"`
	TransactionDigest      string            `json:"transaction_digest"`
	LamportVersion         json.RawMessage   `json:"lamport_version"`
	ChangedObjects         []json.RawMessage `json:"changed_objects"`
	UnchangedSharedObjects []json.RawMessage `json:"unchanged_shared_objects"`
}

// DecodeEffects reads the effects artifact, either {"V1": ...} or {"V2": ...}.
func DecodeEffects(payload []byte) (Effects, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return Effects{}, wrongShape(ArtifactEffects, "", err)
	}
	if body, ok := top["V2"]; ok {
		return decodeEffectsV2(body)
	}
	if body, ok := top["V1"]; ok {
		return decodeEffectsV1(body)
	}
	return Effects{}, &FieldError{Artifact: ArtifactEffects, Field: "version", Err: ErrUnsupported}
}

func decodeEffectsV1(body json.RawMessage) (Effects, error) {
	var raw rawEffectsV1
	if err := json.Unmarshal(body, &raw); err != nil {
		return Effects{}, wrongShape(ArtifactEffects, "V1", err)
	}
	out := Effects{Version: "V1", Digest: raw.TransactionDigest}
	if isAbsent(raw.Status) {
		return Effects{}, missing(ArtifactEffects, "V1.status")
	}
	var err error
	if out.Status, err = decodeStatus(raw.Status); err != nil {
		return Effects{}, wrongShape(ArtifactEffects, "V1.status", err)
	}
	if out.Epoch, err = decodeUint64(raw.ExecutedEpoch); err != nil {
		return Effects{}, wrongShape(ArtifactEffects, "V1.executed_epoch", err)
	}
	groups := []struct {
		field  string
		items  []json.RawMessage
		status domain.ObjectStatus
	}{
		{"created", raw.Created, domain.StatusCreated},
		{"mutated", raw.Mutated, domain.StatusModified},
		{"unwrapped", raw.Unwrapped, domain.StatusModified},
		{"deleted", raw.Deleted, domain.StatusDeleted},
		{"wrapped", raw.Wrapped, domain.StatusDeleted},
		{"unwrapped_then_deleted", raw.UnwrappedThenDeleted, domain.StatusDeleted},
		{"shared_objects", raw.SharedObjects, domain.StatusAccessed},
	}
	for _, g := range groups {
		for i, item := range g.items {
			ref, ok := decodeOwnedRef(item)
			if !ok {
				return Effects{}, wrongShape(ArtifactEffects, fmt.Sprintf("V1.%s[%d]", g.field, i), nil)
			}
			out.Changes = append(out.Changes, ObjectChange{ObjectID: ref.ObjectID, Version: ref.Version, Status: g.status})
		}
	}
	return out, nil
}

// decodeOwnedRef accepts a plain ref or a [ref, owner] pair.
func decodeOwnedRef(raw json.RawMessage) (domain.ObjectRef, bool) {
	if items, ok := decodeTuple(raw); ok && len(items) == 2 {
		if _, nested := decodeTuple(items[0]); nested {
			return decodeObjectRef(items[0])
		}
	}
	return decodeObjectRef(raw)
}

type rawChange struct {
	InputState  json.RawMessage `json:"input_state"`
	OutputState json.RawMessage `json:"output_state"`
	IDOperation string          `json:"id_operation"`
}

func decodeEffectsV2(body json.RawMessage) (Effects, error) {
	var raw rawEffectsV2
	if err := json.Unmarshal(body, &raw); err != nil {
		return Effects{}, wrongShape(ArtifactEffects, "V2", err)
	}
	out := Effects{Version: "V2", Digest: raw.TransactionDigest}
	if isAbsent(raw.Status) {
		return Effects{}, missing(ArtifactEffects, "V2.status")
	}
	var err error
	if out.Status, err = decodeStatus(raw.Status); err != nil {
		return Effects{}, wrongShape(ArtifactEffects, "V2.status", err)
	}
	if out.Epoch, err = decodeUint64(raw.ExecutedEpoch); err != nil {
		return Effects{}, wrongShape(ArtifactEffects, "V2.executed_epoch", err)
	}
	lamport, err := decodeUint64(raw.LamportVersion)
	if err != nil {
		return Effects{}, wrongShape(ArtifactEffects, "V2.lamport_version", err)
	}

	for i, item := range raw.ChangedObjects {
		field := fmt.Sprintf("V2.changed_objects[%d]", i)
		pair, ok := decodeTuple(item)
		if !ok || len(pair) != 2 {
			return Effects{}, wrongShape(ArtifactEffects, field, nil)
		}
		id, ok := decodeObjectID(pair[0])
		if !ok {
			return Effects{}, missing(ArtifactEffects, field+".id")
		}
		change := ObjectChange{ObjectID: id}
		if tag, ok := decodeString(pair[1]); ok {
			status, err := statusFromTag(tag)
			if err != nil {
				return Effects{}, &FieldError{Artifact: ArtifactEffects, Field: field, Err: err}
			}
			change.Status = status
		} else {
			var c rawChange
			if err := json.Unmarshal(pair[1], &c); err != nil {
				return Effects{}, wrongShape(ArtifactEffects, field, err)
			}
			status, err := statusFromChange(c)
			if err != nil {
				return Effects{}, &FieldError{Artifact: ArtifactEffects, Field: field, Err: err}
			}
			change.Status = status
			change.Version = outputVersion(c.OutputState)
		}
		if change.Version == nil && change.Status != domain.StatusDeleted {
			change.Version = lamport
		}
		out.Changes = append(out.Changes, change)
	}

	for i, item := range raw.UnchangedSharedObjects {
		field := fmt.Sprintf("V2.unchanged_shared_objects[%d]", i)
		pair, ok := decodeTuple(item)
		if !ok || len(pair) == 0 {
			return Effects{}, wrongShape(ArtifactEffects, field, nil)
		}
		id, ok := decodeObjectID(pair[0])
		if !ok {
			return Effects{}, missing(ArtifactEffects, field+".id")
		}
		out.Changes = append(out.Changes, ObjectChange{ObjectID: id, Status: domain.StatusAccessed})
	}
	return out, nil
}

func statusFromTag(tag string) (domain.ObjectStatus, error) {
	switch tag {
	case "Created":
		return domain.StatusCreated, nil
	case "Mutated", "Modified":
		return domain.StatusModified, nil
	case "Deleted", "Wrapped":
		return domain.StatusDeleted, nil
	default:
		return domain.StatusUnset, fmt.Errorf("%w change %q", ErrUnsupported, tag)
	}
}

func statusFromChange(c rawChange) (domain.ObjectStatus, error) {
	switch c.IDOperation {
	case "Created":
		return domain.StatusCreated, nil
	case "Deleted":
		return domain.StatusDeleted, nil
	case "None", "":
		if s, ok := decodeString(c.OutputState); ok && s == "NotExist" {
			return domain.StatusDeleted, nil
		}
		return domain.StatusModified, nil
	default:
		return domain.StatusUnset, fmt.Errorf("%w id_operation %q", ErrUnsupported, c.IDOperation)
	}
}

// outputVersion reads the version carried by a PackageWrite output state,
// {"PackageWrite": [version, digest]}. Object writes take the lamport version.
func outputVersion(raw json.RawMessage) *uint64 {
	tag, value, ok := decodeTagged(raw)
	if !ok || tag != "PackageWrite" {
		return nil
	}
	items, ok := decodeTuple(value)
	if !ok || len(items) == 0 {
		return nil
	}
	v, err := decodeUint64(items[0])
	if err != nil {
		return nil
	}
	return v
}

// decodeStatus accepts "Success", {"Failure": {"error": ...}} and
// {"status": "success"|"failure", "error": ...}.
func decodeStatus(raw json.RawMessage) (domain.ExecutionStatus, error) {
	if s, ok := decodeString(raw); ok {
		if strings.EqualFold(s, "success") {
			return domain.ExecutionStatus{Success: true}, nil
		}
		return domain.ExecutionStatus{Error: s}, nil
	}
	if tag, value, ok := decodeTagged(raw); ok && tag == "Failure" {
		var failure struct {
			Error json.RawMessage `json:"error"`
		}
		_ = json.Unmarshal(value, &failure)
		return domain.ExecutionStatus{Error: errorText(failure.Error)}, nil
	}
	var obj struct {
		Status string          `json:"status"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return domain.ExecutionStatus{}, err
	}
	if obj.Status == "" {
		return domain.ExecutionStatus{}, ErrWrongShape
	}
	if strings.EqualFold(obj.Status, "success") {
		return domain.ExecutionStatus{Success: true}, nil
	}
	return domain.ExecutionStatus{Error: errorText(obj.Error)}, nil
}

func errorText(raw json.RawMessage) string {
	if isAbsent(raw) {
		return "unknown failure"
	}
	if s, ok := decodeString(raw); ok {
		return s
	}
	return string(raw)
}
