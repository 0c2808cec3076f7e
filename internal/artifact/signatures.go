package artifact

import (
	"encoding/json"
	"fmt"

	"ptbscope/internal/domain"
	"ptbscope/internal/movetype"
)

// Signatures holds one entry per command; nil where no signature was supplied.
type Signatures struct {
	Commands []*domain.Signature
}

type rawSignature struct {
	Parameters  []json.RawMessage `json:"parameters"`
	ReturnTypes []json.RawMessage `json:"return_types"`
}

func DecodeSignatures(payload []byte) (Signatures, error) {
	var raw struct {
		CommandSignatures *[]json.RawMessage `json:"command_signatures"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Signatures{}, wrongShape(ArtifactSignatures, "", err)
	}
	if raw.CommandSignatures == nil {
		return Signatures{}, missing(ArtifactSignatures, "command_signatures")
	}
	out := Signatures{Commands: make([]*domain.Signature, len(*raw.CommandSignatures))}
	for i, item := range *raw.CommandSignatures {
		if isAbsent(item) {
			continue
		}
		var sig rawSignature
		if err := json.Unmarshal(item, &sig); err != nil {
			return Signatures{}, wrongShape(ArtifactSignatures, fmt.Sprintf("command_signatures[%d]", i), err)
		}
		out.Commands[i] = &domain.Signature{
			Parameters: movetype.NormalizeAll(sig.Parameters),
			Returns:    movetype.NormalizeAll(sig.ReturnTypes),
		}
	}
	return out, nil
}

// EncodeSignature renders a signature back into the artifact shape using
// qualified type strings.
func EncodeSignature(sig *domain.Signature) json.RawMessage {
	if sig == nil {
		return json.RawMessage("null")
	}
	out := struct {
		Parameters  []movetype.Type `json:"parameters"`
		ReturnTypes []movetype.Type `json:"return_types"`
	}{sig.Parameters, sig.Returns}
	if out.Parameters == nil {
		out.Parameters = []movetype.Type{}
	}
	if out.ReturnTypes == nil {
		out.ReturnTypes = []movetype.Type{}
	}
	b, _ := json.Marshal(out)
	return b
}

// EncodeSignatures renders a full signatures artifact.
func EncodeSignatures(sigs []*domain.Signature) json.RawMessage {
	items := make([]json.RawMessage, len(sigs))
	for i, sig := range sigs {
		items[i] = EncodeSignature(sig)
	}
	b, _ := json.Marshal(struct {
		CommandSignatures []json.RawMessage `json:"command_signatures"`
	}{items})
	return b
}
