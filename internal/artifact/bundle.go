package artifact

import (
	"bytes"
	"encoding/json"
)

// Bundle carries the five raw artifacts of one replay.
type Bundle struct {
	Cache       json.RawMessage `json:"cache"`
	Transaction json.RawMessage `json:"transaction"`
	Effects     json.RawMessage `json:"effects"`
	Gas         json.RawMessage `json:"gas"`
	Signatures  json.RawMessage `json:"signatures"`
}

// Decoded is a bundle whose artifacts all decoded.
type Decoded struct {
	Cache       Cache
	Transaction TransactionData
	Effects     Effects
	Gas         GasReport
	Signatures  Signatures
}

// Decode decodes every artifact in dependency order and stops at the first
// failure.
func (b Bundle) Decode() (Decoded, error) {
	var (
		out Decoded
		err error
	)
	if isAbsent(b.Cache) {
		return Decoded{}, &FieldError{Artifact: ArtifactCache, Err: ErrMissing}
	}
	if out.Cache, err = DecodeCache(b.Cache); err != nil {
		return Decoded{}, err
	}
	if isAbsent(b.Transaction) {
		return Decoded{}, &FieldError{Artifact: ArtifactTransaction, Err: ErrMissing}
	}
	if out.Transaction, err = DecodeTransaction(b.Transaction); err != nil {
		return Decoded{}, err
	}
	if isAbsent(b.Effects) {
		return Decoded{}, &FieldError{Artifact: ArtifactEffects, Err: ErrMissing}
	}
	if out.Effects, err = DecodeEffects(b.Effects); err != nil {
		return Decoded{}, err
	}
	if isAbsent(b.Gas) {
		return Decoded{}, &FieldError{Artifact: ArtifactGas, Err: ErrMissing}
	}
	if out.Gas, err = DecodeGasReport(b.Gas); err != nil {
		return Decoded{}, err
	}
	if isAbsent(b.Signatures) {
		return Decoded{}, &FieldError{Artifact: ArtifactSignatures, Err: ErrMissing}
	}
	if out.Signatures, err = DecodeSignatures(b.Signatures); err != nil {
		return Decoded{}, err
	}
	return out, nil
}

// Compact returns the bundle with each artifact re-encoded without
// insignificant whitespace.
func (b Bundle) Compact() Bundle {
	return Bundle{
		Cache:       compact(b.Cache),
		Transaction: compact(b.Transaction),
		Effects:     compact(b.Effects),
		Gas:         compact(b.Gas),
		Signatures:  compact(b.Signatures),
	}
}

func compact(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
