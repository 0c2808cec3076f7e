package artifact

import (
	"encoding/json"
	"fmt"

	"ptbscope/internal/domain"

	"github.com/holiman/uint256"
)

type ObjectStorage struct {
	ObjectID      string
	Size          uint64
	StorageCost   *uint256.Int
	StorageRebate *uint256.Int
}

// GasReport is the gas artifact. ComputationCost, StorageCost and
// StorageRebate are always set after a successful decode.
type GasReport struct {
	ComputationCost *uint256.Int
	StorageCost     *uint256.Int
	StorageRebate   *uint256.Int
	Price           *uint256.Int
	Budget          *uint256.Int
	RebateRate      uint64
	PerObject       []ObjectStorage
}

type rawGasReport struct {
	GasUsed           *rawGasUsed       `json:"gas_used"`
	GasPrice          json.RawMessage   `json:"gas_price"`
	GasBudget         json.RawMessage   `json:"gas_budget"`
	StorageRebateRate json.RawMessage   `json:"storage_rebate_rate"`
	PerObjectStorage  []json.RawMessage `json:"per_object_storage"`
}

type rawGasUsed struct {
	ComputationCost json.RawMessage `json:"computation_cost"`
	StorageCost     json.RawMessage `json:"storage_cost"`
	StorageRebate   json.RawMessage `json:"storage_rebate"`
}

type rawObjectStorage struct {
	ObjectID      json.RawMessage `json:"object_id"`
	Size          json.RawMessage `json:"size"`
	NewSize       json.RawMessage `json:"new_size"`
	StorageCost   json.RawMessage `json:"storage_cost"`
	StorageRebate json.RawMessage `json:"storage_rebate"`
}

func DecodeGasReport(payload []byte) (GasReport, error) {
	var raw rawGasReport
	if err := json.Unmarshal(payload, &raw); err != nil {
		return GasReport{}, wrongShape(ArtifactGas, "", err)
	}
	if raw.GasUsed == nil {
		return GasReport{}, missing(ArtifactGas, "gas_used")
	}
	out := GasReport{RebateRate: domain.DefaultRebateRate}
	required := []struct {
		field string
		raw   json.RawMessage
		dst   **uint256.Int
	}{
		{"gas_used.computation_cost", raw.GasUsed.ComputationCost, &out.ComputationCost},
		{"gas_used.storage_cost", raw.GasUsed.StorageCost, &out.StorageCost},
		{"gas_used.storage_rebate", raw.GasUsed.StorageRebate, &out.StorageRebate},
	}
	for _, r := range required {
		if isAbsent(r.raw) {
			return GasReport{}, missing(ArtifactGas, r.field)
		}
		v, err := decodeAmount(r.raw)
		if err != nil {
			return GasReport{}, wrongShape(ArtifactGas, r.field, err)
		}
		*r.dst = v
	}

	var err error
	if out.Price, err = decodeAmount(raw.GasPrice); err != nil {
		return GasReport{}, wrongShape(ArtifactGas, "gas_price", err)
	}
	if out.Budget, err = decodeAmount(raw.GasBudget); err != nil {
		return GasReport{}, wrongShape(ArtifactGas, "gas_budget", err)
	}
	rate, err := decodeUint64(raw.StorageRebateRate)
	if err != nil {
		return GasReport{}, wrongShape(ArtifactGas, "storage_rebate_rate", err)
	}
	if rate != nil {
		if *rate > domain.RebateRateBasis {
			return GasReport{}, &FieldError{
				Artifact: ArtifactGas,
				Field:    "storage_rebate_rate",
				Err:      fmt.Errorf("%w: %d exceeds %d", ErrWrongShape, *rate, domain.RebateRateBasis),
			}
		}
		out.RebateRate = *rate
	}

	for i, item := range raw.PerObjectStorage {
		entry, err := decodeObjectStorage(item)
		if err != nil {
			return GasReport{}, wrongShape(ArtifactGas, fmt.Sprintf("per_object_storage[%d]", i), err)
		}
		out.PerObject = append(out.PerObject, entry)
	}
	return out, nil
}

// decodeObjectStorage accepts {"object_id", ...} and [id, {...}].
func decodeObjectStorage(raw json.RawMessage) (ObjectStorage, error) {
	var (
		body rawObjectStorage
		id   string
	)
	if items, ok := decodeTuple(raw); ok {
		if len(items) != 2 {
			return ObjectStorage{}, ErrWrongShape
		}
		var idOK bool
		if id, idOK = decodeObjectID(items[0]); !idOK {
			return ObjectStorage{}, ErrMissing
		}
		if err := json.Unmarshal(items[1], &body); err != nil {
			return ObjectStorage{}, err
		}
	} else {
		if err := json.Unmarshal(raw, &body); err != nil {
			return ObjectStorage{}, err
		}
		var idOK bool
		if id, idOK = decodeObjectID(body.ObjectID); !idOK {
			return ObjectStorage{}, ErrMissing
		}
	}

	out := ObjectStorage{ObjectID: id}
	sizeRaw := body.Size
	if isAbsent(sizeRaw) {
		sizeRaw = body.NewSize
	}
	size, err := decodeUint64(sizeRaw)
	if err != nil {
		return ObjectStorage{}, err
	}
	if size != nil {
		out.Size = *size
	}
	if out.StorageCost, err = decodeAmount(body.StorageCost); err != nil {
		return ObjectStorage{}, err
	}
	if out.StorageRebate, err = decodeAmount(body.StorageRebate); err != nil {
		return ObjectStorage{}, err
	}
	return out, nil
}

