package domain

import "time"

// Summary is the compact, storable digest of one aggregated transaction.
// Gas amounts are decimal strings.
type Summary struct {
	Digest           string               `json:"digest"`
	Sender           string               `json:"sender"`
	Success          bool                 `json:"success"`
	Error            string               `json:"error,omitempty"`
	Epoch            *uint64              `json:"epoch,omitempty"`
	Checkpoint       *uint64              `json:"checkpoint,omitempty"`
	ProtocolVersion  *uint64              `json:"protocol_version,omitempty"`
	EffectsVersion   string               `json:"effects_version"`
	ObjectCount      int                  `json:"object_count"`
	PackageCount     int                  `json:"package_count"`
	ByStatus         map[ObjectStatus]int `json:"by_status"`
	BySource         map[ObjectSource]int `json:"by_source"`
	CommandKinds     []CommandKind        `json:"command_kinds"`
	ComputationCost  string               `json:"computation_cost"`
	StorageCost      string               `json:"storage_cost"`
	StorageRebate    string               `json:"storage_rebate"`
	NonRefundableFee string               `json:"non_refundable_fee"`
	NetGasCost       string               `json:"net_gas_cost"`
	IngestedAt       time.Time            `json:"ingested_at"`
}
