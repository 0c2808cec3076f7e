package application

import (
	"time"

	"ptbscope/internal/domain"

	"github.com/holiman/uint256"
)

// Summarize condenses tx. IngestedAt is left for the caller to stamp.
func Summarize(tx *domain.Transaction) domain.Summary {
	s := domain.Summary{
		Digest:         tx.Digest(),
		Sender:         tx.Sender(),
		Success:        tx.Status().Success,
		Error:          tx.Status().Error,
		EffectsVersion: tx.EffectsVersion(),
		ByStatus:       make(map[domain.ObjectStatus]int),
		BySource:       make(map[domain.ObjectSource]int),
	}
	if v, ok := tx.Epoch(); ok {
		s.Epoch = &v
	}
	if v, ok := tx.Checkpoint(); ok {
		s.Checkpoint = &v
	}
	if v, ok := tx.ProtocolVersion(); ok {
		s.ProtocolVersion = &v
	}

	for _, obj := range tx.Objects() {
		s.ObjectCount++
		if obj.IsPackage() {
			s.PackageCount++
		}
		s.ByStatus[obj.Status]++
		s.BySource[obj.Source]++
	}
	for _, cmd := range tx.Commands() {
		s.CommandKinds = append(s.CommandKinds, cmd.Kind())
	}

	gas := tx.Gas()
	s.ComputationCost = decimal(gas.ComputationCost)
	s.StorageCost = decimal(gas.StorageCost)
	s.StorageRebate = decimal(gas.StorageRebate)
	s.NonRefundableFee = decimal(gas.TotalNonRefundableFee())
	s.NetGasCost = decimal(gas.NetCost())
	return s
}

func decimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func stamp(s domain.Summary, now func() time.Time) domain.Summary {
	s.IngestedAt = now().UTC()
	return s
}
