package artifact

import (
	"encoding/json"
	"errors"
	"testing"

	"ptbscope/internal/domain"
	"ptbscope/internal/movetype"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireFieldError(t *testing.T, err error, artifact, field string) *FieldError {
	t.Helper()
	var fe *FieldError
	require.True(t, errors.As(err, &fe), "expected *FieldError, got %v", err)
	assert.Equal(t, artifact, fe.Artifact)
	assert.Equal(t, field, fe.Field)
	return fe
}

func TestDecodeCache(t *testing.T) {
	cache, err := DecodeCache([]byte(`{
		"epoch": 12,
		"cache_entries": [
			{"object_id": "0x0002", "version": 1, "package": {"modules": {"coin": [1], "balance": [2]}}},
			{"object_id": "0xa1", "version": "7", "move_object": {"address":"0x2","module":"coin","name":"Coin","type_args":[{"address":"0x2","module":"sui","name":"SUI","type_args":[]}]}},
			{"object_id": "0xb2", "move_object": {"Weird": true}}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, cache.Entries, 3)
	require.NotNil(t, cache.Epoch)
	assert.EqualValues(t, 12, *cache.Epoch)
	assert.Nil(t, cache.Checkpoint)

	pkg := cache.Entries[0]
	assert.Equal(t, "0x2", pkg.ObjectID)
	assert.True(t, pkg.IsPackage)
	assert.Equal(t, []string{"balance", "coin"}, pkg.Modules)

	coin := cache.Entries[1]
	require.NotNil(t, coin.Version)
	assert.EqualValues(t, 7, *coin.Version)
	assert.True(t, movetype.Equal(movetype.GasCoin(), coin.ObjectType))

	assert.True(t, cache.Entries[2].ObjectType.IsUnknown())
	assert.Nil(t, cache.Entries[2].Version)
}

func TestDecodeCacheMissingFields(t *testing.T) {
	_, err := DecodeCache([]byte(`{}`))
	fe := requireFieldError(t, err, ArtifactCache, "cache_entries")
	assert.ErrorIs(t, fe, ErrMissing)

	_, err = DecodeCache([]byte(`{"cache_entries":[{"version":1}]}`))
	requireFieldError(t, err, ArtifactCache, "cache_entries[0].object_id")
}

const sampleTransaction = `{
	"V1": {
		"digest": "AbCd",
		"sender": "0x00000000000000000000000000000000000000000000000000000000000000c0",
		"gas_data": {
			"payment": [["0x9a", 3, "dig"]],
			"owner": "0xc0",
			"price": "1000",
			"budget": 5000000
		},
		"kind": {"ProgrammableTransaction": {
			"inputs": [
				{"Pure": [100, 0, 0, 0, 0, 0, 0, 0]},
				{"Object": {"ImmOrOwnedObject": ["0xa1", 7, "d1"]}},
				{"Object": {"SharedObject": {"id": "0x6", "initial_shared_version": 1, "mutable": false}}},
				{"Pure": "AQ=="}
			],
			"commands": [
				{"SplitCoins": ["GasCoin", [{"Input": 0}]]},
				{"MergeCoins": [{"Input": 1}, [{"NestedResult": [0, 0]}]]},
				{"MakeMoveVec": [null, [{"Input": 1}]]},
				{"MoveCall": {"package": "0x0002", "module": "pay", "function": "join_vec", "type_arguments": ["0x2::sui::SUI"], "arguments": [{"Input": 1}, {"Result": 2}]}},
				{"TransferObjects": [[{"Input": 1}], {"Input": 3}]},
				{"Publish": [[[1, 2], [3]], ["0x1", "0x2"]]},
				{"Upgrade": [[[1]], ["0x1"], "0xfeed", {"Result": 5}]}
			]
		}}
	}
}`

func TestDecodeTransaction(t *testing.T) {
	tx, err := DecodeTransaction([]byte(sampleTransaction))
	require.NoError(t, err)

	assert.Equal(t, "AbCd", tx.Digest)
	assert.Equal(t, "0xc0", tx.Sender)
	assert.Equal(t, "0xc0", tx.GasOwner)
	require.Len(t, tx.GasPayment, 1)
	assert.Equal(t, "0x9a", tx.GasPayment[0].ObjectID)
	assert.Equal(t, "1000", tx.GasPrice.Dec())
	assert.Equal(t, "5000000", tx.GasBudget.Dec())

	require.Len(t, tx.Inputs, 4)
	assert.Equal(t, domain.InputPure, tx.Inputs[0].Kind)
	assert.Equal(t, []byte{100, 0, 0, 0, 0, 0, 0, 0}, tx.Inputs[0].Pure)
	assert.Equal(t, domain.InputImmOrOwned, tx.Inputs[1].Kind)
	assert.Equal(t, "0xa1", tx.Inputs[1].ObjectID)
	assert.Equal(t, domain.InputShared, tx.Inputs[2].Kind)
	assert.Equal(t, "0x6", tx.Inputs[2].ObjectID)
	assert.Equal(t, []byte{1}, tx.Inputs[3].Pure)

	require.Len(t, tx.Commands, 7)
	split := tx.Commands[0]
	assert.Equal(t, domain.CommandSplitCoins, split.Kind)
	assert.Equal(t, []domain.Argument{domain.GasCoinArg(), domain.InputArg(0)}, split.Args)

	merge := tx.Commands[1]
	assert.Equal(t, []domain.Argument{domain.InputArg(1), domain.NestedResultArg(0, 0)}, merge.Args)

	vec := tx.Commands[2]
	assert.Nil(t, vec.ExplicitType)

	call := tx.Commands[3]
	assert.Equal(t, "0x2", call.Package)
	assert.Equal(t, "join_vec", call.Function)
	require.Len(t, call.TypeArguments, 1)
	assert.Equal(t, "0x2::sui::SUI", call.TypeArguments[0].String())

	transfer := tx.Commands[4]
	assert.Equal(t, []domain.Argument{domain.InputArg(1), domain.InputArg(3)}, transfer.Args)

	publish := tx.Commands[5]
	assert.Equal(t, 2, publish.ModuleCount)
	assert.Equal(t, []string{"0x1", "0x2"}, publish.Dependencies)

	upgrade := tx.Commands[6]
	assert.Equal(t, "0xfeed", upgrade.UpgradePackage)
	assert.Equal(t, []domain.Argument{domain.ResultArg(5)}, upgrade.Args)
}

func TestDecodeTransactionRequiredFields(t *testing.T) {
	_, err := DecodeTransaction([]byte(`{"gas_data":{"payment":[]},"kind":{"ProgrammableTransaction":{"inputs":[],"commands":[]}}}`))
	requireFieldError(t, err, ArtifactTransaction, "sender")

	_, err = DecodeTransaction([]byte(`{"sender":"0x1","kind":{"ProgrammableTransaction":{"inputs":[],"commands":[]}}}`))
	requireFieldError(t, err, ArtifactTransaction, "gas_data")

	_, err = DecodeTransaction([]byte(`{"sender":"0x1","gas_data":{"payment":[]},"kind":{"ProgrammableTransaction":{"inputs":[]}}}`))
	requireFieldError(t, err, ArtifactTransaction, "kind.ProgrammableTransaction.commands")

	_, err = DecodeTransaction([]byte(`{"sender":"0x1","gas_data":{"payment":[]},"kind":{"ProgrammableTransaction":{"inputs":[],"commands":[{"Teleport":[]}]}}}`))
	fe := requireFieldError(t, err, ArtifactTransaction, "kind.ProgrammableTransaction.commands[0]")
	assert.ErrorIs(t, fe, ErrUnsupported)
}

func TestDecodeEffectsV1(t *testing.T) {
	effects, err := DecodeEffects([]byte(`{"V1": {
		"status": "Success",
		"executed_epoch": 40,
		"transaction_digest": "AbCd",
		"created": [[["0xc1", 5, "d"], {"AddressOwner": "0xc0"}]],
		"mutated": [[["0x9a", 5, "d"], {"AddressOwner": "0xc0"}]],
		"deleted": [["0xd1", 5, "d"]],
		"wrapped": [["0xd2", 5, "d"]],
		"shared_objects": [["0x6", 1, "d"]]
	}}`))
	require.NoError(t, err)
	assert.Equal(t, "V1", effects.Version)
	assert.True(t, effects.Status.Success)
	require.NotNil(t, effects.Epoch)
	assert.EqualValues(t, 40, *effects.Epoch)

	got := map[string]domain.ObjectStatus{}
	for _, c := range effects.Changes {
		got[c.ObjectID] = c.Status
	}
	assert.Equal(t, map[string]domain.ObjectStatus{
		"0xc1": domain.StatusCreated,
		"0x9a": domain.StatusModified,
		"0xd1": domain.StatusDeleted,
		"0xd2": domain.StatusDeleted,
		"0x6":  domain.StatusAccessed,
	}, got)
}

func TestDecodeEffectsV2(t *testing.T) {
	effects, err := DecodeEffects([]byte(`{"V2": {
		"status": {"Failure": {"error": "InsufficientGas"}},
		"executed_epoch": "41",
		"lamport_version": 9,
		"changed_objects": [
			["0xc1", {"input_state": "NotExist", "output_state": {"ObjectWrite": ["d", {"AddressOwner": "0xc0"}]}, "id_operation": "Created"}],
			["0x9a", {"input_state": {"Exist": [[5, "d"], {"AddressOwner": "0xc0"}]}, "output_state": {"ObjectWrite": ["d", {"AddressOwner": "0xc0"}]}, "id_operation": "None"}],
			["0xd1", {"input_state": {"Exist": [[5, "d"], {"AddressOwner": "0xc0"}]}, "output_state": "NotExist", "id_operation": "None"}],
			["0xbeef", {"input_state": "NotExist", "output_state": {"PackageWrite": [1, "d"]}, "id_operation": "Created"}],
			["0xe1", "Mutated"]
		],
		"unchanged_shared_objects": [["0x6", {"ReadOnlyRoot": [1, "d"]}]]
	}}`))
	require.NoError(t, err)
	assert.Equal(t, "V2", effects.Version)
	assert.False(t, effects.Status.Success)
	assert.Equal(t, "InsufficientGas", effects.Status.Error)

	require.Len(t, effects.Changes, 6)
	byID := map[string]ObjectChange{}
	for _, c := range effects.Changes {
		byID[c.ObjectID] = c
	}
	assert.Equal(t, domain.StatusCreated, byID["0xc1"].Status)
	require.NotNil(t, byID["0xc1"].Version)
	assert.EqualValues(t, 9, *byID["0xc1"].Version)
	assert.Equal(t, domain.StatusModified, byID["0x9a"].Status)
	assert.Equal(t, domain.StatusDeleted, byID["0xd1"].Status)
	assert.Nil(t, byID["0xd1"].Version)
	require.NotNil(t, byID["0xbeef"].Version)
	assert.EqualValues(t, 1, *byID["0xbeef"].Version)
	assert.Equal(t, domain.StatusModified, byID["0xe1"].Status)
	assert.Equal(t, domain.StatusAccessed, byID["0x6"].Status)
}

func TestDecodeEffectsRejectsUnknownShapes(t *testing.T) {
	_, err := DecodeEffects([]byte(`{"V3": {}}`))
	requireFieldError(t, err, ArtifactEffects, "version")

	_, err = DecodeEffects([]byte(`{"V2": {"status": "Success", "changed_objects": [["0x1", "Teleported"]]}}`))
	fe := requireFieldError(t, err, ArtifactEffects, "V2.changed_objects[0]")
	assert.ErrorIs(t, fe, ErrUnsupported)

	_, err = DecodeEffects([]byte(`{"V1": {"created": []}}`))
	requireFieldError(t, err, ArtifactEffects, "V1.status")
}

func TestDecodeGasReport(t *testing.T) {
	report, err := DecodeGasReport([]byte(`{
		"gas_used": {"computation_cost": "1000000", "storage_cost": 2000, "storage_rebate": "115792089237316195423570985008687907853269984665640564039457584007913129639935"},
		"gas_price": 750,
		"per_object_storage": [
			{"object_id": "0x9a", "new_size": 120, "storage_cost": 100, "storage_rebate": 200},
			["0xc1", {"size": 64, "storage_cost": 50, "storage_rebate": 0}]
		]
	}`))
	require.NoError(t, err)
	assert.EqualValues(t, domain.DefaultRebateRate, report.RebateRate)
	assert.Equal(t, "1000000", report.ComputationCost.Dec())
	assert.Equal(t, "750", report.Price.Dec())
	assert.Nil(t, report.Budget)
	assert.Equal(t, 78, len(report.StorageRebate.Dec()))

	require.Len(t, report.PerObject, 2)
	assert.Equal(t, "0x9a", report.PerObject[0].ObjectID)
	assert.EqualValues(t, 120, report.PerObject[0].Size)
	assert.Equal(t, "200", report.PerObject[0].StorageRebate.Dec())
	assert.Equal(t, "0xc1", report.PerObject[1].ObjectID)
	assert.EqualValues(t, 64, report.PerObject[1].Size)
}

func TestDecodeGasReportValidation(t *testing.T) {
	_, err := DecodeGasReport([]byte(`{}`))
	requireFieldError(t, err, ArtifactGas, "gas_used")

	_, err = DecodeGasReport([]byte(`{"gas_used": {"computation_cost": 1, "storage_cost": 1}}`))
	requireFieldError(t, err, ArtifactGas, "gas_used.storage_rebate")

	_, err = DecodeGasReport([]byte(`{"gas_used": {"computation_cost": 1, "storage_cost": 1, "storage_rebate": 1}, "storage_rebate_rate": 10001}`))
	requireFieldError(t, err, ArtifactGas, "storage_rebate_rate")

	report, err := DecodeGasReport([]byte(`{"gas_used": {"computation_cost": 1, "storage_cost": 1, "storage_rebate": 1}, "storage_rebate_rate": 10000}`))
	require.NoError(t, err)
	assert.EqualValues(t, 10000, report.RebateRate)
}

func TestDecodeSignatures(t *testing.T) {
	sigs, err := DecodeSignatures([]byte(`{"command_signatures": [
		null,
		{"parameters": ["u64", {"Reference": {"Datatype": ["0x2","tx_context","TxContext",null]}}], "return_types": [{"TypeParameter": 0}]}
	]}`))
	require.NoError(t, err)
	require.Len(t, sigs.Commands, 2)
	assert.Nil(t, sigs.Commands[0])
	require.NotNil(t, sigs.Commands[1])
	assert.Len(t, sigs.Commands[1].Parameters, 2)
	assert.True(t, movetype.Equal(movetype.TypeParameter(0), sigs.Commands[1].Returns[0]))

	_, err = DecodeSignatures([]byte(`{}`))
	requireFieldError(t, err, ArtifactSignatures, "command_signatures")
}

func TestEncodeSignatureRoundTrip(t *testing.T) {
	sig := &domain.Signature{
		Parameters: []movetype.Type{movetype.Primitive(movetype.U64), movetype.GasCoin()},
		Returns:    []movetype.Type{movetype.Vector(movetype.TypeParameter(0))},
	}
	encoded := EncodeSignature(sig)
	payload, err := json.Marshal(map[string]any{"command_signatures": []json.RawMessage{encoded, EncodeSignature(nil)}})
	require.NoError(t, err)

	sigs, err := DecodeSignatures(payload)
	require.NoError(t, err)
	require.Len(t, sigs.Commands, 2)
	require.NotNil(t, sigs.Commands[0])
	assert.Nil(t, sigs.Commands[1])
	assert.True(t, movetype.Equal(movetype.GasCoin(), sigs.Commands[0].Parameters[1]))
	assert.True(t, movetype.Equal(sig.Returns[0], sigs.Commands[0].Returns[0]))
}

func TestBundleDecodeStopsAtFirstFailure(t *testing.T) {
	b := Bundle{
		Cache:       json.RawMessage(`{"cache_entries": []}`),
		Transaction: json.RawMessage(sampleTransaction),
		Effects:     json.RawMessage(`{"V2": {"status": "Success", "changed_objects": []}}`),
		Gas:         json.RawMessage(`{}`),
		Signatures:  json.RawMessage(`{"command_signatures": []}`),
	}
	_, err := b.Decode()
	requireFieldError(t, err, ArtifactGas, "gas_used")

	b.Gas = json.RawMessage(`{"gas_used": {"computation_cost": 1, "storage_cost": 1, "storage_rebate": 1}}`)
	decoded, err := b.Decode()
	require.NoError(t, err)
	assert.Len(t, decoded.Transaction.Commands, 7)

	b.Signatures = nil
	_, err = b.Decode()
	requireFieldError(t, err, ArtifactSignatures, "")
}
