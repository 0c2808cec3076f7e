package application

import (
	"encoding/json"
	"errors"
	"testing"

	"ptbscope/internal/artifact"
	"ptbscope/internal/domain"
	"ptbscope/internal/movetype"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var usdcCoin = movetype.Struct("0x2", "coin", "Coin", movetype.Struct("0xdba3", "usdc", "USDC"))

func TestAggregateScalars(t *testing.T) {
	tx, err := Aggregate(fixtureBundle())
	require.NoError(t, err)

	assert.Equal(t, "8aXq", tx.Digest(), "effects digest wins")
	assert.Equal(t, "0xc0", tx.Sender())
	assert.True(t, tx.Status().Success)
	assert.Equal(t, "V2", tx.EffectsVersion())

	epoch, ok := tx.Epoch()
	require.True(t, ok)
	assert.EqualValues(t, 512, epoch, "executed_epoch wins over cache epoch")
	checkpoint, ok := tx.Checkpoint()
	require.True(t, ok)
	assert.EqualValues(t, 9000, checkpoint)
	protocol, ok := tx.ProtocolVersion()
	require.True(t, ok)
	assert.EqualValues(t, 60, protocol)
	assert.Len(t, tx.Inputs(), 4)
}

func TestAggregateObjectAttribution(t *testing.T) {
	tx, err := Aggregate(fixtureBundle())
	require.NoError(t, err)

	require.Len(t, tx.Objects(), 6)
	require.Len(t, tx.Packages(), 1)

	cases := []struct {
		id     string
		status domain.ObjectStatus
		source domain.ObjectSource
		kind   domain.ObjectKind
	}{
		{"0x2", domain.StatusAccessed, domain.SourceRuntime, domain.ObjectKindPackage},
		{"0xa1", domain.StatusModified, domain.SourceInput, domain.ObjectKindMoveObject},
		{"0x9a", domain.StatusModified, domain.SourceGas, domain.ObjectKindMoveObject},
		{"0x6", domain.StatusAccessed, domain.SourceInput, domain.ObjectKindMoveObject},
		{"0xc1", domain.StatusCreated, domain.SourceRuntime, domain.ObjectKindUnknown},
		{"0xd1", domain.StatusDeleted, domain.SourceRuntime, domain.ObjectKindUnknown},
	}
	for _, c := range cases {
		t.Run(c.id, func(t *testing.T) {
			obj, ok := tx.Object(c.id)
			require.True(t, ok)
			assert.Equal(t, c.status, obj.Status)
			assert.Equal(t, c.source, obj.Source)
			assert.Equal(t, c.kind, obj.Kind)
		})
	}

	created, _ := tx.Object("0xc1")
	require.NotNil(t, created.Version)
	assert.EqualValues(t, 20, *created.Version)
	deleted, _ := tx.Object("0xd1")
	assert.Nil(t, deleted.Version)

	typ, ok := tx.ObjectType("0xa1")
	require.True(t, ok)
	assert.True(t, movetype.Equal(usdcCoin, typ))
	_, ok = tx.ObjectType("0xc1")
	assert.False(t, ok)
}

func TestAggregateGasLedger(t *testing.T) {
	tx, err := Aggregate(fixtureBundle())
	require.NoError(t, err)
	gas := tx.Gas()

	require.Len(t, gas.Payment, 1)
	assert.Equal(t, "0x9a", gas.Payment[0].ObjectID)
	assert.Equal(t, "750", gas.Price.Dec())
	assert.Equal(t, "50000000", gas.Budget.Dec())
	assert.EqualValues(t, 9900, gas.RebateRate)

	gasCoin, ok := gas.Storage("0x9a")
	require.True(t, ok)
	assert.Equal(t, "9781", gasCoin.NonRefundableFee.Dec())
	created, ok := gas.Storage("0xc1")
	require.True(t, ok)
	assert.Equal(t, "0", created.NonRefundableFee.Dec())

	assert.Equal(t, "9781", gas.TotalNonRefundableFee().Dec())
	assert.Equal(t, "2985880", gas.NetCost().Dec())
}

func TestAggregateCommands(t *testing.T) {
	tx, err := Aggregate(fixtureBundle())
	require.NoError(t, err)
	cmds := tx.Commands()
	require.Len(t, cmds, 5)

	split := cmds[0].(domain.SplitCoins)
	assert.True(t, movetype.Equal(movetype.GasCoin(), split.CoinType))
	assert.Equal(t, "0x9a", split.Coin().ObjectID)

	call := cmds[1].(domain.MoveCall)
	require.NotNil(t, call.Signature)
	require.Len(t, call.Arguments(), 2)
	assert.True(t, movetype.Equal(usdcCoin, call.Returns()[0]))
	assert.Equal(t, "100", call.Arguments()[1].Value.String())

	vec := cmds[2].(domain.MakeMoveVec)
	assert.True(t, movetype.Equal(movetype.Vector(movetype.GasCoin()), vec.Returns()[0]))

	deposit := cmds[3].(domain.MoveCall)
	assert.Nil(t, deposit.Signature)
	assert.Empty(t, deposit.Returns())
	args := deposit.Arguments()
	assert.True(t, movetype.Equal(movetype.Vector(movetype.GasCoin()), args[0].Type))
	assert.Equal(t, "Clock", args[1].Type.Name)

	transfer := cmds[4].(domain.TransferObjects)
	assert.True(t, movetype.Equal(usdcCoin, transfer.Objects()[0].Type))
	recipient := transfer.Recipient()
	require.NotNil(t, recipient.Value)
	assert.Equal(t, "0x00000000000000000000000000000000000000000000000000000000000000c0", recipient.Value.String())
}

func TestAggregateFailsCleanOnMissingSender(t *testing.T) {
	b := fixtureBundle()
	b.Transaction = json.RawMessage(`{"gas_data": {"payment": []}, "kind": {"ProgrammableTransaction": {"inputs": [], "commands": []}}}`)

	tx, err := Aggregate(b)
	assert.Nil(t, tx)
	var agg *AggregationError
	require.True(t, errors.As(err, &agg))
	assert.Equal(t, artifact.ArtifactTransaction, agg.Artifact)
	assert.Equal(t, "sender", agg.Field)
	assert.ErrorIs(t, err, artifact.ErrMissing)
}

func TestAggregateV1EffectsMatchV2Semantics(t *testing.T) {
	b := fixtureBundle()
	b.Effects = json.RawMessage(`{"V1": {
		"status": {"status": "success"},
		"executed_epoch": 512,
		"transaction_digest": "8aXq",
		"created": [[["0xc1", 20, "d"], {"AddressOwner": "0xc0"}]],
		"mutated": [[["0x9a", 20, "d"], {"AddressOwner": "0xc0"}], [["0xa1", 20, "d"], {"AddressOwner": "0xc0"}]],
		"deleted": [["0xd1", 20, "d"]],
		"shared_objects": [["0x6", 1, "d"]]
	}}`)
	v1, err := Aggregate(b)
	require.NoError(t, err)
	v2, err := Aggregate(fixtureBundle())
	require.NoError(t, err)

	require.Len(t, v1.Objects(), len(v2.Objects()))
	for _, want := range v2.Objects() {
		got, ok := v1.Object(want.ObjectID)
		require.True(t, ok, want.ObjectID)
		assert.Equal(t, want.Status, got.Status, want.ObjectID)
		assert.Equal(t, want.Source, got.Source, want.ObjectID)
	}
}

func TestAggregateSignatureAlignment(t *testing.T) {
	b := fixtureBundle()
	// signature at a SplitCoins position and one past the end are ignored
	b.Signatures = json.RawMessage(`{"command_signatures": [
		{"parameters": [], "return_types": ["u8"]},
		null
	]}`)
	tx, err := Aggregate(b)
	require.NoError(t, err)

	split := tx.Commands()[0].(domain.SplitCoins)
	assert.True(t, movetype.Equal(movetype.GasCoin(), split.Returns()[0]))
	call := tx.Commands()[1].(domain.MoveCall)
	assert.Nil(t, call.Signature)
	assert.Empty(t, call.Returns())
}

func TestAggregateIsDeterministic(t *testing.T) {
	a, err := Aggregate(fixtureBundle())
	require.NoError(t, err)
	b, err := Aggregate(fixtureBundle().Compact())
	require.NoError(t, err)
	assert.Equal(t, Summarize(a), Summarize(b))
}
