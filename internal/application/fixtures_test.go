package application

import (
	"encoding/json"

	"ptbscope/internal/artifact"
)

const fixtureCache = `{
	"epoch": 500,
	"checkpoint": 9000,
	"cache_entries": [
		{"object_id": "0x2", "version": 1, "package": {"modules": ["coin", "pay"]}},
		{"object_id": "0xa1", "version": 7, "move_object": {"address": "0x2", "module": "coin", "name": "Coin", "type_args": [{"address": "0xdba3", "module": "usdc", "name": "USDC", "type_args": []}]}},
		{"object_id": "0x9a", "version": 3, "move_object": {"Struct": [["0x2", "coin", "Coin", [{"Struct": [["0x2", "sui", "SUI", []]]}]]]}},
		{"object_id": "0x6", "version": 1, "move_object": {"Datatype": ["0x2", "clock", "Clock", null]}}
	]
}`

const fixtureTransaction = `{
	"V1": {
		"digest": "from-transaction",
		"sender": "0xc0",
		"protocol_version": 60,
		"gas_data": {"payment": [["0x9a", 3, "gasdigest"]], "owner": "0xc0", "price": 750, "budget": "50000000"},
		"kind": {"ProgrammableTransaction": {
			"inputs": [
				{"Pure": [100, 0, 0, 0, 0, 0, 0, 0]},
				{"Object": {"ImmOrOwnedObject": ["0xa1", 7, "coindigest"]}},
				{"Pure": [0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 192]},
				{"Object": {"SharedObject": {"id": "0x6", "initial_shared_version": 1, "mutable": false}}}
			],
			"commands": [
				{"SplitCoins": ["GasCoin", [{"Input": 0}]]},
				{"MoveCall": {"package": "0x2", "module": "coin", "function": "split", "type_arguments": [{"struct": {"address": "0xdba3", "module": "usdc", "name": "USDC"}}], "arguments": [{"Input": 1}, {"Input": 0}]}},
				{"MakeMoveVec": [null, [{"NestedResult": [0, 0]}]]},
				{"MoveCall": {"package": "0xabc", "module": "vault", "function": "deposit", "type_arguments": [], "arguments": [{"Result": 2}, {"Input": 3}]}},
				{"TransferObjects": [[{"Result": 1}], {"Input": 2}]}
			]
		}}
	}
}`

const fixtureEffects = `{
	"V2": {
		"status": "Success",
		"executed_epoch": 512,
		"transaction_digest": "8aXq",
		"lamport_version": 20,
		"changed_objects": [
			["0x9a", {"input_state": {"Exist": [[3, "d"], {"AddressOwner": "0xc0"}]}, "output_state": {"ObjectWrite": ["d", {"AddressOwner": "0xc0"}]}, "id_operation": "None"}],
			["0xa1", {"input_state": {"Exist": [[7, "d"], {"AddressOwner": "0xc0"}]}, "output_state": {"ObjectWrite": ["d", {"AddressOwner": "0xc0"}]}, "id_operation": "None"}],
			["0xc1", {"input_state": "NotExist", "output_state": {"ObjectWrite": ["d", {"AddressOwner": "0xc0"}]}, "id_operation": "Created"}],
			["0xd1", {"input_state": {"Exist": [[4, "d"], {"AddressOwner": "0xc0"}]}, "output_state": "NotExist", "id_operation": "None"}]
		],
		"unchanged_shared_objects": [["0x6", {"ReadOnlyRoot": [1, "d"]}]]
	}
}`

const fixtureGas = `{
	"gas_used": {"computation_cost": "1000000", "storage_cost": "2964000", "storage_rebate": "978120"},
	"storage_rebate_rate": 9900,
	"per_object_storage": [
		{"object_id": "0x9a", "new_size": 120, "storage_cost": "988000", "storage_rebate": "978120"},
		{"object_id": "0xc1", "new_size": 200, "storage_cost": "1976000", "storage_rebate": "0"}
	]
}`

const fixtureSignatures = `{
	"command_signatures": [
		null,
		{
			"parameters": [
				{"MutableReference": {"DatatypeInstantiation": [["0x2", "coin", "Coin", null], [{"TypeParameter": 0}]]}},
				"U64",
				{"MutableReference": {"Datatype": ["0x2", "tx_context", "TxContext", null]}}
			],
			"return_types": [{"DatatypeInstantiation": [["0x2", "coin", "Coin", null], [{"TypeParameter": 0}]]}]
		},
		null,
		null,
		null
	]
}`

func fixtureBundle() artifact.Bundle {
	return artifact.Bundle{
		Cache:       json.RawMessage(fixtureCache),
		Transaction: json.RawMessage(fixtureTransaction),
		Effects:     json.RawMessage(fixtureEffects),
		Gas:         json.RawMessage(fixtureGas),
		Signatures:  json.RawMessage(fixtureSignatures),
	}
}
