package domain

import "ptbscope/internal/movetype"

type CommandKind string

const (
	CommandMoveCall        CommandKind = "MoveCall"
	CommandSplitCoins      CommandKind = "SplitCoins"
	CommandMergeCoins      CommandKind = "MergeCoins"
	CommandMakeMoveVec     CommandKind = "MakeMoveVec"
	CommandTransferObjects CommandKind = "TransferObjects"
	CommandPublish         CommandKind = "Publish"
	CommandUpgrade         CommandKind = "Upgrade"
)

// Command is one resolved transaction command. The set of implementations
// is closed; consumers switch over the concrete types.
//
//sumtype:decl
type Command interface {
	Kind() CommandKind
	Arguments() []ResolvedArgument
	Returns() []movetype.Type
	isCommand()
}

// Signature is a called function's parameter and return types as supplied
// alongside the transaction, before instantiation.
type Signature struct {
	Parameters []movetype.Type
	Returns    []movetype.Type
}

// Resolution holds the resolved arguments and return types shared by every
// command variant. An empty Results means the command returns nothing.
type Resolution struct {
	Args    []ResolvedArgument
	Results []movetype.Type
}

func (r Resolution) Arguments() []ResolvedArgument {
	out := make([]ResolvedArgument, len(r.Args))
	copy(out, r.Args)
	return out
}

func (r Resolution) Returns() []movetype.Type {
	out := make([]movetype.Type, len(r.Results))
	copy(out, r.Results)
	return out
}

func (r Resolution) arg(i int) ResolvedArgument {
	if i < 0 || i >= len(r.Args) {
		return ResolvedArgument{Type: movetype.Unknown()}
	}
	return r.Args[i]
}

func (r Resolution) tail(from int) []ResolvedArgument {
	if from >= len(r.Args) {
		return nil
	}
	out := make([]ResolvedArgument, len(r.Args)-from)
	copy(out, r.Args[from:])
	return out
}

type MoveCall struct {
	Resolution
	Package       string
	Module        string
	Function      string
	TypeArguments []movetype.Type
	Signature     *Signature
}

func (MoveCall) Kind() CommandKind { return CommandMoveCall }
func (MoveCall) isCommand()        {}

// SplitCoins arguments are the coin followed by the amounts.
type SplitCoins struct {
	Resolution
	CoinType movetype.Type
}

func (SplitCoins) Kind() CommandKind { return CommandSplitCoins }
func (SplitCoins) isCommand()        {}

func (c SplitCoins) Coin() ResolvedArgument      { return c.arg(0) }
func (c SplitCoins) Amounts() []ResolvedArgument { return c.tail(1) }

// MergeCoins arguments are the target followed by the sources.
type MergeCoins struct {
	Resolution
	CoinType movetype.Type
}

func (MergeCoins) Kind() CommandKind { return CommandMergeCoins }
func (MergeCoins) isCommand()        {}

func (c MergeCoins) Target() ResolvedArgument    { return c.arg(0) }
func (c MergeCoins) Sources() []ResolvedArgument { return c.tail(1) }

type MakeMoveVec struct {
	Resolution
	ExplicitType *movetype.Type
	ElementType  movetype.Type
}

func (MakeMoveVec) Kind() CommandKind { return CommandMakeMoveVec }
func (MakeMoveVec) isCommand()        {}

// TransferObjects arguments are the objects followed by the recipient.
type TransferObjects struct {
	Resolution
}

func (TransferObjects) Kind() CommandKind { return CommandTransferObjects }
func (TransferObjects) isCommand()        {}

func (c TransferObjects) Objects() []ResolvedArgument {
	if len(c.Args) == 0 {
		return nil
	}
	out := make([]ResolvedArgument, len(c.Args)-1)
	copy(out, c.Args[:len(c.Args)-1])
	return out
}

func (c TransferObjects) Recipient() ResolvedArgument { return c.arg(len(c.Args) - 1) }

type Publish struct {
	Resolution
	ModuleCount  int
	Dependencies []string
}

func (Publish) Kind() CommandKind { return CommandPublish }
func (Publish) isCommand()        {}

// Upgrade has a single argument, the upgrade ticket.
type Upgrade struct {
	Resolution
	ModuleCount  int
	Dependencies []string
	Package      string
}

func (Upgrade) Kind() CommandKind { return CommandUpgrade }
func (Upgrade) isCommand()        {}

func (c Upgrade) Ticket() ResolvedArgument { return c.arg(0) }
