package movetype

const (
	stdPackage = "0x1"
	suiPackage = "0x2"
)

// GasCoin is the type of the transaction's gas coin, 0x2::coin::Coin<0x2::sui::SUI>.
func GasCoin() Type {
	return Struct(suiPackage, "coin", "Coin", Struct(suiPackage, "sui", "SUI"))
}

// UpgradeCap is the type returned by a Publish command.
func UpgradeCap() Type {
	return Struct(suiPackage, "package", "UpgradeCap")
}

func isStruct(t Type, pkg, module, name string) bool {
	return t.Kind == KindStruct && t.Package == pkg && t.Module == module && t.Name == name
}

// IsOption reports whether t is an instantiation of 0x1::option::Option.
func IsOption(t Type) bool {
	return isStruct(t, stdPackage, "option", "Option")
}

// OptionInner returns T for Option<T>. The bool is false when t is not an
// option or carries no usable type argument.
func OptionInner(t Type) (Type, bool) {
	if !IsOption(t) || len(t.TypeArgs) != 1 || t.TypeArgs[0].IsUnknown() {
		return Unknown(), false
	}
	return t.TypeArgs[0], true
}

// IsString matches 0x1::string::String and 0x1::ascii::String.
func IsString(t Type) bool {
	return isStruct(t, stdPackage, "string", "String") || isStruct(t, stdPackage, "ascii", "String")
}

// IsObjectID matches 0x2::object::ID and 0x2::object::UID.
func IsObjectID(t Type) bool {
	return isStruct(t, suiPackage, "object", "ID") || isStruct(t, suiPackage, "object", "UID")
}

func IsCoin(t Type) bool {
	return isStruct(t, suiPackage, "coin", "Coin")
}

func IsTxContext(t Type) bool {
	return isStruct(StripReference(t), suiPackage, "tx_context", "TxContext")
}

// StripReference removes any reference layers.
func StripReference(t Type) Type {
	for t.Kind == KindReference {
		t = t.Element()
	}
	return t
}

// Instantiate substitutes TypeParameter(i) with args[i] throughout t.
// Parameters without a matching argument become Unknown.
func Instantiate(t Type, args []Type) Type {
	switch t.Kind {
	case KindTypeParameter:
		if int(t.Index) < len(args) {
			return args[t.Index]
		}
		return Unknown()
	case KindVector:
		return Vector(Instantiate(t.Element(), args))
	case KindReference:
		return Reference(Instantiate(t.Element(), args), t.Mutable)
	case KindStruct:
		if len(t.TypeArgs) == 0 {
			return t
		}
		inst := make([]Type, len(t.TypeArgs))
		for i, arg := range t.TypeArgs {
			inst[i] = Instantiate(arg, args)
		}
		return Struct(t.Package, t.Module, t.Name, inst...)
	default:
		return t
	}
}
