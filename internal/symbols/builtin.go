package symbols

// ============================================================================
// 内建基本类型
// ============================================================================
//
// 基本类型是全局共享的系统符号，不持有声明位置与来源节点。
// int 与 int32、uint 与 uint32 各自是同一符号的两个名字。
//
// ============================================================================

var (
	TypeVoid   = &Type{Name: "void", IsSystemType: true}
	TypeInt8   = &Type{Name: "int8", IsSystemType: true, IsNumberType: true}
	TypeInt16  = &Type{Name: "int16", IsSystemType: true, IsNumberType: true}
	TypeInt32  = &Type{Name: "int", IsSystemType: true, IsNumberType: true}
	TypeInt64  = &Type{Name: "int64", IsSystemType: true, IsNumberType: true}
	TypeUint8  = &Type{Name: "uint8", IsSystemType: true, IsNumberType: true}
	TypeUint16 = &Type{Name: "uint16", IsSystemType: true, IsNumberType: true}
	TypeUint32 = &Type{Name: "uint", IsSystemType: true, IsNumberType: true}
	TypeUint64 = &Type{Name: "uint64", IsSystemType: true, IsNumberType: true}
	TypeFloat  = &Type{Name: "float", IsSystemType: true, IsNumberType: true}
	TypeDouble = &Type{Name: "double", IsSystemType: true, IsNumberType: true}
	TypeBool   = &Type{Name: "bool", IsSystemType: true}

	// TypeAny '?' 形参类型，接受任意实参
	TypeAny = &Type{Name: "?", IsSystemType: true}

	// TypeAuto 'auto'，由初始化表达式替换
	TypeAuto = &Type{Name: "auto", IsSystemType: true}
)

// primeTypes 基本类型名 → 符号
var primeTypes = map[string]*Type{
	"void":   TypeVoid,
	"int":    TypeInt32,
	"int8":   TypeInt8,
	"int16":  TypeInt16,
	"int32":  TypeInt32,
	"int64":  TypeInt64,
	"uint":   TypeUint32,
	"uint8":  TypeUint8,
	"uint16": TypeUint16,
	"uint32": TypeUint32,
	"uint64": TypeUint64,
	"float":  TypeFloat,
	"double": TypeDouble,
	"bool":   TypeBool,
	"?":      TypeAny,
	"auto":   TypeAuto,
}

// PrimeType 按名字查找内建基本类型
func PrimeType(name string) *Type {
	return primeTypes[name]
}

// 常用的 ResolvedType 单例
var (
	ResolvedVoid   = ResolveType(TypeVoid)
	ResolvedInt    = ResolveType(TypeInt32)
	ResolvedDouble = ResolveType(TypeDouble)
	ResolvedBool   = ResolveType(TypeBool)
)
