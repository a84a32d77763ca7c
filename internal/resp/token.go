package resp

// Type identifies a RESP frame by its prefix byte.
type Type byte

const (
	TypeSimpleString Type = '+'
	TypeSimpleError  Type = '-'
	TypeInteger      Type = ':'
	TypeBulkString   Type = '$'
	TypeArray        Type = '*'
	TypeNull         Type = '_'
	TypeBoolean      Type = '#'
	TypeDouble       Type = ','
	TypeBigNumber    Type = '('
	TypeBulkError    Type = '!'
	TypeVerbatim     Type = '='
	TypeMap          Type = '%'
	TypeSet          Type = '~'
	TypePush         Type = '>'
)

// String returns the conventional name of the frame type.
func (t Type) String() string {
	switch t {
	case TypeSimpleString:
		return "simple string"
	case TypeSimpleError:
		return "simple error"
	case TypeInteger:
		return "integer"
	case TypeBulkString:
		return "bulk string"
	case TypeArray:
		return "array"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeDouble:
		return "double"
	case TypeBigNumber:
		return "big number"
	case TypeBulkError:
		return "bulk error"
	case TypeVerbatim:
		return "verbatim string"
	case TypeMap:
		return "map"
	case TypeSet:
		return "set"
	case TypePush:
		return "push"
	default:
		return "unknown"
	}
}

// KnownType reports whether b is a RESP2 or RESP3 prefix byte.
func KnownType(b byte) bool {
	switch Type(b) {
	case TypeSimpleString, TypeSimpleError, TypeInteger, TypeBulkString,
		TypeArray, TypeNull, TypeBoolean, TypeDouble, TypeBigNumber,
		TypeBulkError, TypeVerbatim, TypeMap, TypeSet, TypePush:
		return true
	}
	return false
}
