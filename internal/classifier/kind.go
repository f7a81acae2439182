package classifier

// Kind is the coarse category of a SQL statement, determined by its leading
// keyword. The set is closed so callers can switch exhaustively.
type Kind int

const (
	KindOther Kind = iota
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
	KindDDL
)

// String returns the uppercase statement kind name.
func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindInsert:
		return "INSERT"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	case KindDDL:
		return "DDL"
	default:
		return "OTHER"
	}
}

// IsMutation reports whether the statement modifies row data.
// DDL is not a mutation in this sense; check KindDDL separately.
func (k Kind) IsMutation() bool {
	switch k {
	case KindInsert, KindUpdate, KindDelete:
		return true
	default:
		return false
	}
}

// IsReadOnly reports whether the statement is known to only read data.
// Unrecognized statements (KindOther) are not considered read-only.
func (k Kind) IsReadOnly() bool {
	return k == KindSelect
}
