package entity

// Record holds the fields extracted from one POS registration form.
// A nil field means the pattern for it did not match.
//
// The terminal id and its variant are kept private so they can only be
// set together; see SetTerminalID.
type Record struct {
	BusinessName *string
	Address      *string
	SerialNumber *string
	DeviceModel  *string
	GroupCode    *string
	Notes        *string
	MerchantID   *string

	terminalID        *string
	terminalIDVariant *string
}

// SetTerminalID stores id and derives its variant in the same step.
func (r *Record) SetTerminalID(id string) {
	v := TerminalIDVariant(id)
	r.terminalID = &id
	r.terminalIDVariant = &v
}

// ClearTerminalID marks the terminal id as found-but-absent: both the id
// and its variant become "".
func (r *Record) ClearTerminalID() {
	r.SetTerminalID("")
}

// TerminalID returns the terminal id and whether it has been set.
func (r *Record) TerminalID() (string, bool) {
	if r.terminalID == nil {
		return "", false
	}
	return *r.terminalID, true
}

// TerminalIDVariant returns the derived variant and whether it has been set.
func (r *Record) TerminalIDVariant() (string, bool) {
	if r.terminalIDVariant == nil {
		return "", false
	}
	return *r.terminalIDVariant, true
}

// TerminalIDVariant replaces "39" at positions 2..3 with "00". Ids shorter
// than four characters, and ids without that marker, are returned unchanged.
// Terminal ids are ASCII digits so byte offsets are character offsets.
func TerminalIDVariant(id string) string {
	if len(id) < 4 || id[2:4] != "39" {
		return id
	}
	return id[:2] + "00" + id[4:]
}

// Row renders the record as one table row, file name first. Unset fields
// render as empty cells.
func (r *Record) Row(fileName string) []string {
	tid, _ := r.TerminalID()
	variant, _ := r.TerminalIDVariant()
	return []string{
		fileName,
		deref(r.BusinessName),
		deref(r.Address),
		deref(r.SerialNumber),
		deref(r.DeviceModel),
		deref(r.GroupCode),
		deref(r.Notes),
		deref(r.MerchantID),
		tid,
		variant,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
