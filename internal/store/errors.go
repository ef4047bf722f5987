package store

// ErrInvalid is returned when input fails validation before any
// mutation happens.
type ErrInvalid struct {
	Reason string
}

func (e *ErrInvalid) Error() string {
	return "invalid input: " + e.Reason
}
