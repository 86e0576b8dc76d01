package sqlx

// PanicSentinel is the value passed to panic() by Must() and the helpers in
// this package that do not return errors.
type PanicSentinel struct {
	// Cause is the underlying error.
	Cause error
}

// Must panics with a PanicSentinel if err is non-nil.
func Must(err error) {
	if err != nil {
		panic(PanicSentinel{err})
	}
}

// Recover assigns the cause of a PanicSentinel panic to *err. Other panics are
// re-raised.
//
// It must be called directly by a defer statement.
func Recover(err *error) {
	if err == nil {
		panic("err must be a non-nil pointer")
	}

	switch v := recover().(type) {
	case nil:
	case PanicSentinel:
		*err = v.Cause
	default:
		panic(v)
	}
}
