package util

type TemboError struct {
	Message string
	Err     error
}

func (e *TemboError) Error() string {
	return e.Message
}

func (e *TemboError) Unwrap() error {
	return e.Err
}

type BufferpoolExhaustedError struct {
	*TemboError
}

func NewBufferpoolExhaustedError() *BufferpoolExhaustedError {
	return &BufferpoolExhaustedError{
		&TemboError{Message: "all frames are pinned, no frame available"},
	}
}
