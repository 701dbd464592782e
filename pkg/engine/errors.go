package engine

// Kind classifies a group failure.
type Kind string

// Failure kinds. Each group's outcome is independent; a batch fails
// when any group failed.
const (
	KindConfig      Kind = "CONFIG_ERROR"
	KindEventDecode Kind = "EVENT_DECODE_ERROR"
	KindFilter      Kind = "FILTER_ERROR"
	KindList        Kind = "S3_LIST_ERROR"
	KindGet         Kind = "S3_GET_ERROR"
	KindPut         Kind = "S3_PUT_ERROR"
	KindHandlerExit Kind = "HANDLER_EXIT_ERROR"
	KindFS          Kind = "FS_ERROR"
	KindCancelled   Kind = "CANCELLED"
)

// GroupError is the failure of one execution group.
type GroupError struct {
	Kind   Kind
	Bucket string
	Prefix string
	Err    error
}

func (e *GroupError) Error() string {
	return string(e.Kind) + " bucket=" + e.Bucket + " prefix=" + e.Prefix + ": " + e.Err.Error()
}

func (e *GroupError) Unwrap() error {
	return e.Err
}
