package sbx

import "sync/atomic"

// SetCanceled sets the shared cancellation flag the Encoder polls before
// each input read (spec.md §5). A zero value means "not canceled."
func SetCanceled(flag *int32) {
	atomic.StoreInt32(flag, 1)
}

func loadCancel(flag *int32) bool {
	return atomic.LoadInt32(flag) != 0
}
