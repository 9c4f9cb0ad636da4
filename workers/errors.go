package workers

import "github.com/agilira/go-errors"

// ErrCodeUnknownLazyFreeShape marks the fatal condition of a LazyFree job
// whose Arg1/Arg2/Arg3 combination matches none of the documented shapes.
const ErrCodeUnknownLazyFreeShape errors.ErrorCode = "CORVID_WORKERS_UNKNOWN_LAZY_FREE_SHAPE"

// NewErrUnknownLazyFreeShape reports a LazyFree job with no recognized
// argument pattern. The caller panics with this error: a malformed
// lazy-free submission is a programming error in the submitter, not a
// recoverable runtime condition.
func NewErrUnknownLazyFreeShape(job *Job) error {
	return errors.NewWithContext(ErrCodeUnknownLazyFreeShape, "lazy free job matches no known argument shape", map[string]interface{}{
		"arg1_set": job.Arg1 != nil,
		"arg2_set": job.Arg2 != nil,
		"arg3_set": job.Arg3 != nil,
	})
}
