package noderep

import "errors"

// ErrInvalidConfig indicates a Config's tunables violate a power-of-two
// or relational precondition (T_max, N, B each must be a power of two;
// N must be at least T_max*B; L must be non-zero). Config.Validate
// returns it wrapped with the specific violation; New panics on it rather than returning it, because a bad tunable is a
// programmer error, not a runtime condition a caller retries around
// (spec: "precondition violations — fatal, abort").
var ErrInvalidConfig = errors.New("noderep: invalid config")
