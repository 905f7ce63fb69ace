package attribution

import "errors"

// ErrInconsistentPromotionCount is reported when cached counts disagree with
// a recomputation from matches, or violate the sum invariant.
var ErrInconsistentPromotionCount = errors.New("inconsistent promotion count")
