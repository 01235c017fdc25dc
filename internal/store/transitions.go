package store

import "office-queue/internal/models"

// The queue entry lifecycle is linear: waiting -> served -> closed. There is
// no re-queue and no skipping of states.
var transitionMap = map[string][]string{
	"serve": {models.StateWaiting},
	"close": {models.StateServed},
}

func ValidTransition(action, fromState string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, state := range allowed {
		if state == fromState {
			return true
		}
	}
	return false
}
