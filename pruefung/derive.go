package pruefung

// Derive computes the consolidated review state from an event log.
//
// Only the segment after the last reset counts. Within that segment the
// most recent approve/reject wins; otherwise any ai/human review yields
// reviewed; otherwise synchronized. Pure and total: the empty log (and
// a log ending in reset) derives to synchronized.
func Derive(log []Event) State {
	start := 0
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].Kind == KindReset {
			start = i + 1
			break
		}
	}
	segment := log[start:]

	for i := len(segment) - 1; i >= 0; i-- {
		switch segment[i].Kind {
		case KindApprove:
			return StateApproved
		case KindReject:
			return StateRejected
		}
	}

	for _, ev := range segment {
		if ev.Kind == KindAIReview || ev.Kind == KindHumanReview {
			return StateReviewed
		}
	}

	return StateSynchronized
}
