package broker

import "strings"

// The venue reports transaction outcomes as a numeric status plus free-form
// result text, and some outcomes are only distinguishable by the text. All
// of that matching is confined to classifyTransReply; the rest of the
// reconciliation path works on the closed replyOutcome enum.

type replyOutcome uint8

const (
	// replyIgnored: an interim or unrecognized acknowledgement; no
	// transition is applied.
	replyIgnored replyOutcome = iota
	// replyRegistered: the order is working at the venue.
	replyRegistered
	// replyRemoved: the order was taken off the book.
	replyRemoved
	// replyFailed: the transaction failed and the order is dead.
	replyFailed
	// replyMargin: the transaction failed the venue's limit check.
	replyMargin
	// replySoft: a cancellation could not be applied (order already gone,
	// not cancelable, or the login hit its transaction rate limit). The
	// order itself did not fail, so its state is left untouched.
	replySoft
)

func (r replyOutcome) String() string {
	switch r {
	case replyRegistered:
		return "registered"
	case replyRemoved:
		return "removed"
	case replyFailed:
		return "failed"
	case replyMargin:
		return "margin"
	case replySoft:
		return "soft"
	}
	return "ignored"
}

// Transaction status codes that terminate an order. Status 6 (limit check
// failed) is handled separately as a margin condition.
var failureStatuses = map[int]bool{
	2: true, 4: true, 5: true, 10: true, 11: true,
	12: true, 13: true, 14: true, 16: true,
}

const statusRegistered = 15

// classifyTransReply maps a venue acknowledgement to a replyOutcome. The
// matched substrings are the venue's own Russian result messages.
func classifyTransReply(status int, resultMsg string) replyOutcome {
	msg := strings.ToLower(resultMsg)
	switch {
	case status == statusRegistered || strings.Contains(msg, "зарегистрирован"):
		return replyRegistered
	case strings.Contains(msg, "снят"):
		return replyRemoved
	case failureStatuses[status]:
		if status == 4 && strings.Contains(msg, "не найдена заявка") ||
			status == 5 && strings.Contains(msg, "не можете снять") ||
			strings.Contains(msg, "превышен лимит") {
			return replySoft
		}
		return replyFailed
	case status == 6:
		return replyMargin
	}
	return replyIgnored
}
