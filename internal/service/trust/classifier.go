// Package trust turns noisy per-run scraper telemetry into bounded,
// explainable per-source trust scores and keeps a short rolling memory of
// them. Nothing in this package mutates campaigns; its only outputs are
// scores and backlog suggestions for a human to review.
package trust

import (
	"errors"
	"strings"
)

// FailureKind labels one scrape error for telemetry.
type FailureKind string

const (
	FailureNetworkBlocked  FailureKind = "NETWORK_BLOCKED"
	FailureDomChanged      FailureKind = "DOM_CHANGED"
	FailureEmptyResult     FailureKind = "EMPTY_RESULT"
	FailureTimeout         FailureKind = "TIMEOUT"
	FailureUnexpectedError FailureKind = "UNEXPECTED_ERROR"
)

// Phase is the scraper phase an error surfaced in, as declared by the caller.
type Phase string

const (
	PhaseNetwork Phase = "network"
	PhaseParse   Phase = "parse"
	PhaseUnknown Phase = ""
)

// Kinder is implemented by scrape errors that carry an explicit kind tag.
// An explicit tag always wins over message sniffing.
type Kinder interface {
	Kind() FailureKind
}

// ErrDomChanged is the sentinel marker scrapers wrap when a selector no
// longer matches the page.
var ErrDomChanged = errors.New("dom structure changed")

// Classify maps a raw scrape error to exactly one failure kind. It is total:
// every input, including nil context, resolves to a kind, defaulting to
// UNEXPECTED_ERROR.
func Classify(err error, phase Phase) FailureKind {
	if err == nil {
		return FailureUnexpectedError
	}
	var kinder Kinder
	if errors.As(err, &kinder) {
		return kinder.Kind()
	}
	if errors.Is(err, ErrDomChanged) {
		return FailureDomChanged
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "selector") || strings.Contains(msg, "dom"):
		return FailureDomChanged
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return FailureTimeout
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "blocked"),
		strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "net::"):
		return FailureNetworkBlocked
	case strings.Contains(msg, "empty result") || strings.Contains(msg, "no items"):
		return FailureEmptyResult
	}
	if phase == PhaseNetwork {
		return FailureNetworkBlocked
	}
	return FailureUnexpectedError
}
