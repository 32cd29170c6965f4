package pos

import (
	"regexp"
	"strconv"
)

// The local order id is embedded redundantly when mirroring: as a
// "bs-order-<id>" reference and as human-readable "order #<id>" text in
// notes. Recovery tries an ordered list of extractors against the fields
// the platform is least likely to have dropped, first match wins.

var (
	referencePattern = regexp.MustCompile(`bs-order-(\d+)`)
	notePattern      = regexp.MustCompile(`(?i)order\s*#(\d+)`)
)

type extractor struct {
	name string
	fn   func(o *Order) string
}

var extractors = []extractor{
	{"order-id-suffix", func(o *Order) string {
		return matchReference(o.ID)
	}},
	{"fulfillment-uid", func(o *Order) string {
		for _, f := range o.Fulfillments {
			if m := matchReference(f.UID); m != "" {
				return m
			}
		}
		return ""
	}},
	{"fulfillment-note", func(o *Order) string {
		for _, f := range o.Fulfillments {
			if m := matchNote(f.PickupDetails.Note); m != "" {
				return m
			}
		}
		return ""
	}},
	{"reference-id", func(o *Order) string {
		if m := matchReference(o.ReferenceID); m != "" {
			return m
		}
		return matchNote(o.ReferenceID)
	}},
	{"order-note", func(o *Order) string {
		return matchNote(o.Note)
	}},
	{"source-name", func(o *Order) string {
		return matchNote(o.Source.Name)
	}},
}

func matchReference(s string) string {
	if m := referencePattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

func matchNote(s string) string {
	if m := notePattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// CorrelateOrderID recovers the local order id from an external order, or
// returns ok=false when no extractor yields a parseable id. The strategy
// name is returned for logging.
func CorrelateOrderID(o *Order) (id uint, strategy string, ok bool) {
	if o == nil {
		return 0, "", false
	}
	for _, e := range extractors {
		raw := e.fn(o)
		if raw == "" {
			continue
		}
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			continue
		}
		return uint(parsed), e.name, true
	}
	return 0, "", false
}
