package analytics

import (
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
)

const (
	day           = 24 * time.Hour
	defaultPreset = "30d"
	// maxWindow bounds how much of the events table one request can scan.
	maxWindow = 366 * day
)

var presets = map[string]time.Duration{
	"24h": day,
	"7d":  7 * day,
	"30d": 30 * day,
	"90d": 90 * day,
}

var now = func() time.Time { return time.Now().UTC() }

// window is the half-open reporting range [Start, End).
type window struct {
	Start, End time.Time
}

// parseWindow reads either an explicit from/to pair (RFC 3339) or a preset
// ending at ref. The two forms are exclusive.
func parseWindow(q url.Values, ref time.Time) (window, error) {
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from == "" && to == "" {
		return presetWindow(strings.TrimSpace(q.Get("preset")), ref)
	}
	if from == "" || to == "" {
		return window{}, invalid("from and to must be provided together", "from")
	}
	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return window{}, invalid("invalid from timestamp", "from")
	}
	end, err := time.Parse(time.RFC3339, to)
	if err != nil {
		return window{}, invalid("invalid to timestamp", "to")
	}
	w := window{Start: start.UTC(), End: end.UTC()}
	switch {
	case w.End.Before(w.Start):
		return window{}, invalid("to must not precede from", "to")
	case w.End.Sub(w.Start) > maxWindow:
		return window{}, invalid("range exceeds 366 days", "from")
	}
	return w, nil
}

func presetWindow(name string, ref time.Time) (window, error) {
	if name == "" {
		name = defaultPreset
	}
	span, ok := presets[strings.ToLower(name)]
	if !ok {
		return window{}, invalid("unknown preset", "preset")
	}
	return window{Start: ref.Add(-span), End: ref}, nil
}

func invalid(msg, field string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": field})
}
