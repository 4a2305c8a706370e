package policy

import (
	"fmt"
	"time"

	"botkit/internal/domain"
)

// QuietHours denies sends inside a daily local-time window. The window is
// [Start, End) in hours; a window wrapping midnight (Start > End) is
// supported.
type QuietHours struct {
	Start int // hour 0-23, inclusive
	End   int // hour 0-23, exclusive

	now func() time.Time // test hook; nil means time.Now
}

func NewQuietHours(start, end int) *QuietHours {
	return &QuietHours{Start: start, End: end}
}

func (q *QuietHours) EvaluateSend(_ domain.SendParams) domain.PolicyResult {
	nowFn := q.now
	if nowFn == nil {
		nowFn = time.Now
	}
	h := nowFn().Hour()

	var quiet bool
	if q.Start <= q.End {
		quiet = h >= q.Start && h < q.End
	} else {
		quiet = h >= q.Start || h < q.End
	}
	if quiet {
		return Deny(fmt.Sprintf("quiet hours %02d:00-%02d:00", q.Start, q.End))
	}
	return Allow()
}
