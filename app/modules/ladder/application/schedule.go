package ladderservice

import (
	"strings"
	"time"

	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

const dateLayout = "2006-01-02"

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseScheduledDate reads an optional match date as YYYY-MM-DD or natural
// language relative to now ("tomorrow", "next saturday"). The result is a
// calendar date at UTC midnight and may not lie in the past.
func ParseScheduledDate(input *string, now time.Time) (*time.Time, error) {
	if input == nil {
		return nil, nil
	}
	text := strings.TrimSpace(*input)
	if text == "" {
		return nil, nil
	}

	date, err := time.Parse(dateLayout, text)
	if err != nil {
		r, parseErr := dateParser.Parse(strings.ToLower(text), now)
		if parseErr != nil || r == nil {
			return nil, apperrors.Validation("could not understand scheduled_date %q", text)
		}
		date = r.Time
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(today) {
		return nil, apperrors.Validation("scheduled_date %s is in the past", day.Format(dateLayout))
	}
	return &day, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
