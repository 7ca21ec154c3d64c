package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date expression types.
const (
	DateCurrentYear    = "current_year"
	DateLastYear       = "last_year"
	DateRelativeWindow = "relative_window"
	DateSpecificYear   = "specific_year"
	DateQuarter        = "quarter"
	DateFirstHalf      = "first_half"
	DateSecondHalf     = "second_half"
)

// defaultWindowDays is used when the query carries no date expression.
const defaultWindowDays = 30

var dateLayouts = []string{"2006-01-02", "20060102", "2006.01.02", "2006/01/02"}

// ParseDate accepts the date literal formats users type and returns a
// calendar day. The canonical form is YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// FormatDate renders a day in the canonical YYYY-MM-DD form.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// day truncates to midnight so range arithmetic stays on calendar days.
func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var (
	relativePattern = regexp.MustCompile(`(?:최근|지난|last|recent)\s*(\d+)\s*(일|개월|달|년|day|days|month|months|year|years)`)
	yearPattern     = regexp.MustCompile(`\b(19\d{2}|20\d{2})년?`)
	quarterPattern  = regexp.MustCompile(`([1-4])\s*분기|Q([1-4])`)
	literalPattern  = regexp.MustCompile(`\b(\d{4})-(\d{2})(?:-(\d{2}))?\b`)
)

// ExtractDateExprs is the deterministic date extractor used by the
// parser fallback. It scans for relative windows, named years,
// quarters, halves, and literal dates.
func ExtractDateExprs(text string) []DateExpr {
	lower := strings.ToLower(text)
	var out []DateExpr

	if m := relativePattern.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		expr := DateExpr{Text: m[0], Type: DateRelativeWindow}
		switch m[2] {
		case "일", "day", "days":
			expr.Days = n
		case "개월", "달", "month", "months":
			expr.Months = n
		case "년", "year", "years":
			expr.Months = n * 12
		}
		out = append(out, expr)
	}

	// "1-year", "3-month" style without a leading qualifier.
	if len(out) == 0 {
		if m := regexp.MustCompile(`(\d+)[- ](year|month)`).FindStringSubmatch(lower); m != nil {
			n, _ := strconv.Atoi(m[1])
			expr := DateExpr{Text: m[0], Type: DateRelativeWindow, Months: n}
			if m[2] == "year" {
				expr.Months = n * 12
			}
			out = append(out, expr)
		}
	}

	if strings.Contains(lower, "올해") || strings.Contains(lower, "금년") || strings.Contains(lower, "this year") {
		out = append(out, DateExpr{Text: "올해", Type: DateCurrentYear})
	}
	if strings.Contains(lower, "작년") || strings.Contains(lower, "지난해") || strings.Contains(lower, "last year") {
		out = append(out, DateExpr{Text: "작년", Type: DateLastYear})
	}

	if m := quarterPattern.FindStringSubmatch(text); m != nil {
		q := m[1]
		if q == "" {
			q = m[2]
		}
		n, _ := strconv.Atoi(q)
		out = append(out, DateExpr{Text: m[0], Type: DateQuarter, Quarter: n})
	}
	if strings.Contains(lower, "상반기") || strings.Contains(lower, "first half") {
		out = append(out, DateExpr{Text: "상반기", Type: DateFirstHalf})
	}
	if strings.Contains(lower, "하반기") || strings.Contains(lower, "second half") {
		out = append(out, DateExpr{Text: "하반기", Type: DateSecondHalf})
	}

	if m := literalPattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		expr := DateExpr{Text: m[0], Type: DateSpecificYear, Year: year}
		if m[2] != "" {
			month, _ := strconv.Atoi(m[2])
			expr.Quarter = 0
			expr.Months = month // specific month within the year
		}
		out = append(out, expr)
	} else if m := yearPattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		out = append(out, DateExpr{Text: m[0], Type: DateSpecificYear, Year: year})
	}

	return out
}

// ComputeRange folds the extracted date expressions into one inclusive
// [start, end] range. The first expression that yields a bound wins;
// quarter and half expressions refine a year expression when both are
// present. Without any expression the range defaults to the last 30
// days ending at now.
func ComputeRange(exprs []DateExpr, now time.Time) DateRange {
	today := day(now)

	year := 0
	var window, quarter, half *DateExpr
	for i := range exprs {
		expr := &exprs[i]
		switch expr.Type {
		case DateCurrentYear:
			if year == 0 {
				year = today.Year()
			}
		case DateLastYear:
			if year == 0 {
				year = today.Year() - 1
			}
		case DateSpecificYear:
			if year == 0 && expr.Year > 0 {
				year = expr.Year
			}
			if expr.Months > 0 && window == nil {
				// YYYY-MM literal: that single month.
				start := time.Date(expr.Year, time.Month(expr.Months), 1, 0, 0, 0, 0, time.UTC)
				end := start.AddDate(0, 1, -1)
				return clampToToday(DateRange{Start: start, End: end}, today)
			}
		case DateRelativeWindow:
			if window == nil {
				window = expr
			}
		case DateQuarter:
			if quarter == nil {
				quarter = expr
			}
		case DateFirstHalf, DateSecondHalf:
			if half == nil {
				half = expr
			}
		}
	}

	if window != nil {
		start := today
		if window.Days > 0 {
			start = today.AddDate(0, 0, -(window.Days - 1))
		} else if window.Months > 0 {
			start = today.AddDate(0, -window.Months, 0).AddDate(0, 0, 1)
		}
		return DateRange{Start: start, End: today}
	}

	if year != 0 {
		switch {
		case quarter != nil && quarter.Quarter >= 1 && quarter.Quarter <= 4:
			startMonth := time.Month((quarter.Quarter-1)*3 + 1)
			start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
			end := start.AddDate(0, 3, -1)
			return clampToToday(DateRange{Start: start, End: end}, today)
		case half != nil && half.Type == DateFirstHalf:
			return clampToToday(DateRange{
				Start: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(year, 6, 30, 0, 0, 0, 0, time.UTC),
			}, today)
		case half != nil && half.Type == DateSecondHalf:
			return clampToToday(DateRange{
				Start: time.Date(year, 7, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
			}, today)
		default:
			return clampToToday(DateRange{
				Start: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
			}, today)
		}
	}

	// Quarter or half without a year refers to the current year.
	if quarter != nil || half != nil {
		exprs = append(exprs, DateExpr{Type: DateCurrentYear})
		return ComputeRange(exprs, now)
	}

	return DateRange{Start: today.AddDate(0, 0, -(defaultWindowDays - 1)), End: today}
}

func clampToToday(r DateRange, today time.Time) DateRange {
	if r.End.After(today) {
		r.End = today
	}
	if r.Start.After(r.End) {
		r.Start = r.End
	}
	return r
}
