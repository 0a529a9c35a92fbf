package period

import "time"

// Previous returns the comparison window for p. Partial current periods
// (this month, this year, this week) are compared against the same elapsed
// slice of the previous one, measured against today.
func Previous(p Period, today time.Time) Period {
	start := Day(p.Start)
	end := Day(p.End)
	today = Day(today.In(start.Location()))
	prev := Period{Kind: p.Kind}

	switch p.Kind {
	case KindMonth:
		prev.Start = AddMonths(start, -1)
		if end.Year() == today.Year() && end.Month() == today.Month() && end.Day() == DaysIn(end) {
			day := today.Day()
			if last := DaysIn(prev.Start); day > last {
				day = last
			}
			prev.End = time.Date(prev.Start.Year(), prev.Start.Month(), day, 0, 0, 0, 0, start.Location())
		} else {
			prev.End = AddMonths(end, -1)
		}
	case KindYear:
		prev.Start = AddMonths(start, -12)
		if end.Year() == today.Year() && end.YearDay() == daysInYear(end.Year()) {
			prev.End = AddMonths(today, -12)
		} else {
			prev.End = AddMonths(end, -12)
		}
	case KindQuarter:
		prev.Start = AddMonths(start, -3)
		prev.End = AddMonths(end, -3)
	case KindWeek:
		prev.Start = start.AddDate(0, 0, -7)
		if end.Weekday() == time.Sunday && !today.After(end) && !today.Before(start) {
			prev.End = today.AddDate(0, 0, -7)
		} else {
			prev.End = end.AddDate(0, 0, -7)
		}
	default:
		days := p.Days()
		prev.Start = start.AddDate(0, 0, -days)
		prev.End = end.AddDate(0, 0, -days)
	}
	return prev
}

// Trailing returns the window of equal length that ends the day before p starts.
func Trailing(p Period) Period {
	start := Day(p.Start)
	days := p.Days()
	return Period{
		Kind:  p.Kind,
		Start: start.AddDate(0, 0, -days),
		End:   start.AddDate(0, 0, -1),
	}
}

func daysInYear(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}
