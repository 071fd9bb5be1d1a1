package pipeline

import "time"

// DateKeyLayout formats snapshot date keys
const DateKeyLayout = "20060102"

// DateKeys returns today's and yesterday's keys of now in loc
func DateKeys(now time.Time, loc *time.Location) (today, yesterday string) {
	local := now.In(loc)
	return local.Format(DateKeyLayout), local.AddDate(0, 0, -1).Format(DateKeyLayout)
}
