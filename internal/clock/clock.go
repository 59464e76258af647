package clock

import "time"

// Clock is the only source of "now" for finalization code.
type Clock interface {
	Now(loc *time.Location) time.Time
}

type System struct{}

func (System) Now(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

type Fixed struct {
	At time.Time
}

func (f Fixed) Now(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return f.At.In(loc)
}
