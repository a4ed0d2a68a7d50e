package record

// ListOptions filters a listing.
type ListOptions struct {
	Statuses []Status
	Limit    int
}

func (o ListOptions) matches(rec Record) bool {
	if len(o.Statuses) == 0 {
		return true
	}
	for _, st := range o.Statuses {
		if rec.Status == st {
			return true
		}
	}
	return false
}
