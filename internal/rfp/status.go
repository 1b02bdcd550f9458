package rfp

// VendorStatus is the dispatch state of a vendor for one RFP.
type VendorStatus string

const (
	StatusPending   VendorStatus = "PENDING"
	StatusSent      VendorStatus = "SENT"
	StatusResponded VendorStatus = "RESPONDED"
)

var statusRank = map[VendorStatus]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusResponded: 2,
}

// Advance returns the state after moving towards next.
// The state never moves backwards, so RESPONDED is sticky.
func (s VendorStatus) Advance(next VendorStatus) VendorStatus {
	current, ok := statusRank[s]
	if !ok {
		return next
	}
	if statusRank[next] > current {
		return next
	}
	return s
}

func (s VendorStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}
