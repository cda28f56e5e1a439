package entities

import "time"

// Ticket is one raffle entry; its ID is the serial shown to the buyer
type Ticket struct {
	ID       int64     `db:"id"`
	OwnerID  int64     `db:"owner_id"`
	IssuedAt time.Time `db:"issued_at"`
}

// SerialRange returns the lowest and highest serial in a batch
func SerialRange(tickets []*Ticket) (first, last int64) {
	for i, t := range tickets {
		if i == 0 || t.ID < first {
			first = t.ID
		}
		if i == 0 || t.ID > last {
			last = t.ID
		}
	}
	return first, last
}
