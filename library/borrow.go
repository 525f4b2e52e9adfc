package library

// NotReturned is the stored sentinel for the return time of an open loan.
const NotReturned int64 = 0

// Borrow is one lending record. Times are unix milliseconds.
// A record with ReturnTime == NotReturned is an open loan; for a given
// (CardID, BookID) pair at most one open record may exist at a time.
type Borrow struct {
	CardID     int64
	BookID     int64
	BorrowTime int64
	ReturnTime int64
}

// Open reports whether the loan has not been returned yet.
func (b Borrow) Open() bool {
	return b.ReturnTime == NotReturned
}

// BorrowHistoryItem is one row of a card's lending history: the borrow
// record joined with the book's descriptive fields. Returned makes the
// open/closed state explicit so callers never have to interpret the
// stored sentinel.
type BorrowHistoryItem struct {
	CardID      int64
	BookID      int64
	BorrowTime  int64
	ReturnTime  int64
	Returned    bool
	Category    string
	Title       string
	Press       string
	PublishYear int
	Author      string
	Price       float64
}
