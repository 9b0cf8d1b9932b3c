package library

// Quota caps the total number of books across all three collections.
type Quota struct {
	// Max is the ceiling; zero or negative means unlimited.
	Max int
}

// Unlimited never rejects an add.
var Unlimited = Quota{}

// Limited reports whether the quota enforces a ceiling.
func (q Quota) Limited() bool {
	return q.Max > 0
}

// Check runs before any store mutation. Re-adding an existing member always
// passes since it changes nothing.
func (q Quota) Check(shelf Shelf, target Kind, book string) error {
	if !q.Limited() || shelf.Has(target, book) {
		return nil
	}
	if total := shelf.Total(); total >= q.Max {
		return QuotaExceeded(total, q.Max)
	}
	return nil
}
