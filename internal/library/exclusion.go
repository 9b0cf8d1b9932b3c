package library

// Admission is the mutual-exclusion decision for adding a book to a
// collection.
type Admission struct {
	// Skip means the add must report success without touching any store:
	// the book already holds a membership that outranks the target.
	Skip bool
	// Evict lists the weaker collections the book must leave before the add.
	Evict []Kind
}

// Admit applies the promotion rules favorites < reading < read. A book may be
// promoted into a stronger collection, which evicts it from every weaker one.
// It can never be added to a weaker collection than the one it is in; that
// demotion requires an explicit remove first.
func Admit(shelf Shelf, target Kind, book string) Admission {
	var adm Admission
	for _, k := range Kinds {
		if k == target || !shelf.Has(k, book) {
			continue
		}
		if k.rank() > target.rank() {
			return Admission{Skip: true}
		}
		adm.Evict = append(adm.Evict, k)
	}
	return adm
}
