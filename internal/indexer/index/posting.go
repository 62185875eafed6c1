package index

// Posting records where a term occurs in one document. Offsets are stored
// delta-encoded: Deltas[0] is the first offset and every later entry is the
// gap to its predecessor.
type Posting struct {
	DocID  int   `json:"doc_id"`
	Deltas []int `json:"deltas"`
}

// NewPosting delta-encodes an ascending, duplicate-free offset list.
func NewPosting(docID int, positions []int) Posting {
	return Posting{DocID: docID, Deltas: EncodeDeltas(positions)}
}

// Positions decodes the offsets. The returned slice is freshly allocated.
func (p Posting) Positions() []int {
	return DecodeDeltas(p.Deltas)
}

// Frequency is the number of occurrences of the term in the document.
func (p Posting) Frequency() int {
	return len(p.Deltas)
}

// PostingList holds one Posting per document, ascending by DocID.
type PostingList []Posting

// DocIDs returns the set of documents in the list.
func (pl PostingList) DocIDs() DocSet {
	set := make(DocSet, len(pl))
	for _, p := range pl {
		set.Add(p.DocID)
	}
	return set
}

// Find returns the posting for docID using binary search over the
// ascending list.
func (pl PostingList) Find(docID int) (Posting, bool) {
	lo, hi := 0, len(pl)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if pl[mid].DocID < docID {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(pl) && pl[lo].DocID == docID {
		return pl[lo], true
	}
	return Posting{}, false
}

// EncodeDeltas converts ascending positions into first value plus gaps.
func EncodeDeltas(positions []int) []int {
	if len(positions) == 0 {
		return nil
	}
	deltas := make([]int, len(positions))
	deltas[0] = positions[0]
	for i := 1; i < len(positions); i++ {
		deltas[i] = positions[i] - positions[i-1]
	}
	return deltas
}

// DecodeDeltas reverses EncodeDeltas.
func DecodeDeltas(deltas []int) []int {
	if len(deltas) == 0 {
		return nil
	}
	positions := make([]int, len(deltas))
	positions[0] = deltas[0]
	for i := 1; i < len(deltas); i++ {
		positions[i] = positions[i-1] + deltas[i]
	}
	return positions
}

// TermEntry pairs a term with its postings.
type TermEntry struct {
	Term     string
	Postings PostingList
}
