package filter

import "github.com/rcowham/svndumpfilter2/record"

// PropertyRewriter strips svn:mergeinfo when requested and marks
// synthetic/rewritten records.
type PropertyRewriter struct {
	StripMergeinfo bool
}

// Strip removes svn:mergeinfo from pb if configured to. It reports
// whether anything was removed, so callers can decide whether a revision
// whose only property was mergeinfo became property-free.
func (r *PropertyRewriter) Strip(pb *record.PropBlock) bool {
	if !r.StripMergeinfo || pb == nil {
		return false
	}
	return pb.Delete(record.MergeinfoKey)
}

// Mark appends the svndumpfilter-generated marker property to pb,
// creating pb if nil.
func (r *PropertyRewriter) Mark(pb *record.PropBlock) *record.PropBlock {
	if pb == nil {
		pb = record.NewPropBlock()
	}
	pb.Set(record.MarkerKey, []byte(record.MarkerValue))
	return pb
}
