package upload

// Progress is one progress sample, emitted after every acknowledged part.
// Within one batch run, BatchBytesSent is monotonically non-decreasing and
// reaches BatchBytesTotal only after the last part is acknowledged.
type Progress struct {
	ItemIndex      int
	TotalItems     int
	ItemBytesSent  int64
	ItemBytesTotal int64

	BatchBytesSent  int64
	BatchBytesTotal int64
}

// Fraction is the overall batch completion in [0, 1].
func (p Progress) Fraction() float64 {
	if p.BatchBytesTotal == 0 {
		return 0
	}
	return float64(p.BatchBytesSent) / float64(p.BatchBytesTotal)
}

// ProgressFunc receives progress samples. May be nil.
type ProgressFunc func(Progress)
