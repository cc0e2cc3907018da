package core

// AnomalyFlag describes data-quality problems of one breakpoint relative to
// its successor. Flags are derived on demand and never stored.
type AnomalyFlag struct {
	// NonNumericThreshold is set when the breakpoint's own threshold did not parse.
	NonNumericThreshold bool `json:"nonNumericThreshold"`
	// OutOfOrder is set when the next threshold is lower than this one.
	OutOfOrder bool `json:"outOfOrder"`
	// DuplicateYear is set when the next breakpoint records the same year.
	DuplicateYear bool `json:"duplicateYear"`
}

// Any reports whether any flag is set.
func (f AnomalyFlag) Any() bool {
	return f.NonNumericThreshold || f.OutOfOrder || f.DuplicateYear
}

// Labels returns a short description of each set flag.
func (f AnomalyFlag) Labels() []string {
	var labels []string
	if f.NonNumericThreshold {
		labels = append(labels, "non-numeric threshold")
	}
	if f.OutOfOrder {
		labels = append(labels, "out of order")
	}
	if f.DuplicateYear {
		labels = append(labels, "duplicate year")
	}
	return labels
}

// DetectAnomalies returns one flag per breakpoint, in the same order.
//
// OutOfOrder compares only numeric thresholds and DuplicateYear only parsed
// years. NonNumericThreshold applies to every breakpoint including the last.
func DetectAnomalies(bps []Breakpoint) []AnomalyFlag {
	flags := make([]AnomalyFlag, len(bps))
	for k, bp := range bps {
		flags[k].NonNumericThreshold = !bp.Threshold.Valid
		if k+1 >= len(bps) {
			continue
		}
		next := bps[k+1]
		if bp.Threshold.Valid && next.Threshold.Valid && next.Threshold.Value < bp.Threshold.Value {
			flags[k].OutOfOrder = true
		}
		if bp.Year.Valid && next.Year.Valid && next.Year.Value == bp.Year.Value {
			flags[k].DuplicateYear = true
		}
	}
	return flags
}

// AnomalyRow is a flagged breakpoint within a brand.
type AnomalyRow struct {
	Index      int         `json:"index"`
	Breakpoint Breakpoint  `json:"breakpoint"`
	Flags      AnomalyFlag `json:"flags"`
}

// BrandAnomalies lists the flagged breakpoints of one brand.
type BrandAnomalies struct {
	Brand string       `json:"brand"`
	Rows  []AnomalyRow `json:"rows"`
}

// TableAnomalies reports every brand with at least one flagged breakpoint,
// in brand encounter order.
func TableAnomalies(table *BrandTable) []BrandAnomalies {
	var report []BrandAnomalies
	for _, brand := range table.order {
		bps := table.brands[brand]
		var rows []AnomalyRow
		for i, f := range DetectAnomalies(bps) {
			if f.Any() {
				rows = append(rows, AnomalyRow{Index: i, Breakpoint: bps[i], Flags: f})
			}
		}
		if len(rows) > 0 {
			report = append(report, BrandAnomalies{Brand: brand, Rows: rows})
		}
	}
	return report
}

// countAnomalies returns the number of flagged breakpoints in the table.
func countAnomalies(table *BrandTable) int {
	n := 0
	for _, b := range TableAnomalies(table) {
		n += len(b.Rows)
	}
	return n
}
