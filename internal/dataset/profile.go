package dataset

import "math"

// ColumnProfile holds quality and summary metrics for one column.
type ColumnProfile struct {
	Name          string     `json:"name"`
	Type          ColumnType `json:"type"`
	TotalRows     int        `json:"total_rows"`
	MissingRows   int        `json:"missing_rows"`
	MissingRate   float64    `json:"missing_rate"`
	DistinctCount int        `json:"distinct_count"`
	Entropy       float64    `json:"entropy"`

	// Populated for numeric columns only.
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Mean *float64 `json:"mean,omitempty"`
}

// Profile computes per-column metrics over the whole table.
func (t *Table) Profile() []ColumnProfile {
	profiles := make([]ColumnProfile, len(t.Columns))
	for i, col := range t.Columns {
		profiles[i] = t.profileColumn(i, col)
	}
	return profiles
}

func (t *Table) profileColumn(colIdx int, col Column) ColumnProfile {
	profile := ColumnProfile{
		Name:      col.Name,
		Type:      col.Type,
		TotalRows: len(t.Rows),
	}

	valueCounts := make(map[string]int)
	present := 0
	var sum, minVal, maxVal float64
	numericCount := 0

	for row := range t.Rows {
		cell := t.Cell(row, colIdx)
		if cell == "" {
			continue
		}
		present++
		valueCounts[cell]++

		if col.Type != Numeric {
			continue
		}
		if v, ok := t.Float(row, colIdx); ok {
			if numericCount == 0 || v < minVal {
				minVal = v
			}
			if numericCount == 0 || v > maxVal {
				maxVal = v
			}
			sum += v
			numericCount++
		}
	}

	profile.MissingRows = profile.TotalRows - present
	if profile.TotalRows > 0 {
		profile.MissingRate = float64(profile.MissingRows) / float64(profile.TotalRows)
	}
	profile.DistinctCount = len(valueCounts)
	profile.Entropy = shannonEntropy(valueCounts, present)

	if numericCount > 0 {
		mean := sum / float64(numericCount)
		profile.Min = &minVal
		profile.Max = &maxVal
		profile.Mean = &mean
	}
	return profile
}

// shannonEntropy measures value diversity in bits.
func shannonEntropy(valueCounts map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}
	entropy := 0.0
	for _, count := range valueCounts {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}
