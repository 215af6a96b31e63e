package storage

import (
	"context"
	"fmt"

	"wideform/internal/sdmx"
)

// StreamObservations flattens a finalized dataset into observation rows and
// sends them on out, one []any per observation in ObservationColumns order:
// key-dimension values (the enumerated dimension rendered as its full
// hierarchy path), the varying label, attribute values, the data value last.
// Blank cells and absent attributes become nil (SQL NULL); numeric mode
// converts values through Observation.Float64 and sends nil for cells that
// do not parse. Returns the number of rows sent. The caller owns out and
// closes it after StreamObservations returns.
func StreamObservations(ctx context.Context, ds *sdmx.DataSet, numeric bool, out chan<- []any) (int64, error) {
	sd := ds.Structure
	keyDims := sd.KeyDimensions()
	attrs := sd.Attributes()
	enumID := sd.EnumeratedDimension().ID
	cl := sd.Enumeration()

	var sent int64
	for _, s := range ds.Series {
		head := make([]any, 0, len(keyDims))
		for _, d := range keyDims {
			v, _ := s.Key.Get(d.ID)
			if d.ID == enumID {
				p, err := cl.PathString(v)
				if err != nil {
					return sent, fmt.Errorf("series [%s]: %w", s.Key, err)
				}
				v = p
			}
			head = append(head, v)
		}
		attrVals := make([]any, len(attrs))
		for i, a := range attrs {
			if v, ok := s.Key.Attr(a.ID); ok {
				attrVals[i] = v
			}
		}
		for _, o := range s.Obs {
			row := make([]any, 0, len(head)+len(attrVals)+2)
			row = append(row, head...)
			row = append(row, o.Period)
			row = append(row, attrVals...)
			row = append(row, obsValue(o, numeric))
			select {
			case out <- row:
				sent++
			case <-ctx.Done():
				return sent, ctx.Err()
			}
		}
	}
	return sent, nil
}

// obsValue maps one observation's raw value to a database cell. Blank cells
// are NULL; in numeric mode values that do not parse are NULL too.
func obsValue(o sdmx.Observation, numeric bool) any {
	if numeric {
		f, ok := o.Float64()
		if !ok {
			return nil
		}
		return f
	}
	if o.Value == "" {
		return nil
	}
	return o.Value
}
