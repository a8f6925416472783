package export

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/viam-modules/tank-tracking/detections"
)

// SheetName is the worksheet holding one tank's detections.
func SheetName(tank int) string {
	return fmt.Sprintf("Tank_%d", tank)
}

// Workbook writes one worksheet per tank that has tracked detections, with
// the same columns as the enriched CSV.
func Workbook(path string, columns []string, tracked map[int][]detections.Detection) (err error) {
	byTank := detections.ByTank(Flatten(tracked))
	if len(byTank) == 0 {
		return ErrNoData
	}
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	for i, tank := range detections.SortedKeys(byTank) {
		name := SheetName(tank)
		idx, err := f.NewSheet(name)
		if err != nil {
			return errors.Wrapf(err, "cannot add sheet %s", name)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		sw, err := f.NewStreamWriter(name)
		if err != nil {
			return errors.Wrapf(err, "cannot stream sheet %s", name)
		}
		if err := sw.SetRow("A1", header); err != nil {
			return err
		}
		for r, d := range byTank[tank] {
			cells := row(d, columns)
			values := make([]interface{}, len(cells))
			for j, v := range cells {
				if v.Numeric || v.Raw != "" {
					values[j] = v.Any()
				}
			}
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := sw.SetRow(cell, values); err != nil {
				return err
			}
		}
		if err := sw.Flush(); err != nil {
			return err
		}
	}
	// the default sheet of a new workbook is never used
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "cannot save %q", path)
	}
	return nil
}
