package export

import "github.com/xuri/excelize/v2"

const (
	headerFill  = "4472C4"
	flaggedFill = "FFC7CE"

	// built-in excelize number format "0.00"
	numFmtFixed2 = 2
	numFmtInt    = 1
)

type styles struct {
	header      int
	cell        int
	money       int
	flagged     int
	flaggedCash int
	title       int
	bold        int
	boldMoney   int
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

func newStyles(f *excelize.File) (*styles, error) {
	var s styles
	left := &excelize.Alignment{Horizontal: "left", Vertical: "center"}
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	}

	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.header, &excelize.Style{
			Fill:      fill(headerFill),
			Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    thinBorder(),
		}},
		{&s.cell, &excelize.Style{Border: thinBorder(), Alignment: left}},
		{&s.money, &excelize.Style{Border: thinBorder(), Alignment: left, NumFmt: numFmtFixed2}},
		{&s.flagged, &excelize.Style{Border: thinBorder(), Alignment: left, Fill: fill(flaggedFill)}},
		{&s.flaggedCash, &excelize.Style{Border: thinBorder(), Alignment: left, Fill: fill(flaggedFill), NumFmt: numFmtFixed2}},
		{&s.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}}},
		{&s.bold, &excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: numFmtInt}},
		{&s.boldMoney, &excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: numFmtFixed2}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, err
		}
		*d.dst = id
	}
	return &s, nil
}
