package excel

import (
	"fmt"
	"io"

	"gymbot/internal/models"

	"github.com/xuri/excelize/v2"
)

// SheetTrainings лист с записями в выгрузке
const SheetTrainings = "Trainings"

const exportTime = "02.01.2006 15:04:05"

var trainingColumns = []struct {
	title string
	width float64
}{
	{"Date", 20},
	{"Muscle", 18},
	{"Exercise", 30},
	{"Set", 6},
	{"Weight (kg)", 12},
	{"Reps", 6},
}

// WriteTrainings пишет записи тренировок в xlsx, одна строка на подход
func WriteTrainings(w io.Writer, trainings []models.Training) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetTrainings); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, c := range trainingColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(SheetTrainings, cell, c.title)
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(SheetTrainings, col, col, c.width)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#2E75B6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	lastHeader, _ := excelize.CoordinatesToCellName(len(trainingColumns), 1)
	f.SetCellStyle(SheetTrainings, "A1", lastHeader, headerStyle)
	f.SetPanes(SheetTrainings, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, t := range trainings {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			t.Date.Format(exportTime),
			t.MuscleName,
			t.ExerciseName,
			t.Set,
			t.Weight.InexactFloat64(),
			t.Reps,
		}
		if err := f.SetSheetRow(SheetTrainings, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
