// Package report builds the monthly attendance download.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"hostel/internal/attendance"
	"hostel/internal/model"
	"hostel/internal/store"
)

// Format is the file format of a download.
type Format string

const (
	FormatExcel Format = "excel"
	FormatCSV   Format = "csv"
)

// ParseFormat accepts "excel" (the default when empty) and "csv".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatExcel:
		return FormatExcel, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", model.Invalid("format", "must be excel or csv")
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (f Format) Filename(m model.Month) string {
	ext := "xlsx"
	if f == FormatCSV {
		ext = "csv"
	}
	return fmt.Sprintf("attendance-%s.%s", m, ext)
}

const missing = "N/A"

// Row is one student's line in the monthly report.
type Row struct {
	Name       string
	Department string
	Batch      string
	Room       string
	attendance.MonthlySummary
}

var headers = []string{"No", "Name", "Department", "Batch", "Room", "Present", "Absent", "Permission", "Days", "Rate (%)"}

func (r Row) cells(n int) []any {
	return []any{n, r.Name, r.Department, r.Batch, r.Room, r.Present, r.Absent, r.Permission, r.TotalDays, r.Rate}
}

// Rows summarises records per student for m. Rows follow the roster order;
// blank optional fields and rooms that no longer exist read as "N/A".
func Rows(m model.Month, roster []model.Student, rooms []model.Room, records []model.Attendance) []Row {
	numbers := make(map[string]string, len(rooms))
	for _, r := range rooms {
		numbers[r.ID] = r.RoomNumber
	}
	byStudent := make(map[string][]model.Attendance)
	for _, rec := range records {
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}
	out := make([]Row, 0, len(roster))
	for _, s := range roster {
		out = append(out, Row{
			Name:           s.Name,
			Department:     orMissing(s.Department),
			Batch:          orMissing(s.Batch),
			Room:           orMissing(numbers[s.RoomID]),
			MonthlySummary: attendance.Monthly(m, byStudent[s.ID]),
		})
	}
	return out
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}

// Generator reads the month's data from the record store.
type Generator struct {
	Store store.Store
}

func (g Generator) Monthly(ctx context.Context, m model.Month) ([]Row, error) {
	students, err := g.Store.ListStudents(ctx, store.StudentFilter{})
	if err != nil {
		return nil, err
	}
	rooms, err := g.Store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	records, err := g.Store.ListAttendance(ctx, store.AttendanceFilter{From: m.Start(), To: m.End()})
	if err != nil {
		return nil, err
	}
	return Rows(m, students, rooms, records), nil
}

// Write encodes rows in format f.
func Write(w io.Writer, f Format, m model.Month, rows []Row) error {
	if f == FormatCSV {
		return WriteCSV(w, rows)
	}
	return WriteExcel(w, m, rows)
}

func WriteExcel(w io.Writer, m model.Month, rows []Row) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := m.String()
	if err := file.SetSheetName(file.GetSheetName(file.GetActiveSheetIndex()), sheet); err != nil {
		return err
	}
	if err := file.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		vals := r.cells(i + 1)
		if err := file.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
	}
	_, err := file.WriteTo(w)
	return err
}

func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	for i, r := range rows {
		vals := r.cells(i + 1)
		rec := make([]string, len(vals))
		for j, v := range vals {
			rec[j] = fmt.Sprint(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
