package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/quiby-ai/staffdesk/pkg/employee"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle  = lipgloss.NewStyle().Width(14).Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// employeeTable renders records one per row in list order.
func employeeTable(records []employee.Employee) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(helpStyle).
		Headers("ID", "NAME", "ADDRESS", "COMPANY", "DESIGNATION").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, e := range records {
		t.Row(e.ID, e.Name, e.Address, e.Company, e.Designation)
	}
	return t.Render()
}

// recordView renders one record as labelled lines.
func recordView(e employee.Employee) string {
	values := e.Values()
	lines := make([]string, 0, len(employee.Fields)+1)
	lines = append(lines, labelStyle.Render("id:")+e.ID)
	for _, f := range employee.Fields {
		lines = append(lines, labelStyle.Render(f+":")+values[f])
	}
	return strings.Join(lines, "\n")
}
