package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/spec-kit/ticketflow/internal/domain"
)

func renderRoles(out io.Writer) {
	roles := domain.Roles()

	hierarchy := table.NewWriter()
	hierarchy.SetOutputMirror(out)
	hierarchy.SetTitle("Roles")
	hierarchy.AppendHeader(table.Row{"Rank", "Role", "Registered under"})
	for i, role := range roles {
		parent := string(domain.RequiredParent(role))
		if parent == "" {
			parent = "bootstrap"
		}
		hierarchy.AppendRow(table.Row{i + 1, role, parent})
	}
	hierarchy.Render()

	header := table.Row{"Action", "Minimum"}
	for _, role := range roles {
		header = append(header, role)
	}
	actions := table.NewWriter()
	actions.SetOutputMirror(out)
	actions.SetTitle("Actions")
	actions.AppendHeader(header)
	for _, action := range domain.Actions() {
		minimum, _ := domain.MinimumRole(action)
		row := table.Row{action, minimum}
		for _, role := range roles {
			mark := ""
			if role.AtLeast(minimum) {
				mark = "x"
			}
			row = append(row, mark)
		}
		actions.AppendRow(row)
	}
	actions.Render()
}
