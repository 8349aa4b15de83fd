package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/user/movienest/internal/model"
)

// userColumn 用户表格的一列
type userColumn struct {
	header string
	align  text.Align
	value  func(u *model.User) string
}

var userColumns = []userColumn{
	{"ID", text.AlignRight, func(u *model.User) string { return strconv.Itoa(u.ID) }},
	{"Username", text.AlignLeft, func(u *model.User) string { return u.Username }},
	{"Role", text.AlignLeft, func(u *model.User) string { return u.Role }},
	{"Active", text.AlignCenter, func(u *model.User) string { return yesNo(u.IsActive) }},
	{"Approved", text.AlignCenter, func(u *model.User) string { return yesNo(u.IsApproved) }},
	{"Created", text.AlignLeft, func(u *model.User) string { return u.CreatedAt.Format("2006-01-02 15:04") }},
}

// renderUsers 渲染用户表，页脚统计待审核和已停用账号
func renderUsers(users []*model.User) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(userColumns))
	configs := make([]table.ColumnConfig, len(userColumns))
	for i, col := range userColumns {
		header[i] = col.header
		configs[i] = table.ColumnConfig{Number: i + 1, Align: col.align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	var pending, disabled int
	for _, u := range users {
		row := make(table.Row, len(userColumns))
		for i, col := range userColumns {
			row[i] = col.value(u)
		}
		tw.AppendRow(row)

		if !u.IsApproved {
			pending++
		}
		if !u.IsActive {
			disabled++
		}
	}

	tw.AppendFooter(table.Row{
		strconv.Itoa(len(users)), "users",
		strconv.Itoa(pending) + " pending", "",
		strconv.Itoa(disabled) + " disabled", "",
	})

	return tw.Render()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
