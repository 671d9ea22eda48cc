package notifier

import (
	"fmt"
	"html"
	"strings"
)

// CheckedAtLayout formats the time the announcement was detected.
const CheckedAtLayout = "2006-01-02 15:04:05"

func when(m Message) string {
	a := m.Announcement
	if a.Time == "" {
		return a.Date
	}
	return a.Date + " " + a.Time
}

// RenderMarkdown renders the group-robot markdown body.
func RenderMarkdown(m Message) string {
	if !m.IsAnnouncement() {
		return m.Text
	}
	a := m.Announcement
	var b strings.Builder
	fmt.Fprintf(&b, "### 📢 「%s」新公告\n\n", a.Source)
	fmt.Fprintf(&b, "**标题**：%s\n\n", a.Title)
	fmt.Fprintf(&b, "**时间**：%s\n\n", when(m))
	fmt.Fprintf(&b, "**链接**：[点击查看详情](%s)\n\n", a.URL)
	fmt.Fprintf(&b, "**巡检**：%s", m.CheckedAt.Format(CheckedAtLayout))
	return b.String()
}

// RenderHTML renders the same message for Telegram's HTML parse mode.
func RenderHTML(m Message) string {
	if !m.IsAnnouncement() {
		return html.EscapeString(m.Text)
	}
	a := m.Announcement
	var b strings.Builder
	fmt.Fprintf(&b, "📢 <b>「%s」新公告</b>\n\n", html.EscapeString(a.Source))
	fmt.Fprintf(&b, "<b>标题</b>：%s\n", html.EscapeString(a.Title))
	fmt.Fprintf(&b, "<b>时间</b>：%s\n", html.EscapeString(when(m)))
	fmt.Fprintf(&b, "<b>链接</b>：<a href=\"%s\">点击查看详情</a>\n", html.EscapeString(a.URL))
	fmt.Fprintf(&b, "<b>巡检</b>：%s", m.CheckedAt.Format(CheckedAtLayout))
	return b.String()
}
