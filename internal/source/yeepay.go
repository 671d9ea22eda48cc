package source

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"annwatch/internal/announce"
	logx "annwatch/pkg/logx"
)

const (
	TypeYeepay = "yeepay"

	yeepayName      = "易宝支付"
	yeepayEndpoint  = "https://www.yeepay.com/all-notices"
	yeepayDetailURL = "https://www.yeepay.com/notice-detail/"
)

// Yeepay scrapes the Yeepay notice table (an antd table rendered server side).
type Yeepay struct {
	endpoint string
	opts     Options
}

func NewYeepay(endpoint string, opts Options) *Yeepay {
	if endpoint == "" {
		endpoint = yeepayEndpoint
	}
	return &Yeepay{endpoint: endpoint, opts: opts.withDefaults()}
}

func (y *Yeepay) Name() string { return "Yeepay" }

func (y *Yeepay) Announcements(ctx context.Context) []announce.RawItem {
	body, err := get(ctx, y.opts, y.endpoint)
	if err != nil {
		y.opts.Log.Warn("yeepay fetch failed", logx.Err(err))
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		y.opts.Log.Warn("yeepay parse failed", logx.Err(err))
		return nil
	}

	var items []announce.RawItem
	doc.Find(".ant-table-tbody tr").Each(func(i int, tr *goquery.Selection) {
		link := tr.Find("a").First()
		cell := tr.Find(".ant-table-row-cell-break-word").First()
		href, ok := link.Attr("href")
		if link.Length() == 0 || cell.Length() == 0 || !ok {
			y.opts.Log.Debug("yeepay row skipped: missing link or time", logx.Int("index", i))
			return
		}
		items = append(items, announce.RawItem{
			"title":    strings.TrimSpace(link.Text()),
			"noticeId": lastPathSegment(href),
			"pubTime":  strings.TrimSpace(cell.Text()),
		})
	})
	return items
}

func (y *Yeepay) Format(item announce.RawItem) announce.Announcement {
	date, clock := announce.SplitDateTime(str(item, "pubTime"))
	return announce.Announcement{
		Source: yeepayName,
		Title:  str(item, "title"),
		Date:   date,
		Time:   clock,
		URL:    yeepayDetailURL + str(item, "noticeId"),
	}
}
