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
	TypeTencentCloud = "tencentcloud"

	tencentCloudName      = "腾讯云"
	tencentCloudEndpoint  = "https://cloud.tencent.com/announce"
	tencentCloudDetailURL = "https://cloud.tencent.com/announce/detail/"
)

// TencentCloud scrapes the Tencent Cloud announcement list page.
type TencentCloud struct {
	endpoint string
	opts     Options
}

func NewTencentCloud(endpoint string, opts Options) *TencentCloud {
	if endpoint == "" {
		endpoint = tencentCloudEndpoint
	}
	return &TencentCloud{endpoint: endpoint, opts: opts.withDefaults()}
}

func (t *TencentCloud) Name() string { return "TencentCloud" }

func (t *TencentCloud) Announcements(ctx context.Context) []announce.RawItem {
	body, err := get(ctx, t.opts, t.endpoint)
	if err != nil {
		t.opts.Log.Warn("tencentcloud fetch failed", logx.Err(err))
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.opts.Log.Warn("tencentcloud parse failed", logx.Err(err))
		return nil
	}

	var items []announce.RawItem
	doc.Find(".msg-list-bd .msg-list-item").Each(func(i int, s *goquery.Selection) {
		link := s.Find(".msg-list-con a").First()
		when := s.Find(".msg-list-aside span").First()
		href, ok := link.Attr("href")
		if link.Length() == 0 || when.Length() == 0 || !ok {
			t.opts.Log.Debug("tencentcloud item skipped: missing link or time", logx.Int("index", i))
			return
		}
		items = append(items, announce.RawItem{
			"title":      strings.TrimSpace(link.Text()),
			"announceId": lastPathSegment(href),
			"beginTime":  strings.TrimSpace(when.Text()),
		})
	})
	return items
}

func (t *TencentCloud) Format(item announce.RawItem) announce.Announcement {
	date, clock := announce.SplitDateTime(str(item, "beginTime"))
	return announce.Announcement{
		Source: tencentCloudName,
		Title:  str(item, "title"),
		Date:   date,
		Time:   clock,
		URL:    tencentCloudDetailURL + str(item, "announceId"),
	}
}
