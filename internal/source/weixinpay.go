package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"annwatch/internal/announce"
	logx "annwatch/pkg/logx"
)

const (
	TypeWeixinPay = "weixinpay"

	weixinPayName      = "微信支付"
	weixinPayEndpoint  = "https://pay.weixin.qq.com/index.php/public/cms/get_contents"
	weixinPayDetailURL = "https://pay.weixin.qq.com/index.php/public/cms/content_detail?id="
	weixinPayListID    = "6200"
)

// WeChat Pay publishes timestamps as unix seconds; dates are reported in China time.
var chinaTime = time.FixedZone("CST", 8*60*60)

// WeixinPay polls the WeChat Pay merchant announcement CMS. Pinned and normal
// listings are separate queries and are merged, normal first.
type WeixinPay struct {
	endpoint string
	opts     Options
	now      func() time.Time
}

func NewWeixinPay(endpoint string, opts Options) *WeixinPay {
	if endpoint == "" {
		endpoint = weixinPayEndpoint
	}
	return &WeixinPay{endpoint: endpoint, opts: opts.withDefaults(), now: time.Now}
}

func (w *WeixinPay) Name() string { return "WeixinPay" }

type weixinPayResponse struct {
	ErrorCode *int `json:"errorcode"`
	Data      struct {
		// Entries are decoded one by one so a malformed record only costs itself.
		ContentList []json.RawMessage `json:"contentlist"`
	} `json:"data"`
}

type weixinPayContent struct {
	ContentID          json.Number `json:"contentId"`
	ContentTitle       string      `json:"contentTitle"`
	ContentPublishTime json.Number `json:"contentPublishTime"`
}

func (w *WeixinPay) Announcements(ctx context.Context) []announce.RawItem {
	var items []announce.RawItem
	for _, listing := range []string{"normal", "pinned"} {
		got, err := w.fetch(ctx, w.query(listing))
		if err != nil {
			w.opts.Log.Warn("weixinpay fetch failed", logx.String("listing", listing), logx.Err(err))
			continue
		}
		items = append(items, got...)
	}
	return items
}

func (w *WeixinPay) query(listing string) string {
	now := strconv.FormatInt(w.now().Unix(), 10)
	q := url.Values{}
	q.Set("id", weixinPayListID)
	q.Set("cmstype", "1")
	q.Set("url", "https://pay.weixin.qq.com/public/cms/content_list?lang=zh&id="+weixinPayListID)
	q.Set("states", "2")
	q.Set("publishtimeend", now)
	q.Set("expiretimebeg", now)
	q.Set("field", "contentId,contentTitle,contentPublishTime")
	q.Set("g_ty", "ajax")
	q.Set("ordertype", "4")
	if listing == "pinned" {
		q.Set("propertyinclude", "1")
	} else {
		q.Set("pagenum", "1")
		q.Set("propertyexclude", "1")
	}
	return w.endpoint + "?" + q.Encode()
}

func (w *WeixinPay) fetch(ctx context.Context, u string) ([]announce.RawItem, error) {
	body, err := get(ctx, w.opts, u)
	if err != nil {
		return nil, err
	}
	var resp weixinPayResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.ErrorCode == nil || *resp.ErrorCode != 0 {
		code := -1
		if resp.ErrorCode != nil {
			code = *resp.ErrorCode
		}
		return nil, fmt.Errorf("api errorcode %d", code)
	}

	out := make([]announce.RawItem, 0, len(resp.Data.ContentList))
	for i, rawEntry := range resp.Data.ContentList {
		var c weixinPayContent
		if err := json.Unmarshal(rawEntry, &c); err != nil {
			w.opts.Log.Warn("weixinpay item skipped: bad record", logx.Int("index", i), logx.Err(err))
			continue
		}
		if c.ContentTitle == "" || c.ContentID.String() == "" {
			w.opts.Log.Debug("weixinpay item skipped: missing title or id")
			continue
		}
		item := announce.RawItem{
			"contentId":    c.ContentID.String(),
			"contentTitle": c.ContentTitle,
		}
		if ts, err := c.ContentPublishTime.Int64(); err == nil {
			item["contentPublishTime"] = ts
		}
		out = append(out, item)
	}
	return out, nil
}

func (w *WeixinPay) Format(item announce.RawItem) announce.Announcement {
	a := announce.Announcement{
		Source: weixinPayName,
		Title:  str(item, "contentTitle"),
		URL:    weixinPayDetailURL + url.QueryEscape(str(item, "contentId")),
	}
	if ts, ok := item["contentPublishTime"].(int64); ok {
		t := time.Unix(ts, 0).In(chinaTime)
		a.Date = t.Format(announce.DateLayout)
		a.Time = t.Format("15:04:05")
	}
	return a
}
