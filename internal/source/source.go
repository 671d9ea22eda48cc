// Package source implements the provider adapters polled by the monitor.
//
// Each adapter fetches provider-specific raw items and normalizes them into
// announce.Announcement. Fetch failures never escape an adapter: they are
// logged and the adapter returns whatever it managed to collect.
package source

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"annwatch/internal/announce"
	"annwatch/internal/config"
	logx "annwatch/pkg/logx"
)

// Options are shared by every adapter.
type Options struct {
	Client    *http.Client
	Log       logx.Logger
	UserAgent string
	// Timeout bounds each HTTP request (default 15s).
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.Client == nil {
		o.Client = NewHTTPClient(o.Timeout)
	}
	if o.Log.IsZero() {
		o.Log = logx.Nop()
	}
	if strings.TrimSpace(o.UserAgent) == "" {
		o.UserAgent = defaultUserAgent
	}
	return o
}

type factory func(endpoint string, opts Options) announce.Source

var registry = map[string]factory{
	TypeWeixinPay:    func(u string, o Options) announce.Source { return NewWeixinPay(u, o) },
	TypeTencentCloud: func(u string, o Options) announce.Source { return NewTencentCloud(u, o) },
	TypeYeepay:       func(u string, o Options) announce.Source { return NewYeepay(u, o) },
}

// DefaultOrder is the polling order used when no sources are configured.
var DefaultOrder = []string{TypeWeixinPay, TypeTencentCloud, TypeYeepay}

// Types lists the registered adapter types.
func Types() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New builds one adapter.
func New(sc config.SourceConfig, opts Options) (announce.Source, error) {
	typ := strings.ToLower(strings.TrimSpace(sc.Type))
	f, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("unknown source type %q (known: %s)", sc.Type, strings.Join(Types(), ", "))
	}
	opts = opts.withDefaults()
	opts.Log = opts.Log.With(logx.String("source", typ))
	return f(strings.TrimSpace(sc.URL), opts), nil
}

// FromConfig builds the enabled adapters in configured order.
func FromConfig(list []config.SourceConfig, opts Options) ([]announce.Source, error) {
	if len(list) == 0 {
		for _, t := range DefaultOrder {
			list = append(list, config.SourceConfig{Type: t})
		}
	}
	out := make([]announce.Source, 0, len(list))
	for _, sc := range list {
		if !sc.IsEnabled() {
			continue
		}
		s, err := New(sc, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no sources enabled")
	}
	return out, nil
}

func str(item announce.RawItem, key string) string {
	v, ok := item[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// lastPathSegment returns the id at the end of a detail link like "/announce/detail/123".
func lastPathSegment(href string) string {
	href = strings.TrimSpace(href)
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	href = strings.TrimRight(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}
