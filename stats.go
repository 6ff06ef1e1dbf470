package atsreport

import (
	"context"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"strconv"

	"github.com/hnakamur/errstack"
	"github.com/valyala/fastjson"
)

// StatsPath is the path of the TrafficServer stats_over_http endpoint
const StatsPath = "/_stats"

// Stats is one decoded _stats document
type Stats struct {
	p    fastjson.Parser
	root *fastjson.Value
}

// ParseStats decodes a _stats response body
func ParseStats(buf []byte) (*Stats, error) {
	s := new(Stats)
	v, err := s.p.ParseBytes(buf)
	if err != nil {
		return nil, errstack.WithLV(errstack.Errorf("failed to decode stats err=%+v", err))
	}
	s.root = v
	return s, nil
}

// Global returns the "global" section, nil when the document has none
func (s *Stats) Global() *fastjson.Value {
	return s.root.Get("global")
}

// StatsURL returns the stats endpoint URL of a TrafficServer node
func StatsURL(host string, port int) string {
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(host, strconv.Itoa(port)), StatsPath)
}

// FetchStats performs one GET on url and decodes the body
func FetchStats(ctx context.Context, client *http.Client, url string) (*Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errstack.WithLV(errstack.Errorf("failed to build request url=%s err=%+v", url, err))
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errstack.WithLV(errstack.Errorf("%+v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errstack.WithLV(errstack.Errorf("HTTP Error %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}
	buf, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errstack.WithLV(errstack.Errorf("failed to read stats body err=%+v", err))
	}
	return ParseStats(buf)
}
