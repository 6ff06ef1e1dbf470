package main

import (
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masa23/atsreport"
	"github.com/masa23/atsreport/internal/exporter/graphite"
	"github.com/masa23/atsreport/internal/exporter/zabbix"
)

const statsJSON = `{"global": {
	"proxy.process.version.server.short": "1.2.3",
	"proxy.process.http.cache_hits": 42
}}`

func statsServer(t *testing.T, body string) *net.TCPAddr {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.Listener.Addr().(*net.TCPAddr)
}

// trapper answers every sender request with response and counts connections
func trapper(t *testing.T, response string) (*net.TCPAddr, *int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	var conns int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			atomic.AddInt32(&conns, 1)
			if _, err := zabbix.ReadPacket(conn); err == nil {
				_ = zabbix.WritePacket(conn, []byte(response))
			}
			conn.Close()
		}
	}()
	return ln.Addr().(*net.TCPAddr), &conns
}

func testOptions(stats, collector *net.TCPAddr) *atsreport.Options {
	opts := atsreport.DefaultOptions()
	opts.Host = stats.IP.String()
	opts.Port = stats.Port
	opts.ZabbixServer = collector.IP.String()
	opts.ZabbixPort = collector.Port
	return &opts
}

func TestNewSender(t *testing.T) {
	opts := atsreport.DefaultOptions()
	s, err := newSender(&opts)
	require.NoError(t, err)
	assert.IsType(t, &zabbix.ZabbixSender{}, s)

	opts.Collector = atsreport.CollectorGraphite
	opts.Dry = true
	s, err = newSender(&opts)
	require.NoError(t, err)
	assert.IsType(t, &graphite.GraphiteSender{}, s)

	opts.Collector = "statsd"
	_, err = newSender(&opts)
	assert.Error(t, err)

	opts = atsreport.DefaultOptions()
	opts.ZabbixPort = 0
	_, err = newSender(&opts)
	assert.Error(t, err)
}

func TestRunSuccess(t *testing.T) {
	zbx, conns := trapper(t, `{"response":"success","info":"processed: 2; failed: 0; total: 2; seconds spent: 0.000055"}`)
	opts := testOptions(statsServer(t, statsJSON), zbx)

	assert.Equal(t, 0, run(opts))
	assert.Equal(t, int32(1), atomic.LoadInt32(conns))
}

func TestRunDebugSendsEachItem(t *testing.T) {
	zbx, conns := trapper(t, `{"response":"success","info":"processed: 1; failed: 0; total: 1; seconds spent: 0.000055"}`)
	opts := testOptions(statsServer(t, statsJSON), zbx)
	opts.Debug = true
	opts.Verbose = true

	assert.Equal(t, 0, run(opts))
	assert.Equal(t, int32(2), atomic.LoadInt32(conns))
}

func TestRunDryRun(t *testing.T) {
	zbx, conns := trapper(t, `{"response":"failed","info":"should not be called"}`)
	opts := testOptions(statsServer(t, statsJSON), zbx)
	opts.Dry = true

	assert.Equal(t, 0, run(opts))
	assert.Equal(t, int32(0), atomic.LoadInt32(conns))
}

func TestRunCollectorRejects(t *testing.T) {
	zbx, _ := trapper(t, `{"response":"success","info":"processed: 0; failed: 2; total: 2; seconds spent: 0.000041"}`)
	opts := testOptions(statsServer(t, statsJSON), zbx)

	assert.Equal(t, 4, run(opts))
}

func TestRunMissingGlobal(t *testing.T) {
	zbx, conns := trapper(t, `{"response":"success","info":"processed: 1; failed: 0; total: 1; seconds spent: 0.000055"}`)
	opts := testOptions(statsServer(t, `{"local": {}}`), zbx)

	assert.Equal(t, 3, run(opts))
	assert.Equal(t, int32(0), atomic.LoadInt32(conns))
}

func TestRunGraphiteUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	opts := atsreport.DefaultOptions()
	opts.Host = "127.0.0.1"
	opts.Collector = atsreport.CollectorGraphite
	opts.GraphiteServer = "127.0.0.1"
	opts.GraphitePort = port

	assert.Equal(t, 1, run(&opts))
}
