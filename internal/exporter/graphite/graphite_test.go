package graphite

import (
	"context"
	"io/ioutil"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// carbon accepts one connection and delivers everything written to it once
// the client disconnects.
func carbon(t *testing.T) (int, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf, _ := ioutil.ReadAll(conn)
		received <- string(buf)
	}()
	return ln.Addr().(*net.TCPAddr).Port, received
}

func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestMetricName(t *testing.T) {
	assert.Equal(t, "servers.ats01_example_com.ats.proxy.process.http.cache_hits",
		MetricName("servers", "ats01.example.com", "ats.proxy.process.http.cache_hits"))
	assert.Equal(t, "ats01.ats.a", MetricName("", "ats01", "ats.a"))
}

func TestGraphiteSenderSend(t *testing.T) {
	for _, debug := range []bool{false, true} {
		t.Run("debug="+strconv.FormatBool(debug), func(t *testing.T) {
			port, received := carbon(t)
			e, err := NewGraphiteSender(&GraphiteSenderConfig{
				Prefix: "servers",
				Host:   "127.0.0.1",
				Port:   port,
				Debug:  debug,
			})
			require.NoError(t, err)
			e.now = func() time.Time { return time.Unix(1700000000, 0) }

			e.AddItem("ats01.example.com", "ats.proxy.process.http.cache_hits", "42")
			e.AddItem("ats01.example.com", "ats.proxy.process.http.avg_transactions_per_client_connection", "1.5")
			e.AddItem("ats01.example.com", "ats.zbx_version", "0.0.8")
			require.NoError(t, e.Send(context.Background()))
			assert.Equal(t, 0, e.Len())
			require.NoError(t, e.Close())

			select {
			case got := <-received:
				assert.Contains(t, got, "servers.ats01_example_com.ats.proxy.process.http.cache_hits 42 1700000000")
				assert.Contains(t, got, "servers.ats01_example_com.ats.proxy.process.http.avg_transactions_per_client_connection 1.5 1700000000")
				assert.NotContains(t, got, "zbx_version")
			case <-time.After(3 * time.Second):
				t.Fatal("carbon received nothing")
			}
		})
	}
}

func TestGraphiteSenderConnectionRefused(t *testing.T) {
	_, err := NewGraphiteSender(&GraphiteSenderConfig{Host: "127.0.0.1", Port: closedPort(t)})
	assert.Error(t, err)
}

func TestGraphiteSenderDryRun(t *testing.T) {
	e, err := NewGraphiteSender(&GraphiteSenderConfig{Host: "127.0.0.1", Port: closedPort(t), DryRun: true})
	require.NoError(t, err)
	e.AddItem("h", "ats.a", "1")
	assert.NoError(t, e.Send(context.Background()))
	assert.NoError(t, e.Close())
}

func TestConvertGraphiteMetrics(t *testing.T) {
	e := &GraphiteSender{
		config: &GraphiteSenderConfig{Prefix: "p"},
		now:    func() time.Time { return time.Unix(10, 0) },
	}
	e.AddItem("h.example", "ats.a", "1")
	e.AddItem("h.example", "ats.state", "green")
	e.AddItem("h.example", "ats.b", "-2.5e3")

	metrics := e.convertGraphiteMetrics(e.Items())
	require.Len(t, metrics, 2)
	assert.Equal(t, "p.h_example.ats.a", metrics[0].Name)
	assert.Equal(t, "1", metrics[0].Value)
	assert.Equal(t, int64(10), metrics[0].Timestamp)
	assert.True(t, strings.HasSuffix(metrics[1].Name, ".ats.b"))
}
