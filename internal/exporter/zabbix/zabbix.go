package zabbix

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/hnakamur/errstack"
	"github.com/hnakamur/ltsvlog"

	"github.com/masa23/atsreport/internal/exporter"
)

type ZabbixSender struct {
	exporter.Batch
	config *ZabbixSenderConfig
	dialer *net.Dialer
	now    func() time.Time
}

var _ exporter.Sender = (*ZabbixSender)(nil)

type ZabbixSenderConfig struct {
	Host    string
	Port    int
	Timeout time.Duration
	// DryRun builds every request but never opens a connection
	DryRun bool
	// Debug sends items one by one and logs the result of each
	Debug   bool
	Verbose bool
}

func NewZabbixSender(config *ZabbixSenderConfig) (*ZabbixSender, error) {
	if config.Host == "" {
		return nil, errstack.WithLV(errstack.Errorf("zabbix server host is empty"))
	}
	if config.Port <= 0 || config.Port > 65535 {
		return nil, errstack.WithLV(errstack.Errorf("invalid zabbix server port %d", config.Port))
	}
	return &ZabbixSender{
		config: config,
		dialer: &net.Dialer{Timeout: config.Timeout},
		now:    time.Now,
	}, nil
}

func (s *ZabbixSender) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Send transmits the accumulated items and clears the batch. In debug mode
// the first rejected item stops the send.
func (s *ZabbixSender) Send(ctx context.Context) error {
	defer s.Reset()
	items := s.Items()
	if len(items) == 0 {
		return nil
	}
	if !s.config.Debug {
		res, err := s.send(ctx, items)
		if err != nil {
			return err
		}
		ltsvlog.Logger.Debug().String("msg", "zabbix response").String("info", res.Info).Log()
		return nil
	}

	for _, item := range items {
		res, err := s.send(ctx, []exporter.Item{item})
		ev := ltsvlog.Logger.Debug().String("host", item.Host).String("key", item.Key)
		if s.config.Verbose {
			ev = ev.String("value", item.Value)
		}
		if err != nil {
			ev.String("msg", "item rejected").String("err", err.Error()).Log()
			return err
		}
		ev.String("msg", "item sent").String("info", res.Info).Log()
	}
	return nil
}

func (s *ZabbixSender) send(ctx context.Context, items []exporter.Item) (*Response, error) {
	body := EncodeRequest(items, s.now().Unix())
	if s.config.DryRun {
		ltsvlog.Logger.Debug().String("msg", "dry run, request not sent").
			String("addr", s.Addr()).Int("items", len(items)).Int("bytes", len(body)).Log()
		return &Response{Response: "success", Info: "dry run", Processed: len(items), Total: len(items)}, nil
	}

	conn, err := s.dialer.DialContext(ctx, "tcp", s.Addr())
	if err != nil {
		return nil, errstack.WithLV(errstack.Errorf("failed to connect zabbix addr=%s err=%+v", s.Addr(), err))
	}
	defer conn.Close()

	var deadline time.Time
	if s.config.Timeout > 0 {
		deadline = time.Now().Add(s.config.Timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if !deadline.IsZero() {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, errstack.WithLV(errstack.Errorf("failed to set deadline err=%+v", err))
		}
	}

	if err := WritePacket(conn, body); err != nil {
		return nil, err
	}
	resBody, err := ReadPacket(conn)
	if err != nil {
		return nil, err
	}
	res, err := ParseResponse(resBody)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return res, err
	}
	return res, nil
}
