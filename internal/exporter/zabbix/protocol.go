package zabbix

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/hnakamur/errstack"
	"github.com/valyala/fastjson"

	"github.com/masa23/atsreport/internal/exporter"
)

// ZBXD header followed by the protocol flags byte
const (
	protocolHeader = "ZBXD"
	protocolFlags  = 0x01
	headerLen      = len(protocolHeader) + 1 + 8

	maxResponseLen = 1 << 20
)

type request struct {
	Request string        `json:"request"`
	Data    []requestItem `json:"data"`
	Clock   int64         `json:"clock"`
}

type requestItem struct {
	Host  string `json:"host"`
	Key   string `json:"key"`
	Value string `json:"value"`
	Clock int64  `json:"clock"`
}

// EncodeRequest builds the "sender data" JSON body for items
func EncodeRequest(items []exporter.Item, clock int64) []byte {
	req := request{
		Request: "sender data",
		Data:    make([]requestItem, len(items)),
		Clock:   clock,
	}
	for i, item := range items {
		req.Data[i] = requestItem{Host: item.Host, Key: item.Key, Value: item.Value, Clock: clock}
	}
	b, err := json.Marshal(&req)
	if err != nil {
		panic(err)
	}
	return b
}

// WritePacket frames body with the ZBXD header and writes it to w
func WritePacket(w io.Writer, body []byte) error {
	buf := make([]byte, headerLen, headerLen+len(body))
	copy(buf, protocolHeader)
	buf[len(protocolHeader)] = protocolFlags
	binary.LittleEndian.PutUint64(buf[len(protocolHeader)+1:], uint64(len(body)))
	buf = append(buf, body...)
	if _, err := w.Write(buf); err != nil {
		return errstack.WithLV(errstack.Errorf("failed to write packet err=%+v", err))
	}
	return nil
}

// ReadPacket reads one ZBXD framed packet from r and returns its body
func ReadPacket(r io.Reader) ([]byte, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errstack.WithLV(errstack.Errorf("failed to read packet header err=%+v", err))
	}
	if !bytes.Equal(header[:len(protocolHeader)], []byte(protocolHeader)) {
		return nil, errstack.WithLV(errstack.Errorf("invalid packet header %q", header[:len(protocolHeader)]))
	}
	size := binary.LittleEndian.Uint64(header[len(protocolHeader)+1:])
	if size > maxResponseLen {
		return nil, errstack.WithLV(errstack.Errorf("packet too large size=%d", size))
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errstack.WithLV(errstack.Errorf("failed to read packet body err=%+v", err))
	}
	return body, nil
}

// Response is the server answer to a sender data request
type Response struct {
	Response  string
	Info      string
	Processed int
	Failed    int
	Total     int
}

// ParseResponse decodes a response body such as
// {"response":"success","info":"processed: 1; failed: 0; total: 1; seconds spent: 0.000055"}
func ParseResponse(body []byte) (*Response, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, errstack.WithLV(errstack.Errorf("failed to decode response err=%+v", err))
	}
	res := &Response{
		Response: string(v.GetStringBytes("response")),
		Info:     string(v.GetStringBytes("info")),
	}
	for _, field := range strings.Split(res.Info, ";") {
		kv := strings.SplitN(field, ":", 2)
		if len(kv) < 2 {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			continue
		}
		switch strings.TrimSpace(kv[0]) {
		case "processed":
			res.Processed = n
		case "failed":
			res.Failed = n
		case "total":
			res.Total = n
		}
	}
	return res, nil
}

// Err returns a *ResponseError unless every item was accepted
func (r *Response) Err() error {
	if r.Response != "success" || r.Failed > 0 {
		return &ResponseError{Response: r.Response, Info: r.Info}
	}
	return nil
}

// ResponseError is a rejection reported by the Zabbix server
type ResponseError struct {
	Response string
	Info     string
}

func (e *ResponseError) Error() string {
	if e.Info == "" {
		return "response=" + e.Response
	}
	return e.Info
}
