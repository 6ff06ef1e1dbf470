package atsreport

import (
	"github.com/hnakamur/errstack"
	"github.com/valyala/fastjson"

	"github.com/masa23/atsreport/internal/exporter"
)

// Item key
const (
	ItemPrefix     = "ats."
	VersionItemKey = ItemPrefix + "zbx_version"
)

// build metadata never forwarded to the collector
var blockList = map[string]struct{}{
	"proxy.process.version.server.build_date":    {},
	"proxy.process.version.server.build_machine": {},
	"proxy.process.version.server.build_number":  {},
	"proxy.process.version.server.build_person":  {},
	"proxy.process.version.server.build_time":    {},
	"proxy.process.version.server.long":          {},
	"proxy.process.version.server.short":         {},
}

// IsBlocked reports whether the metric is excluded from every batch
func IsBlocked(name string) bool {
	_, ok := blockList[name]
	return ok
}

// FormatItems turns the "global" section of stats into collector items for
// hostname. The version item is always the last one.
func FormatItems(stats *Stats, hostname string) ([]exporter.Item, error) {
	global := stats.Global()
	if global == nil {
		return nil, errstack.WithLV(errstack.Errorf("global section not found in stats"))
	}
	obj, err := global.Object()
	if err != nil {
		return nil, errstack.WithLV(errstack.Errorf("global section is not an object err=%+v", err))
	}

	items := make([]exporter.Item, 0, obj.Len()+1)
	index := make(map[string]int, obj.Len())
	var visitErr error
	obj.Visit(func(key []byte, v *fastjson.Value) {
		if visitErr != nil {
			return
		}
		name := string(key)
		if IsBlocked(name) {
			return
		}
		itemKey := ItemPrefix + name
		if itemKey == VersionItemKey {
			return
		}
		value, err := scalarString(v)
		if err != nil {
			visitErr = errstack.WithLV(errstack.Errorf("metric %s: %+v", name, err))
			return
		}
		// a repeated key keeps the last value
		if i, ok := index[itemKey]; ok {
			items[i].Value = value
			return
		}
		index[itemKey] = len(items)
		items = append(items, exporter.Item{Host: hostname, Key: itemKey, Value: value})
	})
	if visitErr != nil {
		return nil, visitErr
	}

	items = append(items, exporter.Item{Host: hostname, Key: VersionItemKey, Value: Version})
	return items, nil
}

func scalarString(v *fastjson.Value) (string, error) {
	switch v.Type() {
	case fastjson.TypeString:
		b, err := v.StringBytes()
		if err != nil {
			return "", err
		}
		return string(b), nil
	case fastjson.TypeNumber, fastjson.TypeTrue, fastjson.TypeFalse, fastjson.TypeNull:
		return v.String(), nil
	default:
		return "", errstack.Errorf("unexpected %s value", v.Type())
	}
}
