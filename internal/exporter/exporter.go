package exporter

import "context"

// Item is one (host, key, value) triple destined for the collector
type Item struct {
	Host  string
	Key   string
	Value string
}

// Sender accumulates items and transmits them to a collector
type Sender interface {
	AddItem(host, key, value string)
	Send(ctx context.Context) error
}

// Batch is the item accumulator shared by the Sender implementations
type Batch struct {
	items []Item
}

func (b *Batch) AddItem(host, key, value string) {
	b.items = append(b.items, Item{Host: host, Key: key, Value: value})
}

func (b *Batch) Items() []Item {
	return b.items
}

func (b *Batch) Len() int {
	return len(b.items)
}

// Reset discards accumulated items
func (b *Batch) Reset() {
	b.items = b.items[:0]
}
