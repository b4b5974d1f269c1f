package domain

import "image"

// Item is one entry of a load request.
// Name identifies the item (file path, URL or buffer name) and is the only field used for
// extension sniffing. Filename and Data are only set for in-memory buffers.
type Item struct {
	Name     string `json:"name"`
	Filename string `json:"filename,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// ItemsFromNames builds items for file paths or URLs.
func ItemsFromNames(names []string) []Item {
	items := make([]Item, 0, len(names))
	for _, n := range names {
		items = append(items, Item{Name: n})
	}
	return items
}

// Header is a request header forwarded opaquely to URL backends.
type Header struct {
	Name  string `json:"name" yaml:"name" mapstructure:"name"`
	Value string `json:"value" yaml:"value" mapstructure:"value"`
}

// RequestOptions are passed to Backend.Load.
type RequestOptions struct {
	RequestHeaders []Header `json:"request_headers,omitempty"`
}

// SliceInfo is the description of one decoded item, relayed in load-slice events.
type SliceInfo struct {
	Name         string `json:"name"`
	Source       string `json:"source,omitempty"`
	Format       string `json:"format"`
	ContentType  string `json:"content_type,omitempty"`
	Size         int    `json:"size"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	CharacterSet string `json:"character_set,omitempty"`
}

// Data is what a backend reports through OnLoad.
type Data struct {
	Item    Item
	Info    SliceInfo
	Raw     []byte
	Image   image.Image
	Preview image.Image
}
