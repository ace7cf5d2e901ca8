package osc

import (
	"fmt"

	goosc "github.com/hypebeast/go-osc/osc"
)

// Client sends control messages to a running looper's OSC server.
type Client struct {
	c *goosc.Client
}

// NewControlClient creates a client for the given server address.
func NewControlClient(host string, port int) *Client {
	return &Client{c: goosc.NewClient(host, port)}
}

// Send builds and sends one OSC message. Supported argument types:
// int (sent as int32), float64 (sent as float32), string, bool.
func (c *Client) Send(address string, args ...any) error {
	msg := goosc.NewMessage(address)
	for _, a := range args {
		switch v := a.(type) {
		case int:
			msg.Append(int32(v))
		case int32:
			msg.Append(v)
		case float64:
			msg.Append(float32(v))
		case float32:
			msg.Append(v)
		case string:
			msg.Append(v)
		case bool:
			msg.Append(boolInt(v))
		default:
			return fmt.Errorf("unsupported OSC argument type %T", a)
		}
	}
	return c.c.Send(msg)
}
