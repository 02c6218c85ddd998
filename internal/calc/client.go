package calc

import (
	"net/rpc"
	"time"
)

// Client is a thin typed wrapper over the net/rpc connection to a
// calculator service.
type Client struct {
	rpc      *rpc.Client
	clientID string
}

// Dial connects to the calculator service and allocates a stack for
// this client.
func Dial(addr string) (*Client, error) {
	conn, err := rpc.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	var reply CreateStackReply
	if err := conn.Call("Calculator.CreateStack", &CreateStackArgs{}, &reply); err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{rpc: conn, clientID: reply.ClientID}, nil
}

// ClientID returns the handle of this client's stack.
func (c *Client) ClientID() string { return c.clientID }

func (c *Client) PushValue(val int) error {
	return c.rpc.Call("Calculator.PushValue", &PushValueArgs{ClientID: c.clientID, Value: val}, &Nothing{})
}

func (c *Client) PushOperation(operator string) error {
	return c.rpc.Call("Calculator.PushOperation", &PushOperationArgs{ClientID: c.clientID, Operator: operator}, &Nothing{})
}

func (c *Client) Pop() (int, error) {
	var reply PopReply
	err := c.rpc.Call("Calculator.Pop", &PopArgs{ClientID: c.clientID}, &reply)
	return reply.Value, err
}

func (c *Client) IsEmpty() (bool, error) {
	var reply IsEmptyReply
	err := c.rpc.Call("Calculator.IsEmpty", &IsEmptyArgs{ClientID: c.clientID}, &reply)
	return reply.Empty, err
}

func (c *Client) DelayPop(delay time.Duration) (int, error) {
	var reply PopReply
	err := c.rpc.Call("Calculator.DelayPop",
		&DelayPopArgs{ClientID: c.clientID, Millis: int(delay.Milliseconds())}, &reply)
	return reply.Value, err
}

func (c *Client) Close() error { return c.rpc.Close() }
