package gym

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"
)

// Client is a connection to a Gym environment server. Each Client
// controls exactly one remote environment instance. Requests are
// strictly sequential: every request blocks until its reply arrives.
//
// A Client is not safe for concurrent use.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	closed bool
}

// Dial connects to the Gym server at host:port. If timeout is
// non-zero, it bounds only the time taken to establish the connection.
func Dial(host, port string, timeout time.Duration) (*Client, error) {
	address := net.JoinHostPort(host, port)
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "dial: could not connect to %v", address)
	}
	return NewClient(conn), nil
}

// NewClient returns a Client communicating over an existing connection
func NewClient(conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

// Make creates the environment with the given ID on the server
func (c *Client) Make(envID string) error {
	_, err := c.call("make", makeMessage(envID))
	return err
}

// Reset resets the remote environment and returns the starting
// observation
func (c *Client) Reset() ([]float64, error) {
	resp, err := c.call("reset", envActionMessage("reset"))
	if err != nil {
		return nil, err
	}
	return resp.Observation, nil
}

// Step takes a single step in the remote environment. If render is
// true, the server renders the environment after stepping.
func (c *Client) Step(action []float64, render bool) (StepResult, error) {
	resp, err := c.call("step", stepMessage(action, render))
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{
		Observation: resp.Observation,
		Reward:      resp.Reward,
		Done:        resp.Done,
		Info:        resp.Info,
	}, nil
}

// Seed seeds the remote environment's random number generator
func (c *Client) Seed(seed int) error {
	_, err := c.call("seed", seedMessage(seed))
	return err
}

// Render asks the server to render the current state of the environment
func (c *Client) Render() error {
	_, err := c.call("render", envActionMessage("render"))
	return err
}

// ActionSpace returns the action space of the remote environment
func (c *Client) ActionSpace() (Space, error) {
	return c.space("actionSpace", "actionspace")
}

// ObservationSpace returns the observation space of the remote
// environment
func (c *Client) ObservationSpace() (Space, error) {
	return c.space("observationSpace", "observationspace")
}

func (c *Client) space(op, action string) (Space, error) {
	resp, err := c.call(op, envActionMessage(action))
	if err != nil {
		return Space{}, err
	}
	return Space{
		Name:  resp.Name,
		N:     resp.N,
		Shape: resp.Shape,
		Low:   resp.Low,
		High:  resp.High,
	}, nil
}

// MonitorStart starts recording the environment into directory dir on
// the server
func (c *Client) MonitorStart(dir string, force, resume bool) error {
	_, err := c.call("monitorStart", monitorStartMessage(dir, force, resume))
	return err
}

// MonitorClose stops recording the environment on the server
func (c *Client) MonitorClose() error {
	_, err := c.call("monitorClose", monitorCloseMessage())
	return err
}

// URL returns the URL at which the server publishes recordings of the
// environment
func (c *Client) URL() (string, error) {
	resp, err := c.call("url", urlMessage())
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

// Close closes the remote environment and the connection. The server
// is not expected to reply to the close request.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	sendErr := c.send("close", envActionMessage("close"))
	closeErr := c.conn.Close()
	if sendErr != nil {
		return sendErr
	}
	return errors.Wrap(closeErr, "close: could not close connection")
}

// call sends a request and waits for its reply
func (c *Client) call(op string, req request) (response, error) {
	if err := c.send(op, req); err != nil {
		return response{}, err
	}
	return c.receive(op)
}

func (c *Client) send(op string, req request) error {
	if c.closed && op != "close" {
		return errors.Errorf("%v: client closed", op)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return errors.Wrapf(err, "%v: could not encode request", op)
	}
	data = append(data, Delimiter...)

	if _, err := c.conn.Write(data); err != nil {
		return errors.Wrapf(err, "%v: could not send request", op)
	}
	return nil
}

func (c *Client) receive(op string) (response, error) {
	data, err := readMessage(c.reader)
	if err != nil {
		return response{}, errors.Wrapf(err, "%v: could not read reply", op)
	}

	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return response{}, errors.Wrapf(err, "%v: could not decode reply %q",
			op, data)
	}
	if resp.Error != "" {
		return response{}, &ServerError{Op: op, Message: resp.Error}
	}
	return resp, nil
}

// readMessage reads a single delimited message, returning it without
// its delimiter
func readMessage(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	for {
		line, err := r.ReadBytes('\n')
		buf = append(buf, line...)
		if bytes.HasSuffix(buf, []byte(Delimiter)) {
			return bytes.TrimSpace(buf[:len(buf)-len(Delimiter)]), nil
		}
		if err != nil {
			return nil, err
		}
	}
}
