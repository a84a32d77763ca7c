package client

import (
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/kvgate/kvgate/internal/auth"
	"github.com/kvgate/kvgate/internal/resp"
)

// DefaultTimeout bounds dialing and each command round trip when the
// config leaves Timeout zero.
const DefaultTimeout = 5 * time.Second

// Config describes how to reach and greet a server.
type Config struct {
	// Addr is the TCP address.
	Addr string

	// Unixsocket dials a unix domain socket instead of TCP when set.
	Unixsocket string

	// Username and Password authenticate after connecting. An empty
	// username with a password set logs in as the default user.
	Username string
	Password string

	// Protocol selects RESP2 (0 or 2) or RESP3 (3, negotiated via
	// HELLO during Dial).
	Protocol int

	// Timeout bounds dialing and each command round trip.
	Timeout time.Duration

	// TLS wraps the TCP connection in TLS. TLSSkipVerify disables
	// certificate verification.
	TLS           bool
	TLSSkipVerify bool
}

// Client is a RESP connection to a kvgate server.
type Client struct {
	conn    net.Conn
	addr    string
	timeout time.Duration
	lim     resp.Limits
	buf     []byte
	chunk   []byte
}

// Dial connects to the configured server and performs the handshake.
func Dial(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Protocol != 0 && cfg.Protocol != 2 && cfg.Protocol != 3 {
		return nil, errors.New("protocol must be 2 or 3, got " + strconv.Itoa(cfg.Protocol))
	}

	var (
		conn net.Conn
		addr string
		err  error
	)
	switch {
	case cfg.Unixsocket != "":
		addr = cfg.Unixsocket
		conn, err = net.DialTimeout("unix", cfg.Unixsocket, cfg.Timeout)
	case cfg.TLS:
		addr = cfg.Addr
		host, _, splitErr := net.SplitHostPort(cfg.Addr)
		if splitErr != nil {
			host = cfg.Addr
		}
		dialer := &net.Dialer{Timeout: cfg.Timeout}
		conn, err = tls.DialWithDialer(dialer, "tcp", cfg.Addr, &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: cfg.TLSSkipVerify,
		})
	default:
		addr = cfg.Addr
		conn, err = net.DialTimeout("tcp", cfg.Addr, cfg.Timeout)
	}
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:    conn,
		addr:    addr,
		timeout: cfg.Timeout,
		lim:     resp.DefaultLimits(),
		chunk:   make([]byte, 4096),
	}

	if err := c.handshake(cfg); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// handshake negotiates the protocol and authenticates per cfg. An
// error reply from the server aborts the connection.
func (c *Client) handshake(cfg Config) error {
	if cfg.Protocol == 3 {
		args := []string{"HELLO", "3"}
		if cfg.Password != "" {
			user := cfg.Username
			if user == "" {
				user = auth.DefaultUser
			}
			args = append(args, "AUTH", user, cfg.Password)
		}
		return c.expectOK(args...)
	}

	if cfg.Password != "" {
		args := []string{"AUTH"}
		if cfg.Username != "" {
			args = append(args, cfg.Username)
		}
		args = append(args, cfg.Password)
		return c.expectOK(args...)
	}
	return nil
}

// expectOK runs one command and turns an error reply into a Go error.
func (c *Client) expectOK(args ...string) error {
	v, err := c.Do(args...)
	if err != nil {
		return err
	}
	if v.IsError() {
		return errors.New(v.Str)
	}
	return nil
}

// Do sends one command and decodes one reply frame. Error replies come
// back as a Value with IsError true, not as a Go error; a non-nil
// error means the connection itself failed.
func (c *Client) Do(args ...string) (resp.Value, error) {
	if len(args) == 0 {
		return resp.Value{}, errors.New("empty command")
	}

	out := resp.AppendCommand(nil, args...)
	if err := c.conn.SetWriteDeadline(deadline(c.timeout)); err != nil {
		return resp.Value{}, err
	}
	if _, err := c.conn.Write(out); err != nil {
		return resp.Value{}, err
	}
	return c.readReply()
}

// readReply decodes the next frame, reading more bytes as needed.
// Bytes past the frame stay buffered for the next call.
func (c *Client) readReply() (resp.Value, error) {
	for {
		if len(c.buf) > 0 {
			cur, v, err := resp.DecodeValue(resp.NewCursorLimits(c.buf, c.lim))
			if err == nil {
				c.buf = append(c.buf[:0], cur.Remaining()...)
				return v, nil
			}
			if !errors.Is(err, resp.ErrIncomplete) {
				return resp.Value{}, err
			}
		}

		if err := c.conn.SetReadDeadline(deadline(c.timeout)); err != nil {
			return resp.Value{}, err
		}
		n, err := c.conn.Read(c.chunk)
		if n > 0 {
			c.buf = append(c.buf, c.chunk[:n]...)
			continue
		}
		if err != nil {
			return resp.Value{}, err
		}
	}
}

func deadline(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

// Addr returns the dialed address, for prompts and error messages.
func (c *Client) Addr() string { return c.addr }

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }
