// Package fileserve implements the minimal HTTP surface of the demo
// server: one request line in, one HTML page out, connection closed.
package fileserve

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxHeaderLines bounds the header block so a hostile peer cannot
// stream headers forever.
const maxHeaderLines = 100

// Config for a Handler.
type Config struct {
	// DocRoot is the directory hello.html and 404.html live in.
	DocRoot string

	// SleepDelay is how long the /sleep route stalls before
	// answering.
	SleepDelay time.Duration

	// ReadTimeout bounds reading one request; 0 disables the
	// deadline.
	ReadTimeout time.Duration
}

// Handler answers single HTTP/1.1 requests from a directory of HTML
// pages.
//
// GET / serves hello.html, GET /sleep serves the same page after an
// artificial delay, anything else gets 404.html. The handler reads one
// request per connection and the caller closes the connection after
// ServeConn returns.
type Handler struct {
	cfg Config
	log *zap.Logger
}

// New returns a Handler serving pages from cfg.DocRoot. A nil logger
// means no logging.
func New(cfg Config, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{cfg: cfg, log: log}
}

// ServeConn handles one connection. It never returns an error: every
// failure is answered on the wire where possible and logged.
func (h *Handler) ServeConn(conn net.Conn) {
	if h.cfg.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
			h.log.Warn("set read deadline failed", zap.Error(err))
		}
	}

	remote := conn.RemoteAddr().String()
	r := bufio.NewReader(conn)

	line, err := r.ReadString('\n')
	if err != nil {
		h.log.Warn("read request line failed",
			zap.String("remote", remote), zap.Error(err))
		return
	}
	line = strings.TrimRight(line, "\r\n")

	method, target, ok := parseRequestLine(line)
	if !ok {
		h.log.Warn("malformed request line",
			zap.String("remote", remote), zap.String("line", line))
		h.respond(conn, "400 Bad Request", []byte("bad request\n"))
		return
	}
	// Drain the header block so closing the connection after the
	// response does not reset the client.
	if err := discardHeaders(r); err != nil {
		h.log.Debug("discard headers failed",
			zap.String("remote", remote), zap.Error(err))
	}

	if method == "GET" && target == "/sleep" {
		time.Sleep(h.cfg.SleepDelay)
	}

	status, page := route(method, target)
	h.log.Info("request",
		zap.String("remote", remote),
		zap.String("target", target),
		zap.String("status", status))

	body, err := os.ReadFile(filepath.Join(h.cfg.DocRoot, page))
	if err != nil {
		h.log.Error("read page failed",
			zap.String("page", page), zap.Error(err))
		h.respond(conn, "500 Internal Server Error", []byte("internal server error\n"))
		return
	}
	h.respond(conn, status, body)
}

// route maps one request to a status line and page file. Only the two
// GET routes exist; any other line, whatever the method, gets the 404
// page.
func route(method, target string) (status, page string) {
	if method == "GET" {
		switch target {
		case "/", "/sleep":
			return "200 OK", "hello.html"
		}
	}
	return "404 Not Found", "404.html"
}

// parseRequestLine splits "GET /path HTTP/1.1" into its parts.
func parseRequestLine(line string) (method, target string, ok bool) {
	parts := strings.Fields(line)
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "HTTP/") {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// discardHeaders reads until the blank line that ends the header
// block.
func discardHeaders(r *bufio.Reader) error {
	for i := 0; i < maxHeaderLines; i++ {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		if line == "\r\n" || line == "\n" {
			return nil
		}
	}
	return fmt.Errorf("more than %d header lines", maxHeaderLines)
}

// respond writes one minimal HTTP/1.1 response. The connection is
// closed by the caller afterwards, matching the Connection: close
// header.
func (h *Handler) respond(conn net.Conn, status string, body []byte) {
	head := fmt.Sprintf(
		"HTTP/1.1 %s\r\nContent-Type: text/html; charset=utf-8\r\nContent-Length: %d\r\nConnection: close\r\n\r\n",
		status, len(body))
	if _, err := conn.Write(append([]byte(head), body...)); err != nil {
		h.log.Warn("write response failed", zap.Error(err))
	}
}
