package control

import (
	"bufio"
	"context"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// SockFileName is the default socket of the command surface.
const SockFileName = "/tmp/partials.sock"

// ReportInterval is how often spectrum reports are pushed to a connection.
const ReportInterval = time.Second / 30

// ServeIPC accepts connections on a unix socket, one at a time, until ctx is done.
func ServeIPC(ctx context.Context, path string, c *Commander) error {
	os.Remove(path)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", path)
	if err != nil {
		return err
	}
	defer func() {
		log.Println("closing IPC...")
		err := listener.Close()
		if err != nil && ctx.Err() == nil {
			log.Printf("error while closing listener: %v", err)
		}
		os.Remove(path)
	}()
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	log.Printf("start listening on %s...\n", path)
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := Serve(ctx, conn, c, ReportInterval); err != nil {
			log.Printf("[WARN] connection closed: %v", err)
		}
	}
}

// Serve reads commands from conn and writes one reply line per command:
// "ok <result>" or "error <message>", tokens URL-escaped. With a positive interval,
// "fft ..." spectrum lines are pushed in between.
func Serve(ctx context.Context, conn net.Conn, c *Commander, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		err := conn.Close()
		if err != nil {
			log.Printf("error while closing connection: %v", err)
		}
	}()
	w := &lineWriter{w: conn}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return receiveCommands(ctx, conn, c, w)
	})
	if interval > 0 {
		g.Go(func() error {
			return sendReports(ctx, w, c, interval)
		})
	}
	return g.Wait()
}

type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) writeLine(s string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := io.WriteString(l.w, s+"\n")
	return err
}

func receiveCommands(ctx context.Context, conn io.Reader, c *Commander, w *lineWriter) error {
	reader := bufio.NewReader(conn)
	var line []byte
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("connection interrupted")
			break loop
		default:
		}
		next, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			break loop
		}
		if err != nil {
			if ctx.Err() != nil {
				break loop
			}
			return err
		}
		line = append(line, next...)
		if isPrefix {
			continue
		}
		log.Printf("received: %s\n", string(line))
		reply := execute(c, string(line))
		line = line[:0]
		if err := w.writeLine(reply); err != nil {
			return err
		}
	}
	log.Println("receiveCommands() ended.")
	return nil
}

func execute(c *Commander, line string) string {
	command, err := parseCommand(line)
	if err != nil {
		return "error " + url.QueryEscape(err.Error())
	}
	result, err := c.Execute(command)
	if err != nil {
		return "error " + url.QueryEscape(err.Error())
	}
	return "ok " + url.QueryEscape(result)
}

func parseCommand(line string) ([]string, error) {
	tokens := strings.Fields(line)
	for i, token := range tokens {
		escaped, err := url.QueryUnescape(token)
		if err != nil {
			return nil, err
		}
		tokens[i] = escaped
	}
	return tokens, nil
}

func sendReports(ctx context.Context, w *lineWriter, c *Commander, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("sendReports() ended.")
			return nil
		case <-t.C:
			result := c.output.Spectrum()
			if result == nil {
				continue
			}
			var sb strings.Builder
			sb.WriteString("fft")
			for _, value := range result {
				sb.WriteString(" ")
				sb.WriteString(strconv.FormatFloat(value, 'f', 6, 64))
			}
			if err := w.writeLine(sb.String()); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
