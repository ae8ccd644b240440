// Package redisstub is a minimal RESP2 server covering the hash, expiry and
// publish commands the job tracker issues.
package redisstub

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Options struct {
	Password string
}

type Server struct {
	opts     Options
	listener net.Listener
	addr     string

	mu        sync.Mutex
	hashes    map[string]map[string]string
	expiry    map[string]time.Time
	published map[string][]string
	commands  []string
	closed    chan struct{}
}

func Start(opts Options) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	server := &Server{
		opts:      opts,
		listener:  ln,
		addr:      ln.Addr().String(),
		hashes:    make(map[string]map[string]string),
		expiry:    make(map[string]time.Time),
		published: make(map[string][]string),
		closed:    make(chan struct{}),
	}
	go server.serve()
	return server, nil
}

func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) Close() error {
	s.mu.Lock()
	select {
	case <-s.closed:
		s.mu.Unlock()
		return nil
	default:
	}
	close(s.closed)
	s.mu.Unlock()
	return s.listener.Close()
}

// Hash returns a copy of the hash stored at key.
func (s *Server) Hash(key string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	out := make(map[string]string, len(s.hashes[key]))
	for field, value := range s.hashes[key] {
		out[field] = value
	}
	return out
}

// TTL reports the remaining lifetime of key, or -1 when it has none.
func (s *Server) TTL(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline, ok := s.expiry[key]
	if !ok {
		return -1
	}
	return time.Until(deadline)
}

// Published returns the messages sent to channel in order.
func (s *Server) Published(channel string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.published[channel]...)
}

// Commands lists every command name received, upper-cased.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	authenticated := s.opts.Password == ""
	for {
		args, err := readArray(reader)
		if err != nil {
			return
		}
		if len(args) == 0 {
			if writeError(writer, "ERR wrong number of arguments") != nil {
				return
			}
			continue
		}
		cmd := strings.ToUpper(args[0])
		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		s.mu.Unlock()

		var werr error
		switch cmd {
		case "HELLO":
			werr = writeError(writer, "ERR unknown command 'HELLO'")
		case "AUTH":
			password := args[len(args)-1]
			if len(args) < 2 || (s.opts.Password != "" && password != s.opts.Password) {
				werr = writeError(writer, "WRONGPASS invalid username-password pair")
			} else {
				authenticated = true
				werr = writeSimpleString(writer, "OK")
			}
		case "PING":
			werr = writeSimpleString(writer, "PONG")
		case "SELECT", "CLIENT":
			werr = writeSimpleString(writer, "OK")
		default:
			if !authenticated {
				werr = writeError(writer, "NOAUTH Authentication required.")
				break
			}
			werr = s.dispatch(writer, cmd, args[1:])
		}
		if werr != nil {
			return
		}
	}
}

func (s *Server) dispatch(w *bufio.Writer, cmd string, args []string) error {
	switch cmd {
	case "HSET":
		if len(args) < 3 || len(args)%2 == 0 {
			return writeError(w, "ERR wrong number of arguments for 'hset'")
		}
		return writeInteger(w, s.hset(args[0], args[1:]))
	case "HGETALL":
		if len(args) != 1 {
			return writeError(w, "ERR wrong number of arguments for 'hgetall'")
		}
		hash := s.Hash(args[0])
		fields := make([]string, 0, len(hash))
		for field := range hash {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		flat := make([]string, 0, len(hash)*2)
		for _, field := range fields {
			flat = append(flat, field, hash[field])
		}
		return writeStringArray(w, flat)
	case "EXPIRE":
		if len(args) != 2 {
			return writeError(w, "ERR wrong number of arguments for 'expire'")
		}
		seconds, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return writeError(w, "ERR value is not an integer or out of range")
		}
		return writeInteger(w, s.expire(args[0], time.Duration(seconds)*time.Second))
	case "PERSIST":
		if len(args) != 1 {
			return writeError(w, "ERR wrong number of arguments for 'persist'")
		}
		s.mu.Lock()
		_, had := s.expiry[args[0]]
		delete(s.expiry, args[0])
		s.mu.Unlock()
		if had {
			return writeInteger(w, 1)
		}
		return writeInteger(w, 0)
	case "DEL":
		var removed int64
		s.mu.Lock()
		for _, key := range args {
			if _, ok := s.hashes[key]; ok {
				removed++
			}
			delete(s.hashes, key)
			delete(s.expiry, key)
		}
		s.mu.Unlock()
		return writeInteger(w, removed)
	case "PUBLISH":
		if len(args) != 2 {
			return writeError(w, "ERR wrong number of arguments for 'publish'")
		}
		s.mu.Lock()
		s.published[args[0]] = append(s.published[args[0]], args[1])
		s.mu.Unlock()
		return writeInteger(w, 0)
	default:
		return writeError(w, fmt.Sprintf("ERR unknown command '%s'", strings.ToLower(cmd)))
	}
}

func (s *Server) hset(key string, pairs []string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	hash := s.hashes[key]
	if hash == nil {
		hash = make(map[string]string)
		s.hashes[key] = hash
	}
	var added int64
	for i := 0; i+1 < len(pairs); i += 2 {
		if _, ok := hash[pairs[i]]; !ok {
			added++
		}
		hash[pairs[i]] = pairs[i+1]
	}
	return added
}

func (s *Server) expire(key string, ttl time.Duration) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(key)
	if _, ok := s.hashes[key]; !ok {
		return 0
	}
	s.expiry[key] = time.Now().Add(ttl)
	return 1
}

func (s *Server) expireLocked(key string) {
	deadline, ok := s.expiry[key]
	if ok && time.Now().After(deadline) {
		delete(s.hashes, key)
		delete(s.expiry, key)
	}
}

func readArray(r *bufio.Reader) ([]string, error) {
	prefix, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if prefix != '*' {
		return nil, fmt.Errorf("unexpected prefix %q", prefix)
	}
	length, err := readLength(r)
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, length)
	for i := 0; i < length; i++ {
		arg, err := readBulkString(r)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func readLength(r *bufio.Reader) (int, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimRight(line, "\r\n"))
}

func readBulkString(r *bufio.Reader) (string, error) {
	prefix, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	if prefix != '$' {
		return "", fmt.Errorf("unexpected prefix %q", prefix)
	}
	length, err := readLength(r)
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", nil
	}
	buf := make([]byte, length+2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf[:length]), nil
}

func writeSimpleString(w *bufio.Writer, value string) error {
	if _, err := fmt.Fprintf(w, "+%s\r\n", value); err != nil {
		return err
	}
	return w.Flush()
}

func writeInteger(w *bufio.Writer, value int64) error {
	if _, err := fmt.Fprintf(w, ":%d\r\n", value); err != nil {
		return err
	}
	return w.Flush()
}

func writeStringArray(w *bufio.Writer, values []string) error {
	if _, err := fmt.Fprintf(w, "*%d\r\n", len(values)); err != nil {
		return err
	}
	for _, value := range values {
		if _, err := fmt.Fprintf(w, "$%d\r\n%s\r\n", len(value), value); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeError(w *bufio.Writer, msg string) error {
	if _, err := fmt.Fprintf(w, "-%s\r\n", msg); err != nil {
		return err
	}
	return w.Flush()
}
