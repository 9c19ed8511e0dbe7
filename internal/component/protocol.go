package component

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	packerrors "github.com/tain335/svpack/internal/errors"
)

type Request struct {
	Filename  string `json:"filename"`
	Source    string `json:"source"`
	Dev       bool   `json:"dev"`
	SourceMap bool   `json:"sourcemap"`
}

type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Diagnostic struct {
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Filename string    `json:"filename"`
	Start    *Position `json:"start"`
}

type Code struct {
	Code string `json:"code"`
	Map  string `json:"map"`
}

type Response struct {
	JS       Code         `json:"js"`
	CSS      Code         `json:"css"`
	Warnings []Diagnostic `json:"warnings"`
	Error    *Diagnostic  `json:"error"`
}

// CompileError is a diagnostic reported by the compiler for the source itself.
type CompileError struct {
	Diagnostic
}

func (e *CompileError) Error() string {
	if e.Start != nil {
		return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Start.Line, e.Start.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Filename, e.Message)
}

// Transport carries one request to the compiler and returns its answer.
type Transport interface {
	RoundTrip(ctx context.Context, req Request) (Response, error)
	Close() error
}

// streamTransport speaks line-delimited JSON over a pair of streams.
type streamTransport struct {
	mutex   sync.Mutex
	w       io.WriteCloser
	scanner *bufio.Scanner
}

func newStreamTransport(w io.WriteCloser, r io.Reader) *streamTransport {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	return &streamTransport{w: w, scanner: scanner}
}

func (s *streamTransport) RoundTrip(ctx context.Context, req Request) (Response, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	line, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}
	line = append(line, '\n')

	type answer struct {
		resp Response
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		if _, err := s.w.Write(line); err != nil {
			done <- answer{err: packerrors.Wrap(err, packerrors.ErrProcess, "writing to compiler")}
			return
		}
		if !s.scanner.Scan() {
			err := s.scanner.Err()
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			done <- answer{err: packerrors.Wrap(err, packerrors.ErrProcess, "reading from compiler")}
			return
		}
		var resp Response
		if err := json.Unmarshal(s.scanner.Bytes(), &resp); err != nil {
			done <- answer{err: packerrors.Wrap(err, packerrors.ErrProcess, "decoding compiler response")}
			return
		}
		done <- answer{resp: resp}
	}()

	select {
	case <-ctx.Done():
		// the stream is now out of sync; the caller has to restart it
		return Response{}, ctx.Err()
	case a := <-done:
		if a.err != nil {
			return Response{}, a.err
		}
		if a.resp.Error != nil {
			if a.resp.Error.Filename == "" {
				a.resp.Error.Filename = req.Filename
			}
			return Response{}, &CompileError{Diagnostic: *a.resp.Error}
		}
		return a.resp, nil
	}
}

func (s *streamTransport) Close() error {
	return s.w.Close()
}
