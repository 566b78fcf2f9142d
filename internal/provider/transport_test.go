package provider_test

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
)

type capture struct {
	mu     sync.Mutex
	method string
	url    string
	body   []byte
}

func (c *capture) Body() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.body
}

type fakeTransport struct {
	respStatus  int
	respBody    []byte
	contentType string
	captured    *capture
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if f.captured != nil {
		f.captured.mu.Lock()
		f.captured.method = req.Method
		f.captured.url = req.URL.String()
		f.captured.body = b
		f.captured.mu.Unlock()
	}
	ct := f.contentType
	if ct == "" {
		ct = "application/json"
	}
	resp := &http.Response{
		StatusCode: f.respStatus,
		Body:       io.NopCloser(bytes.NewReader(f.respBody)),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", ct)
	return resp, nil
}

// seqTransport answers successive requests with successive JSON bodies and keeps every request body.
type seqTransport struct {
	mu     sync.Mutex
	bodies []string
	seen   [][]byte
}

func (s *seqTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()

	s.mu.Lock()
	i := len(s.seen)
	s.seen = append(s.seen, b)
	s.mu.Unlock()

	status, body := http.StatusOK, ""
	if i < len(s.bodies) {
		body = s.bodies[i]
	} else {
		status, body = http.StatusInternalServerError, `{"error":"no scripted response"}`
	}
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func (s *seqTransport) Bodies() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.seen...)
}
