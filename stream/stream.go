// Package stream serves the annotated debug frames of the vision loop as MJPEG over HTTP.
package stream

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"image"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
	"goji.io"
	"goji.io/pat"

	"go.viam.com/tapevision/logging"
	"go.viam.com/tapevision/rimage"
)

// Sink accepts one frame per loop iteration.
type Sink interface {
	PutFrame(img image.Image) error
}

// NopSink drops every frame.
type NopSink struct{}

// PutFrame does nothing.
func (NopSink) PutFrame(image.Image) error { return nil }

// Options configures an MJPEGServer.
type Options struct {
	// Address to listen on, e.g. ":1181".
	Address string
	// Name is shown on the index page.
	Name string
	// Quality of the JPEG encoding, 1-100.
	Quality int
}

// MJPEGServer keeps the newest frame and serves it at /frame.jpg and as a never ending
// multipart stream at /stream.mjpg.
type MJPEGServer struct {
	opts   Options
	logger logging.Logger
	mux    *goji.Mux

	mu      sync.Mutex
	frame   []byte
	updated chan struct{}
	closed  chan struct{}

	httpServer *http.Server
	listener   net.Listener
	serveDone  sync.WaitGroup
	closeOnce  sync.Once
}

// NewMJPEGServer returns a server that is not listening yet; see Start. Handler can be used
// without Start.
func NewMJPEGServer(opts Options, logger logging.Logger) *MJPEGServer {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = rimage.DefaultJPEGQuality
	}
	if opts.Name == "" {
		opts.Name = "tapevision"
	}
	s := &MJPEGServer{
		opts:    opts,
		logger:  logger,
		updated: make(chan struct{}),
		closed:  make(chan struct{}),
	}
	mux := goji.NewMux()
	mux.HandleFunc(pat.Get("/stream.mjpg"), s.serveStream)
	mux.HandleFunc(pat.Get("/frame.jpg"), s.serveFrame)
	mux.HandleFunc(pat.Get("/"), s.serveIndex)
	s.mux = mux
	return s
}

// Handler routes the server's endpoints.
func (s *MJPEGServer) Handler() http.Handler {
	return s.mux
}

// PutFrame encodes img and wakes every connected stream.
func (s *MJPEGServer) PutFrame(img image.Image) error {
	if img == nil {
		return errors.New("nil frame")
	}
	var buf bytes.Buffer
	if err := rimage.EncodeJPEG(&buf, img, s.opts.Quality); err != nil {
		return errors.Wrap(err, "cannot encode frame")
	}
	s.mu.Lock()
	s.frame = buf.Bytes()
	close(s.updated)
	s.updated = make(chan struct{})
	s.mu.Unlock()
	return nil
}

// latest returns the current frame and a channel closed when it is replaced.
func (s *MJPEGServer) latest() ([]byte, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, s.updated
}

func (s *MJPEGServer) serveFrame(w http.ResponseWriter, r *http.Request) {
	frame, _ := s.latest()
	if frame == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(frame)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(frame); err != nil {
		s.logger.Debugw("frame write failed", "remote", r.RemoteAddr, "error", err)
	}
}

func (s *MJPEGServer) serveStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	s.logger.Debugw("stream client connected", "remote", r.RemoteAddr)
	defer s.logger.Debugw("stream client disconnected", "remote", r.RemoteAddr)

	frame, updated := s.latest()
	for {
		if frame != nil {
			part, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type":   {"image/jpeg"},
				"Content-Length": {strconv.Itoa(len(frame))},
			})
			if err == nil {
				_, err = part.Write(frame)
			}
			if err != nil {
				return
			}
			flusher.Flush()
		}
		select {
		case <-r.Context().Done():
			return
		case <-s.closed:
			return
		case <-updated:
		}
		frame, updated = s.latest()
	}
}

func (s *MJPEGServer) serveIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	//nolint:errcheck
	fmt.Fprintf(w, `<html><head><title>%[1]s</title></head><body><h1>%[1]s</h1><img src="stream.mjpg"></body></html>`,
		html.EscapeString(s.opts.Name))
}

// Start listens on the configured address and serves in the background.
func (s *MJPEGServer) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.opts.Address)
	if err != nil {
		return errors.Wrapf(err, "cannot listen on %q", s.opts.Address)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.serveDone.Add(1)
	goutils.ManagedGo(func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("debug stream server stopped", "error", err)
		}
	}, s.serveDone.Done)
	s.logger.Infow("debug stream serving", "address", listener.Addr().String(), "name", s.opts.Name)
	return nil
}

// Addr is the listening address after Start, nil before.
func (s *MJPEGServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close ends every stream and stops the HTTP server.
func (s *MJPEGServer) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.httpServer != nil {
			err = s.httpServer.Shutdown(ctx)
			s.serveDone.Wait()
		}
	})
	return err
}
