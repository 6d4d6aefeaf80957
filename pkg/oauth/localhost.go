package oauth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"
)

// DefaultLocalhostRedirectURL is used by the loopback receivers when the
// settings carry no redirect URL.
const DefaultLocalhostRedirectURL = "http://localhost:0/"

// Listener is a one-shot loopback HTTP server receiving an authorization
// redirect. It answers the first request with "OK" and ignores the rest.
type Listener struct {
	redirectURL string
	server      *http.Server
	listener    net.Listener
	resultCh    chan map[string]string
	errorCh     chan error
	once        sync.Once
	closeOnce   sync.Once
}

// Listen binds the port of redirectURL on the loopback interface. A missing
// port or port 0 lets the OS choose; RedirectURL reports the bound address.
func Listen(redirectURL string) (*Listener, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL %q: %w", redirectURL, err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("loopback redirect URL must use http, got %q", u.Scheme)
	}

	host := u.Hostname()
	bindHost := host
	if host == "" || host == "localhost" {
		bindHost = "127.0.0.1"
	}
	port := u.Port()
	if port == "" {
		port = "0"
	}

	addr := net.JoinHostPort(bindHost, port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener on %s: %w", addr, err)
	}

	boundPort := listener.Addr().(*net.TCPAddr).Port
	if host == "" {
		host = "localhost"
	}
	u.Host = net.JoinHostPort(host, strconv.Itoa(boundPort))
	if u.Path == "" {
		u.Path = "/"
	}

	l := &Listener{
		redirectURL: u.String(),
		listener:    listener,
		resultCh:    make(chan map[string]string, 1),
		errorCh:     make(chan error, 1),
	}
	l.server = &http.Server{
		Handler:           http.HandlerFunc(l.handleCallback),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := l.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case l.errorCh <- err:
			default:
			}
		}
	}()

	return l, nil
}

// RedirectURL returns the redirect URL pointing at the bound address.
func (l *Listener) RedirectURL() string {
	return l.redirectURL
}

// Wait returns the parameters of the first request, or ctx's error.
func (l *Listener) Wait(ctx context.Context) (map[string]string, error) {
	select {
	case result := <-l.resultCh:
		return result, nil
	case err := <-l.errorCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Listener) handleCallback(w http.ResponseWriter, r *http.Request) {
	var handled bool
	l.once.Do(func() {
		handled = true
		l.processCallback(w, r)
	})

	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

func (l *Listener) processCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	values := r.URL.Query()
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil {
			for k, v := range r.PostForm {
				values[k] = v
			}
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "OK")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	select {
	case l.resultCh <- flatten(values):
	default:
	}
}

// Close shuts the server down, letting an in-flight response complete.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = l.server.Shutdown(ctx)
	})
	return err
}

// LocalhostReceiver opens the authorization URL in a browser and receives
// the redirect on a loopback Listener.
type LocalhostReceiver struct {
	// Open launches the browser. When nil, or when it fails, the URL is
	// printed to Out instead.
	Open func(url string) error

	Out    io.Writer
	Logger *slog.Logger
}

func (r *LocalhostReceiver) ReceiveCode(ctx context.Context, mode AuthorizeMode, req *AuthorizationRequest) (map[string]string, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	redirect := req.Settings.RedirectURL
	if redirect == "" {
		redirect = DefaultLocalhostRedirectURL
	}

	l, err := Listen(redirect)
	if err != nil {
		return nil, err
	}
	defer func() { _ = l.Close() }()

	authURL, err := req.URL(l.RedirectURL())
	if err != nil {
		return nil, err
	}

	logger.Debug("Waiting for authorization redirect",
		"mode", mode.String(),
		"redirect_url", l.RedirectURL())

	if r.Open == nil || r.Open(authURL) != nil {
		out := r.Out
		if out == nil {
			out = os.Stderr
		}
		fmt.Fprintf(out, "Open the following URL in your browser to authorize:\n\n  %s\n\n", authURL)
	}

	return l.Wait(ctx)
}
