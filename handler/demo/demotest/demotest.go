// Package demotest runs the demo backend on an httptest server.
package demotest

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sabicash/sabicash/handler/demo"
)

const (
	RiderEmail    = "rider@sabi.cash"
	RiderPassword = "rider123"
	AdminEmail    = "admin@sabi.cash"
	AdminPassword = "admin123"
)

type Env struct {
	Demo    *demo.Server
	Server  *httptest.Server
	RideURL string
	CashURL string

	mux   sync.Mutex
	calls map[string]int
	holds map[string]chan struct{}
}

func Start(t testing.TB) *Env {
	t.Helper()

	env := &Env{
		Demo:  demo.New(demo.Config{}, Logger()),
		calls: map[string]int{},
		holds: map[string]chan struct{}{},
	}

	h := env.Demo.Handler()
	env.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		env.mux.Lock()
		env.calls[key]++
		hold := env.holds[key]
		env.mux.Unlock()

		if hold != nil {
			<-hold
		}

		h.ServeHTTP(w, r)
	}))
	t.Cleanup(env.Server.Close)

	env.RideURL = env.Server.URL + "/ride"
	env.CashURL = env.Server.URL + "/api"
	return env
}

// Calls returns how many times method and path were requested.
func (e *Env) Calls(method, path string) int {
	e.mux.Lock()
	defer e.mux.Unlock()
	return e.calls[method+" "+path]
}

// Hold blocks requests to method and path until the returned release is
// called. Calls counts held requests as they arrive.
func (e *Env) Hold(t testing.TB, method, path string) (release func()) {
	ch := make(chan struct{})

	e.mux.Lock()
	e.holds[method+" "+path] = ch
	e.mux.Unlock()

	var once sync.Once
	release = func() {
		once.Do(func() {
			e.mux.Lock()
			delete(e.holds, method+" "+path)
			e.mux.Unlock()
			close(ch)
		})
	}

	t.Cleanup(release)
	return release
}

func (e *Env) TotalCalls() int {
	e.mux.Lock()
	defer e.mux.Unlock()

	n := 0
	for _, c := range e.calls {
		n += c
	}

	return n
}

// Token logs in through both platforms and returns the rewards token.
func (e *Env) Token(t testing.TB, email, password string) string {
	t.Helper()

	var ride struct {
		Token string `json:"token"`
	}
	e.post(t, e.RideURL+"/auth/login", map[string]string{"email": email, "password": password}, &ride)

	var cash struct {
		Token string `json:"token"`
	}
	e.post(t, e.CashURL+"/auth/login", map[string]string{"sabiRideToken": ride.Token, "walletAddress": "demo-wallet"}, &cash)

	if cash.Token == "" {
		t.Fatalf("login %s returned no token", email)
	}

	return cash.Token
}

func (e *Env) post(t testing.TB, url string, body, out any) {
	t.Helper()

	b, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST %s: %d %s", url, resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
