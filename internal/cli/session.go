package cli

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"github.com/upiguard/upiguard/internal/records"
	"go.uber.org/zap"
)

// session is the state one console process shares between commands. In the
// shell it lives across lines, so the record store and its unconfirmed
// operations survive from one command to the next.
type session struct {
	out io.Writer
	in  *bufio.Reader // shared so shell lines and prompts read one buffer

	logger *zap.SugaredLogger
	http   *http.Client
	store  *records.Store
	loaded bool

	// overridable in tests
	newRemote func(baseURL string) records.Remote
}

func newSession(out io.Writer, in io.Reader) *session {
	return &session{
		out:  out,
		in:   bufio.NewReader(in),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *session) log() *zap.SugaredLogger {
	if s.logger == nil {
		s.logger = newLogger()
	}
	return s.logger
}

// records returns the store, loading it on first use
func (s *session) records(ctx context.Context) *records.Store {
	if s.store == nil {
		baseURL := viper.GetString(keyAPIBaseURL)
		var remote records.Remote
		if s.newRemote != nil {
			remote = s.newRemote(baseURL)
		} else {
			remote = records.NewClient(baseURL, s.http).WithToken(viper.GetString(keyToken))
		}
		s.store = records.NewStore(remote, nil, s.log())
	}
	if !s.loaded {
		s.store.Refresh(ctx)
		s.loaded = true
	}
	return s.store
}

// reports returns a report API client carrying the saved session token
func (s *session) reports() *reportClient {
	return newReportClient(viper.GetString(keyAPIBaseURL), viper.GetString(keyToken), s.http)
}

// reset drops the store so the next record command reconnects
func (s *session) reset() {
	s.store = nil
	s.loaded = false
}

func (s *session) close() {
	if s.logger != nil {
		_ = s.logger.Sync()
	}
}
