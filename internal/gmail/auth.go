package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
)

const (
	callbackPath = "/callback"
	loginTimeout = 5 * time.Minute
)

// Auth holds the OAuth client configuration for an installed app and the
// path its token is persisted at.
type Auth struct {
	config    *oauth2.Config
	tokenFile string
}

func NewAuth(credentialsFile, tokenFile string) (*Auth, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	return NewAuthFromJSON(b, tokenFile)
}

func NewAuthFromJSON(credentials []byte, tokenFile string) (*Auth, error) {
	config, err := google.ConfigFromJSON(credentials, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	return &Auth{config: config, tokenFile: tokenFile}, nil
}

func (a *Auth) TokenFile() string {
	return a.tokenFile
}

// AuthURL returns the consent URL. Offline access is requested so the
// token carries a refresh token.
func (a *Auth) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Login runs the loopback flow: it serves a one-shot callback on a free
// local port, hands the consent URL to prompt, exchanges the returned code
// and saves the token.
func (a *Auth) Login(ctx context.Context, prompt func(url string)) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen for callback: %w", err)
	}
	defer ln.Close()

	cfg := *a.config
	cfg.RedirectURL = fmt.Sprintf("http://%s%s", ln.Addr().String(), callbackPath)
	state := uuid.NewString()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			http.Error(w, "authorization denied", http.StatusForbidden)
			select {
			case errCh <- fmt.Errorf("authorization denied: %s", e):
			default:
			}
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "code missing", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, "Authorization received. You can close this tab.")
		select {
		case codeCh <- code:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	prompt(cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(loginTimeout):
		return nil, errors.New("authorization timeout")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	if err := SaveToken(a.tokenFile, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// TokenSource loads the saved token and returns a source that refreshes it
// as needed, writing refreshed tokens back to the token file.
func (a *Auth) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := TokenFromFile(a.tokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no token at %s - run 'mailcloud auth' first", a.tokenFile)
		}
		return nil, err
	}
	return &savingTokenSource{
		base: a.config.TokenSource(ctx, tok),
		path: a.tokenFile,
		last: tok.AccessToken,
	}, nil
}

type savingTokenSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	path string
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			return nil, err
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}

func SaveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to write oauth token: %w", err)
	}
	return nil
}

func TokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", path, err)
	}
	return &tok, nil
}
