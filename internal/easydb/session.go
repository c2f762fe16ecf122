package easydb

import (
	"fmt"
	"strings"
)

// Session is the immutable context of one authenticated easydb
// session: the API base URL plus the token handed out on open. It is
// threaded through every call instead of living as hidden client
// state.
type Session struct {
	Token   string
	baseURL string
}

// NewSession normalizes the server address the way the portal expects:
// a bare hostname gets an http:// scheme, trailing slashes are
// dropped.
func NewSession(server string) Session {
	server = strings.TrimRight(server, "/")
	if !strings.HasPrefix(server, "http") {
		server = "http://" + server
	}
	return Session{baseURL: server + "/api/v1"}
}

func (s Session) sessionURL() string      { return s.baseURL + "/session" }
func (s Session) authenticateURL() string { return s.baseURL + "/session/authenticate" }
func (s Session) deauthURL() string       { return s.baseURL + "/session/deauthenticate" }
func (s Session) searchURL() string       { return s.baseURL + "/search" }
func (s Session) exportURL() string       { return s.baseURL + "/export" }

func (s Session) exportIDURL(id int64) string {
	return fmt.Sprintf("%s/export/%d", s.baseURL, id)
}
