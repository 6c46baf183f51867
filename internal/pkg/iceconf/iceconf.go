/*
Package iceconf turns the configured STUN/TURN list into the ICE server
descriptions handed to browsers. The servers themselves run elsewhere; this
package only validates and shapes their URLs.
*/
package iceconf

import (
	"fmt"
	"strings"

	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
)

// DefaultServers is used when ICE_SERVERS is unset.
var DefaultServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
}

// Parse validates a comma-separated list of stun:, stuns:, turn: and turns:
// URLs and returns one ICE server per URL. TURN entries receive the shared
// username and credential, which are therefore required when any TURN URL is present.
func Parse(raw string, username, credential string) ([]webrtc.ICEServer, error) {
	urls := splitList(raw)
	if len(urls) == 0 {
		urls = DefaultServers
	}

	servers := make([]webrtc.ICEServer, 0, len(urls))
	for _, u := range urls {
		uri, err := stun.ParseURI(u)
		if err != nil {
			return nil, fmt.Errorf("invalid ICE server url %q: %w", u, err)
		}

		server := webrtc.ICEServer{URLs: []string{u}}

		if uri.Scheme == stun.SchemeTypeTURN || uri.Scheme == stun.SchemeTypeTURNS {
			if username == "" || credential == "" {
				return nil, fmt.Errorf("TURN server %q requires TURN_USERNAME and TURN_CREDENTIAL", u)
			}
			server.Username = username
			server.Credential = credential
		}

		servers = append(servers, server)
	}

	return servers, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
