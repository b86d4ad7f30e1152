package httpserver

import (
	"strings"

	"github.com/pion/webrtc/v4"
)

// withTURNRESTCredentials returns a copy of servers with ephemeral TURN REST
// credentials applied to every turn/turns entry. STUN entries and TURN entries
// that already carry static credentials are left as-is.
func withTURNRESTCredentials(servers []webrtc.ICEServer, username, credential string) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, len(servers))
	copy(out, servers)

	for i := range out {
		if out[i].Username != "" || out[i].Credential != nil {
			continue
		}
		if !hasTURNURL(out[i].URLs) {
			continue
		}
		out[i].Username = username
		out[i].Credential = credential
	}
	return out
}

func hasTURNURL(urls []string) bool {
	for _, u := range urls {
		scheme, _, found := strings.Cut(u, ":")
		if !found {
			continue
		}
		switch strings.ToLower(scheme) {
		case "turn", "turns":
			return true
		}
	}
	return false
}
