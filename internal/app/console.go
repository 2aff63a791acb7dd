package app

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ConsoleNotifier prints user-facing messages to stdout, the shell's stand-in
// for toasts.
type ConsoleNotifier struct{}

func (ConsoleNotifier) Info(msg string)  { fmt.Println(msg) }
func (ConsoleNotifier) Error(msg string) { fmt.Println("error:", msg) }

// RouteNavigator records the workspace route the session machine asked for
// and announces it. The editing surface itself lives elsewhere; the shell's
// job ends at the transition.
type RouteNavigator struct {
	mu       sync.Mutex
	route    string
	username string
}

func (n *RouteNavigator) NavigateToWorkspace(roomID, username string) {
	n.mu.Lock()
	n.route = "/editor/" + roomID
	n.username = username
	n.mu.Unlock()
	log.Info().Str("module", "app").Str("route", "/editor/"+roomID).Str("username", username).Msg("navigating to workspace")
	fmt.Printf("→ entering workspace %s as %s\n", roomID, username)
}

// CurrentRoute returns the last navigated route and its username context.
func (n *RouteNavigator) CurrentRoute() (route, username string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route, n.username
}
