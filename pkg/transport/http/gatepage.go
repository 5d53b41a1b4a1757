package http

import (
	"net/http"

	"github.com/pforte-dev/pforte/pkg/auth"
	"github.com/pforte-dev/pforte/pkg/config"
	"github.com/pforte-dev/pforte/pkg/gate"
	"github.com/pforte-dev/pforte/pkg/gate/view"
)

// handleGatePage serves the server-rendered login gate. The same pure
// state machine the client driver runs is fed here with the request's
// own view of the world: the current auth status and the callback
// markers in the URL. What the browser receives is the exact UI the
// machine would settle on after its first status round trip.
func (a *Adapter) handleGatePage(w http.ResponseWriter, r *http.Request) {
	c := a.cfg.Get()
	status := a.gateStatus(c, r)

	q := r.URL.Query()
	page := gate.Page{
		HasMount:    true,
		Token:       q.Get("token"),
		NtlmSuccess: q.Get("ntlm") == "success",
		Logout:      q.Has("logout"),
	}

	st := gate.NewState()
	events := []gate.Event{gate.Start{Page: page}}
	for steps := 0; len(events) > 0 && steps < 16; steps++ {
		ev := events[0]
		events = events[1:]

		var cmds []gate.Command
		st, cmds = gate.Update(st, ev)
		for _, cmd := range cmds {
			switch cmd := cmd.(type) {
			case gate.FetchStatus:
				events = append(events, gate.StatusReceived{Status: &status})
			case gate.CheckRedirectThrottle:
				// Auto-redirect is the client driver's job; it owns the
				// per-provider window. The server always shows the
				// login UI with the provider links instead.
				events = append(events, gate.ThrottleResult{Provider: cmd.Provider, Allowed: false})
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(pageHTML(c, gate.Render(st))))
}

// gateStatus assembles the gate's status view from the current
// configuration and the request's resolved principal.
func (a *Adapter) gateStatus(c *config.Config, r *http.Request) gate.Status {
	base := basePath(c)

	var methods []gate.MethodOption
	methods = append(methods, gate.MethodOption{
		Method:    "local",
		Label:     "Username & password",
		Available: c.Auth.Local.Enabled,
	})
	for _, p := range c.Auth.LDAP.Providers {
		methods = append(methods, gate.MethodOption{
			Method:    "ldap",
			Provider:  p.Name,
			Label:     "Directory account",
			Available: c.Auth.LDAP.Enabled,
		})
	}
	for _, p := range c.Auth.OIDC.Providers {
		label := p.Label
		if label == "" {
			label = p.Name
		}
		methods = append(methods, gate.MethodOption{
			Method:      "oidc",
			Provider:    p.Name,
			Label:       label,
			Available:   c.Auth.OIDC.Enabled,
			RedirectURL: base + "/api/auth/oidc/" + p.Name,
		})
	}
	ntlmLabel := c.Auth.NTLM.Label
	if ntlmLabel == "" {
		ntlmLabel = "Windows sign-on"
	}
	methods = append(methods, gate.MethodOption{
		Method:      "ntlm",
		Label:       ntlmLabel,
		Available:   c.Auth.NTLM.Enabled,
		RedirectURL: base + "/api/auth/ntlm/login",
	})

	status := gate.Status{
		AnonymousEnabled: c.Auth.Anonymous.Enabled,
		ProxyEnabled:     c.Auth.Proxy.Enabled,
		Methods:          methods,
	}
	if c.Auth.OIDC.Enabled && c.Auth.OIDC.AutoRedirect != "" {
		status.AutoRedirect = c.Auth.OIDC.AutoRedirect
		status.AutoRedirectURL = base + "/api/auth/oidc/" + c.Auth.OIDC.AutoRedirect
		status.AutoRedirectWindow = c.Gate.AutoRedirectWindow
	}

	if p := auth.PrincipalFromContext(r.Context()); p != nil && !p.IsAnonymous() {
		status.Authenticated = true
		status.User = p.DisplayName
	}

	return status
}

// pageHTML wraps the rendered gate in a minimal document shell.
func pageHTML(c *config.Config, gateNode *view.Node) string {
	title := c.Gate.Title
	if title == "" {
		title = "Sign in"
	}

	var header []*view.Node
	header = append(header, view.El("h1", nil, view.Text(title)))
	if c.Gate.Subtitle != "" {
		header = append(header, view.El("p", map[string]string{"class": "subtitle"}, view.Text(c.Gate.Subtitle)))
	}

	doc := view.El("html", map[string]string{"lang": "en"},
		view.El("head", nil,
			view.El("meta", map[string]string{"charset": "utf-8"}),
			view.El("meta", map[string]string{
				"name":    "viewport",
				"content": "width=device-width, initial-scale=1",
			}),
			view.El("title", nil, view.Text(title)),
		),
		view.El("body", nil,
			view.El("header", nil, header...),
			gateNode,
		),
	)

	return "<!doctype html>\n" + doc.HTML()
}
