package gate

import "github.com/pforte-dev/pforte/pkg/gate/view"

// Render maps a state to the gate's view tree. It is pure: no I/O, no
// mutation of the state, and every dynamic string passes through the
// tree's structural escaping when serialized.
func Render(s State) *view.Node {
	rootAttrs := map[string]string{"id": "auth-gate", "class": "gate"}
	if s.Overlay {
		rootAttrs["class"] = "gate gate-overlay"
	}

	switch s.Phase {
	case PhaseShowLogin:
		return view.El("div", rootAttrs, renderLogin(s))

	case PhaseLoadApp:
		return view.El("div", map[string]string{"id": "auth-gate", "class": "gate gate-hidden"})

	default:
		// Init, Loading, callback verification, redirecting: a spinner
		// until the next decision lands.
		return view.El("div", rootAttrs,
			view.El("div", map[string]string{"class": "gate-spinner", "role": "status"},
				view.Text("Loading")),
		)
	}
}

func renderLogin(s State) *view.Node {
	card := []*view.Node{
		view.El("h1", map[string]string{"class": "gate-title"}, view.Text("Sign in")),
	}

	switch s.Login {
	case LoginMethodSelection:
		card = append(card, renderMethodSelection(s))
	default:
		card = append(card, renderCredentialsForm(s))
	}

	return view.El("div", map[string]string{"class": "gate-card"}, card...)
}

// renderMethodSelection lists every available method in configured
// order: one button per credentials method, one link per redirect
// method.
func renderMethodSelection(s State) *view.Node {
	var items []*view.Node

	if s.Status != nil {
		for _, m := range s.Status.available() {
			items = append(items, renderMethodOption(m))
		}
	}

	if len(items) == 0 {
		items = append(items, view.El("p", map[string]string{"class": "gate-empty"},
			view.Text("No sign-in methods are currently available.")))
	}

	return view.El("div", map[string]string{"class": "gate-methods"}, items...)
}

func renderMethodOption(m MethodOption) *view.Node {
	label := m.Label
	if label == "" {
		label = m.Method
	}

	switch m.Method {
	case "local", "ldap":
		return view.El("button", map[string]string{
			"type":        "button",
			"class":       "gate-method",
			"data-action": "choose-method",
			"data-method": m.Method,
		}, view.Text(label))

	default:
		// Redirect methods (oidc, ntlm) navigate away.
		attrs := map[string]string{
			"class":       "gate-method",
			"data-method": m.Method,
			"href":        m.RedirectURL,
		}
		if m.Provider != "" {
			attrs["data-provider"] = m.Provider
		}
		return view.El("a", attrs, view.Text(label))
	}
}

func renderCredentialsForm(s State) *view.Node {
	submitting := s.Login == LoginSubmitting

	inputAttrs := func(name, typ, autocomplete string) map[string]string {
		attrs := map[string]string{
			"type":         typ,
			"name":         name,
			"autocomplete": autocomplete,
			"required":     "required",
		}
		if submitting {
			attrs["disabled"] = "disabled"
		}
		return attrs
	}

	fields := []*view.Node{
		view.El("label", map[string]string{"for": "gate-username"}, view.Text("Username")),
		view.El("input", withID(inputAttrs("username", "text", "username"), "gate-username")),
		view.El("label", map[string]string{"for": "gate-password"}, view.Text("Password")),
		view.El("input", withID(inputAttrs("password", "password", "current-password"), "gate-password")),
	}

	if s.Login == LoginError && s.Error != "" {
		fields = append(fields, view.El("p", map[string]string{
			"class": "gate-error",
			"role":  "alert",
		}, view.Text(s.Error)))
	}

	submitAttrs := map[string]string{"type": "submit", "class": "gate-submit"}
	if submitting {
		submitAttrs["disabled"] = "disabled"
	}
	submitLabel := "Sign in"
	if submitting {
		submitLabel = "Signing in…"
	}
	fields = append(fields, view.El("button", submitAttrs, view.Text(submitLabel)))

	// The back control only exists when there was a selection to go
	// back to.
	if s.Status != nil && s.Status.hasMethod("local") && s.Status.hasMethod("ldap") {
		backAttrs := map[string]string{
			"type":        "button",
			"class":       "gate-back",
			"data-action": "back-to-methods",
		}
		if submitting {
			backAttrs["disabled"] = "disabled"
		}
		fields = append(fields, view.El("button", backAttrs, view.Text("Back")))
	}

	return view.El("form", map[string]string{
		"class":       "gate-form",
		"data-method": s.ActiveMethod,
	}, fields...)
}

func withID(attrs map[string]string, id string) map[string]string {
	attrs["id"] = id
	return attrs
}
