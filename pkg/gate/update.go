package gate

// Update is the gate's entire transition function: pure, no I/O, no
// shared state. It returns the next state and the commands the driver
// must execute.
func Update(s State, ev Event) (State, []Command) {
	switch ev := ev.(type) {
	case Start:
		return start(s, ev.Page)

	case StatusReceived:
		return statusReceived(s, ev.Status)

	case StatusFailed:
		// A broken gate is worse than letting the application perform
		// its own re-check, so a failed status fetch loads the app.
		switch s.Phase {
		case PhaseLoading, PhaseAwaitingOidcCallback, PhaseAwaitingNtlmCallback:
			return enterLoadApp(s)
		}
		return s, nil

	case ThrottleResult:
		if s.Phase != PhaseLoading {
			return s, nil
		}
		if ev.Allowed {
			s.Phase = PhaseRedirecting
			return s, []Command{
				RecordRedirectAttempt{Provider: ev.Provider},
				Navigate{URL: s.Status.AutoRedirectURL},
			}
		}
		return showLogin(s)

	case MethodChosen:
		if s.Phase != PhaseShowLogin {
			return s, nil
		}
		s.Login = LoginCredentialsForm
		s.ActiveMethod = ev.Method
		s.Error = ""
		return s, []Command{ShowUI{}}

	case BackToMethods:
		if s.Phase != PhaseShowLogin {
			return s, nil
		}
		s.Login = LoginMethodSelection
		s.ActiveMethod = ""
		s.Error = ""
		return s, []Command{ShowUI{}}

	case SubmitCredentials:
		if s.Phase != PhaseShowLogin || s.Login == LoginSubmitting {
			return s, nil
		}
		s.Login = LoginSubmitting
		s.Error = ""
		return s, []Command{
			ShowUI{},
			SubmitLogin{Method: s.ActiveMethod, Username: ev.Username, Password: ev.Password},
		}

	case LoginSucceeded:
		if s.Phase != PhaseShowLogin || s.Login != LoginSubmitting {
			return s, nil
		}
		cmds := []Command{
			StoreToken{Token: ev.Token},
			ReplaceURL{StripParams: []string{"logout"}},
			EmitSuccess{},
		}
		next, loadCmds := enterLoadApp(s)
		return next, append(cmds, loadCmds...)

	case LoginFailed:
		if s.Phase != PhaseShowLogin || s.Login != LoginSubmitting {
			return s, nil
		}
		s.Login = LoginError
		s.Error = ev.Message
		if s.Error == "" {
			s.Error = "Sign-in failed. Please try again."
		}
		return s, []Command{ShowUI{}}

	case SessionExpired:
		// No-op while visible: an expiry signal racing an in-flight
		// load must not produce a duplicate render.
		if s.Visible {
			return s, nil
		}
		s.Overlay = true
		s.Phase = PhaseLoading
		s.Login = LoginMethodSelection
		s.Error = ""
		return s, []Command{FetchStatus{}}
	}

	return s, nil
}

func start(s State, page Page) (State, []Command) {
	if s.Phase != PhaseInit {
		return s, nil
	}

	// Host page has no gate configured.
	if !page.HasMount {
		return enterLoadApp(s)
	}

	s.Logout = page.Logout

	switch {
	case page.Token != "":
		s.Phase = PhaseAwaitingOidcCallback
		return s, []Command{
			ReplaceURL{StripParams: callbackParams},
			StoreToken{Token: page.Token},
			FetchStatus{},
		}

	case page.NtlmSuccess:
		s.Phase = PhaseAwaitingNtlmCallback
		return s, []Command{
			ReplaceURL{StripParams: callbackParams},
			FetchStatus{},
		}

	default:
		s.Phase = PhaseLoading
		return s, []Command{FetchStatus{}}
	}
}

func statusReceived(s State, status *Status) (State, []Command) {
	switch s.Phase {
	case PhaseLoading:
		s.Status = status
		if status.Authenticated || status.AnonymousEnabled || status.ProxyEnabled {
			return enterLoadApp(s)
		}
		if status.AutoRedirect != "" && !s.Logout {
			return s, []Command{CheckRedirectThrottle{Provider: status.AutoRedirect}}
		}
		return showLogin(s)

	case PhaseAwaitingOidcCallback, PhaseAwaitingNtlmCallback:
		s.Status = status
		if status.Authenticated {
			return enterLoadApp(s)
		}
		// The callback did not produce a session: the stored token is
		// useless and must not linger.
		next, cmds := showLogin(s)
		return next, append([]Command{DiscardToken{}}, cmds...)
	}

	return s, nil
}

// showLogin enters PhaseShowLogin with the right sub-state: method
// selection only when both username/password methods are available.
func showLogin(s State) (State, []Command) {
	s.Phase = PhaseShowLogin
	s.Visible = true
	s.Error = ""

	hasLocal := s.Status != nil && s.Status.hasMethod("local")
	hasLDAP := s.Status != nil && s.Status.hasMethod("ldap")

	switch {
	case hasLocal && hasLDAP:
		s.Login = LoginMethodSelection
		s.ActiveMethod = ""
	case hasLocal:
		s.Login = LoginCredentialsForm
		s.ActiveMethod = "local"
	case hasLDAP:
		s.Login = LoginCredentialsForm
		s.ActiveMethod = "ldap"
	default:
		// Only redirect methods remain; the selection screen renders
		// their buttons.
		s.Login = LoginMethodSelection
		s.ActiveMethod = ""
	}

	return s, []Command{ShowUI{}}
}

// enterLoadApp is the terminal hand-off to the main application.
func enterLoadApp(s State) (State, []Command) {
	wasOverlay := s.Overlay

	s.Phase = PhaseLoadApp
	s.Visible = false

	if wasOverlay {
		return s, []Command{HideUI{}}
	}
	return s, []Command{InjectDeferredAssets{}, HideUI{}}
}
