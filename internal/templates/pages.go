package templates

import "github.com/a-h/templ"

// LoginPage is the username and password form.
func LoginPage(props LoginPageProps) templ.Component {
	return layout("Sign in", func(p *pageWriter) {
		p.raw(`<h1>Sign in</h1>`)
		if props.Error != "" {
			p.raw(`<p class="error">`)
			p.text(props.Error)
			p.raw(`</p>`)
		}
		p.raw(`<form method="post" action="/login">`)
		p.hidden("csrf_token", props.CSRFToken)
		p.hidden("returnUrl", props.ReturnURL)
		p.raw(`<label for="username">Username</label>
<input type="text" id="username" name="username" value="`)
		p.text(props.Username)
		p.raw(`" autocomplete="username" required autofocus>
<label for="password">Password</label>
<input type="password" id="password" name="password" autocomplete="current-password" required>
<button type="submit">Sign in</button>
</form>`)
	})
}

// ErrorPage reports a request that cannot continue.
func ErrorPage(props ErrorPageProps) templ.Component {
	return layout("Error", func(p *pageWriter) {
		title := props.Error
		if title == "" {
			title = "Something went wrong"
		}
		p.raw(`<h1>`)
		p.text(title)
		p.raw(`</h1>`)
		if props.Message != "" {
			p.raw(`<p>`)
			p.text(props.Message)
			p.raw(`</p>`)
		}
	})
}

// LogoutPage asks a signed-in user to confirm signing out. The request
// parameters ride along so the post-logout redirect still works.
func LogoutPage(props LogoutPageProps) templ.Component {
	return layout("Sign out", func(p *pageWriter) {
		p.raw(`<h1>Sign out</h1>
<p>Do you want to sign out`)
		if props.Username != "" {
			p.raw(` of <strong>`)
			p.text(props.Username)
			p.raw(`</strong>`)
		}
		p.raw(`?</p>
<form method="post" action="/logout">`)
		p.hidden("csrf_token", props.CSRFToken)
		if props.ClientID != "" {
			p.hidden("client_id", props.ClientID)
		}
		if props.PostLogoutRedirectURI != "" {
			p.hidden("post_logout_redirect_uri", props.PostLogoutRedirectURI)
		}
		if props.State != "" {
			p.hidden("state", props.State)
		}
		p.raw(`<button type="submit">Sign out</button>
</form>`)
	})
}

// LoggedOutPage is shown when no post-logout redirect applies.
func LoggedOutPage(props LoggedOutPageProps) templ.Component {
	return layout("Signed out", func(p *pageWriter) {
		p.raw(`<h1>You have been signed out</h1>
<p><a href="/login">Sign in again</a></p>`)
	})
}

// HomePage greets a signed-in user who arrived without a return URL.
func HomePage(props HomePageProps) templ.Component {
	title := props.AppName
	if title == "" {
		title = "Signed in"
	}
	return layout(title, func(p *pageWriter) {
		p.raw(`<h1>Signed in</h1>
<p>You are signed in as <strong>`)
		p.text(props.Username)
		p.raw(`</strong>.</p>
<form method="post" action="/logout">`)
		p.hidden("csrf_token", props.CSRFToken)
		p.raw(`<button type="submit">Sign out</button>
</form>`)
	})
}
