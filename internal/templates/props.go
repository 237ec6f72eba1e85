package templates

// BaseProps contains common properties shared across all pages
type BaseProps struct {
	CSRFToken string
	AppName   string
}

// ErrorPageProps contains properties for the error page
type ErrorPageProps struct {
	BaseProps
	Error   string
	Message string
}

// LoginPageProps contains properties for the login page
type LoginPageProps struct {
	BaseProps
	Error     string
	Username  string
	ReturnURL string
}

// LoggedOutPageProps contains properties for the page shown after logout
// when no post-logout redirect was requested.
type LoggedOutPageProps struct {
	BaseProps
}

// LogoutPageProps carries the RP-initiated logout parameters through the
// confirmation form.
type LogoutPageProps struct {
	BaseProps
	Username              string
	ClientID              string
	PostLogoutRedirectURI string
	State                 string
}

// HomePageProps is shown to a signed-in user who arrived without a return URL.
type HomePageProps struct {
	BaseProps
	Username string
}
