// internal/app/system/viewdata/viewdata.go
package viewdata

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Username / username: The human-readable string users type to log in

import (
	"net/http"

	"github.com/dalemusser/stratafolio/internal/app/system/auth"
	"github.com/dalemusser/stratafolio/internal/app/system/authz"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// DefaultSiteName is shown in page titles and the navigation bar.
const DefaultSiteName = "Stratafolio"

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(r, "Page Title", "/default-back"),
//	    // page-specific fields...
//	}
type BaseVM struct {
	SiteName string

	// User context (from auth middleware)
	IsLoggedIn  bool
	IsSuperuser bool
	UserID      string
	Username    string // User's login identifier
	Role        string
	UserName    string // Display name

	// Page context
	Title       string
	BackURL     string
	CurrentPath string

	// Security
	CSRFToken string // CSRF token for forms (use in hidden input field)
}

// NewBaseVM creates a fully populated BaseVM for a page.
//
// Parameters:
//   - r: the HTTP request
//   - title: the page title
//   - backDefault: default URL for the back button if none in request
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	vm := New(r)
	vm.Title = title
	vm.BackURL = httpnav.ResolveBackURL(r, backDefault)
	return vm
}

// New creates a BaseVM from the request context.
// This is the standard way to create a BaseVM for most handlers.
func New(r *http.Request) BaseVM {
	role, name, userID, signedIn := authz.UserCtx(r)

	vm := BaseVM{
		SiteName:    DefaultSiteName,
		IsLoggedIn:  signedIn,
		IsSuperuser: role == "superuser",
		UserID:      userID.Hex(),
		Role:        role,
		UserName:    name,
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}

	if signedIn {
		if user, ok := auth.CurrentUser(r); ok {
			vm.Username = user.Username
		}
	}

	return vm
}
