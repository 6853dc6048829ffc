package templates

import (
	"github.com/failuretoload/datamonster-web/internal/services/web/backend"
)

// HomeView is the landing page.
type HomeView struct {
	SignedIn       bool
	DisplayName    string
	SettlementsURL string
	SignInURL      string
}

// SignInView is the sign-in page. Exactly one of the Google button fields or
// RedirectURL is set.
type SignInView struct {
	GoogleClientID string
	GoogleLoginURI string
	RedirectURL    string
	Error          string
}

// SignedOutView asks the browser to finish signing out of Google.
type SignedOutView struct {
	RevokeHint string
	ClientID   string
	HomeURL    string
}

// PendingView is shown while the session is still being checked.
type PendingView struct {
	RetrySeconds int
	RetryURL     string
}

// ErrorView is the app error state.
type ErrorView struct {
	StatusCode int
	Title      string
	Message    string
}

// SettlementsView is the settlement list and creation form.
type SettlementsView struct {
	Settlements []SettlementCard
	CreateURL   string
	Name        string
	NameError   string
	LoadError   string
}

// SettlementCard is one settlement in the list.
type SettlementCard struct {
	backend.Settlement
	URL string
}

// TabLink is one settlement tab.
type TabLink struct {
	Label  string
	URL    string
	Active bool
}

// SettlementView is the chrome shared by the settlement tabs.
type SettlementView struct {
	Settlement backend.Settlement
	Tabs       []TabLink
	BackURL    string
}

// TabView is a summary tab (storage, timeline).
type TabView struct {
	SettlementView
	Title string
}

// PopulationView is the population tab.
type PopulationView struct {
	SettlementView
	Table  TableView
	Dialog *DialogView
}

// TableView is the survivor table.
type TableView struct {
	ID           string
	Action       string
	Filter       string
	FilterError  string
	OrderBy      string
	PageSize     int
	Columns      []ColumnView
	Rows         []RowView
	Empty        bool
	LoadError    string
	Page         int
	PageCount    int
	Total        int
	PreviousURL  string
	NextURL      string
	CreateURL    string
	ColumnToggle []ColumnToggle
}

// ColumnView is one visible table header.
type ColumnView struct {
	Key     string
	Label   string
	SortURL string
	// Sort is "asc", "desc" or empty.
	Sort string
}

// ColumnToggle is one entry of the column visibility picker.
type ColumnToggle struct {
	Key     string
	Label   string
	Visible bool
}

// RowView is one survivor row.
type RowView struct {
	ID        string
	Name      string
	Cells     []string
	ViewURL   string
	EditURL   string
	StatusURL string
	DeleteURL string
}

// Dialog kinds.
const (
	DialogCreate = "create"
	DialogShow   = "view"
	DialogEdit   = "edit"
	DialogStatus = "status"
	DialogDelete = "delete"
)

// DialogView is the open survivor dialog.
type DialogView struct {
	Kind     string
	Title    string
	Action   string
	CloseURL string
	Survivor backend.Survivor
	Fields   []FieldView
	Statuses []StatusOption
	Year     string
	Errors   map[string]string
	// Stats is the read-only listing of the view dialog.
	Stats []StatView
}

// FieldView is one input of the survivor form.
type FieldView struct {
	Name  string
	Label string
	Type  string
	Value string
	Min   string
	Max   string
	Error string
}

// StatusOption is one choice of the status dialog.
type StatusOption struct {
	Value    string
	Label    string
	Selected bool
}

// StatView is one label and value pair.
type StatView struct {
	Label string
	Value string
}
