package coda

import "time"

// Doc is one document visible to the API token.
type Doc struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Owner     Person    `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Person identifies a document owner.
type Person struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Page is one page inside a document.
type Page struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Subtitle string `json:"subtitle"`
}

// PageContent holds an exported page body.
type PageContent struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Table is one table inside a document.
type Table struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	RowCount int    `json:"rowCount"`
}

// Row is one table row; Values maps column IDs to cell values.
type Row struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Values map[string]any `json:"values"`
}

// DocExport bundles everything extracted from one document.
type DocExport struct {
	Doc    Doc           `json:"docInfo"`
	Pages  []PageExport  `json:"pages"`
	Tables []TableExport `json:"tables"`
}

// PageExport pairs a page with its content.
type PageExport struct {
	Page    Page        `json:"pageInfo"`
	Content PageContent `json:"content"`
}

// TableExport pairs a table with its rows.
type TableExport struct {
	Table Table `json:"tableInfo"`
	Rows  []Row `json:"rows"`
}

// listEnvelope is the common paginated response wrapper.
type listEnvelope[T any] struct {
	Items []T `json:"items"`
}

// apiError is the error payload returned on non-200 responses.
type apiError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}
