package domain

// StoreDriver identifies the document store backend.
type StoreDriver string

const (
	StoreDriverFirestore StoreDriver = "firestore"
	StoreDriverMongoDB   StoreDriver = "mongodb"
	StoreDriverMemory    StoreDriver = "memory"
)

// StoreConnection holds what a store client needs to authenticate.
// The credential artifact lives on disk; for Firestore it is a service account
// key, for MongoDB a file holding the connection URI.
type StoreConnection struct {
	Driver          StoreDriver `json:"driver"`
	CredentialsPath string      `json:"credentialsPath"`
	ProjectID       string      `json:"projectId"` // firestore only; empty = detect from credentials
	Database        string      `json:"database"`  // firestore database id or mongo db name
}
