// Docexport copies every top-level collection of a document store into one
// flat CSV file.
//
// Usage:
//
//	# Export with defaults (./serviceAccountKey.json → ./data.csv)
//	docexport
//
//	# Explicit paths, JSON logs
//	docexport export --credentials key.json --output users.csv --log-format json
//
//	# Re-export nightly, reconnecting when the key file is rotated
//	docexport schedule --cron "0 3 * * *"
//
//	# Recent runs
//	docexport history --limit 5
package main

func main() {
	Execute()
}
