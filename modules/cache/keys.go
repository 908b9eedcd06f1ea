package cache

import "encoding/hex"

// OpenTasksKey names the cached listing of Open tasks for a zip and category.
// An empty category is stored under "All". Segments are hex encoded so
// distinct zips never share a key and no glob metacharacter reaches Redis.
func OpenTasksKey(zip, category string) string {
	if category == "" {
		category = "All"
	}
	return "open:" + segment(zip) + ":" + segment(category)
}

// zipPattern matches every Open listing cached for zip.
func zipPattern(zip string) string {
	return "open:" + segment(zip) + ":*"
}

func segment(s string) string {
	return hex.EncodeToString([]byte(s))
}
