// internal/app/system/limits/limits.go
package limits

import "net/http"

// MaxFormSize bounds the body of the app's POST forms: a task title, a
// status, or a role.
const MaxFormSize = 64 << 10 // 64 KB

// ParseForm caps the request body at MaxFormSize and parses it.
func ParseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFormSize)
	return r.ParseForm()
}
